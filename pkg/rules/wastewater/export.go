package wastewater

import (
	"github.com/Ramsey-B/moss/pkg/mapping"
	"github.com/Ramsey-B/moss/pkg/models"
)

var (
	f     = mapping.F
	text  = mapping.Text
	col   = mapping.Col
	coded = mapping.Coded
	ref   = mapping.Ref
	geom  = mapping.Geom
)

func fields(groups ...[]mapping.Field) []mapping.Field {
	out := []mapping.Field{}
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func exportBase() []mapping.Field {
	return []mapping.Field{
		f("obj_id", mapping.OID()),
		f("bezeichnung", text("identifier")),
		f("bemerkung", text("remark")),
	}
}

func exportStructure() []mapping.Field {
	return fields(exportBase(), []mapping.Field{
		f("zugaenglichkeit", coded("accessibility", "wastewater_structure_accessibility")),
		f("status", coded("status", "wastewater_structure_status")),
		f("baujahr", mapping.Clamp(mapping.Int(col("year_of_construction")), 1800, 2100)),
		f("eigentuemerref", ref("fk_owner", "organisation")),
		f("betreiberref", ref("fk_operator", "organisation")),
		f("detailgeometrie", geom("detail_geometry_geometry")),
	})
}

func exportElement() []mapping.Field {
	return fields(exportBase(), []mapping.Field{
		f("abwasserbauwerkref", ref("fk_wastewater_structure", "wastewater_structure")),
	})
}

func exportStructurePart() []mapping.Field {
	return fields(exportBase(), []mapping.Field{
		f("instandstellung", coded("renovation_demand", "structure_part_renovation_demand")),
		f("abwasserbauwerkref", ref("fk_wastewater_structure", "wastewater_structure")),
	})
}

func exportOverflow() []mapping.Field {
	return fields(exportBase(), []mapping.Field{
		f("antrieb", coded("actuation", "overflow_actuation")),
		f("funktion", coded("function", "overflow_function")),
		f("abwasserknotenref", ref("fk_wastewater_node", "wastewater_node")),
		f("ueberlaufnachref", ref("fk_overflow_to", "wastewater_node")),
	})
}

func rule(source, class string, scope mapping.Predicate, fs []mapping.Field) mapping.ExportRule {
	return mapping.ExportRule{
		Source:        source,
		Scope:         scope,
		Targets:       []mapping.Target{{Class: class, Fields: fs}},
		Metaattribute: true,
	}
}

var (
	ownedByStructure = mapping.OwnedBy("fk_wastewater_structure", "wastewater_structure")
	ownedByNode      = mapping.OwnedBy("fk_wastewater_node", "wastewater_node")
)

// baseExport lists the SIA405 Abwasser classes, referenced classes first.
func baseExport() []mapping.ExportRule {
	return []mapping.ExportRule{
		rule("organisation", "organisation", nil, []mapping.Field{
			f("obj_id", mapping.OID()),
			f("bezeichnung", text("identifier")),
			f("bemerkung", text("remark")),
			f("auid", text("uid")),
		}),
		rule("pipe_profile", "rohrprofil", nil, fields(exportBase(), []mapping.Field{
			f("hoehenbreitenverhaeltnis", col("height_width_ratio")),
			f("profiltyp", coded("profile_type", "pipe_profile_profile_type")),
		})),

		rule("manhole", "normschacht", nil, fields(exportStructure(), []mapping.Field{
			f("funktion", coded("function", "manhole_function")),
			f("dimension1", mapping.Int(col("dimension1"))),
			f("dimension2", mapping.Int(col("dimension2"))),
			f("material", coded("material", "manhole_material")),
			f("oberflaechenzulauf", coded("surface_inflow", "manhole_surface_inflow")),
		})),
		rule("special_structure", "spezialbauwerk", nil, fields(exportStructure(), []mapping.Field{
			f("funktion", coded("function", "special_structure_function")),
			f("bypass", coded("bypass", "special_structure_bypass")),
		})),
		rule("discharge_point", "einleitstelle", nil, fields(exportStructure(), []mapping.Field{
			f("relevanz", coded("relevance", "discharge_point_relevance")),
			f("terrainkote", col("terrain_level")),
			f("wasserspiegel_hydraulik", col("waterlevel_hydraulic")),
		})),
		rule("infiltration_installation", "versickerungsanlage", nil, fields(exportStructure(), []mapping.Field{
			f("art", coded("kind", "infiltration_installation_kind")),
			f("schluckvermoegen", col("absorption_capacity")),
		})),

		rule("wastewater_node", "abwasserknoten", nil, fields(exportElement(), []mapping.Field{
			f("rueckstaukote", col("backflow_level")),
			f("sohlenkote", col("bottom_level")),
			f("lage", geom("situation_geometry")),
		})),
		rule("reach_point", "haltungspunkt", reachPointScope, fields(exportBase(), []mapping.Field{
			f("kote", col("level")),
			f("auslaufform", coded("outlet_shape", "reach_point_outlet_shape")),
			f("lage_anschluss", mapping.Int(mapping.Modulo(col("position_of_connection"), 0, 360))),
			f("lage", geom("situation_geometry")),
			f("abwassernetzelementref", ref("fk_wastewater_networkelement", "wastewater_networkelement")),
		})),
		rule("reach", "haltung", nil, fields(exportElement(), []mapping.Field{
			f("lichte_hoehe", mapping.Int(col("clear_height"))),
			f("laengeeffektiv", col("length_effective")),
			f("material", coded("material", "reach_material")),
			f("ringsteifigkeit", col("ring_stiffness")),
			f("verlauf", geom("progression_geometry")),
			f("vonhaltungspunktref", ref("fk_reach_point_from", "reach_point")),
			f("nachhaltungspunktref", ref("fk_reach_point_to", "reach_point")),
			f("rohrprofilref", ref("fk_pipe_profile", "pipe_profile")),
			f("lagebestimmung", coded("horizontal_positioning", "reach_horizontal_positioning")),
		})),

		rule("access_aid", "einstiegshilfe", ownedByStructure, fields(exportStructurePart(), []mapping.Field{
			f("art", coded("kind", "access_aid_kind")),
		})),
		rule("dryweather_flume", "trockenwetterrinne", ownedByStructure, fields(exportStructurePart(), []mapping.Field{
			f("material", coded("material", "dryweather_flume_material")),
		})),
		rule("cover", "deckel", ownedByStructure, fields(exportStructurePart(), []mapping.Field{
			f("fabrikat", text("brand")),
			f("deckelform", coded("cover_shape", "cover_cover_shape")),
			f("durchmesser", mapping.Int(col("diameter"))),
			f("verschluss", coded("fastening", "cover_fastening")),
			f("kote", col("level")),
			f("material", coded("material", "cover_material")),
			f("lagegenauigkeit", coded("positional_accuracy", "cover_positional_accuracy")),
			f("lage", geom("situation_geometry")),
			f("schlammeimer", coded("sludge_bucket", "cover_sludge_bucket")),
			f("entlueftung", coded("venting", "cover_venting")),
		})),

		rule("leapingweir", "leapingwehr", ownedByNode, fields(exportOverflow(), []mapping.Field{
			f("laenge", col("length")),
			f("oeffnungsform", coded("opening_shape", "leapingweir_opening_shape")),
			f("breite", col("width")),
		})),
		rule("prank_weir", "streichwehr", ownedByNode, fields(exportOverflow(), []mapping.Field{
			f("kotemax", col("level_max")),
			f("kotemin", col("level_min")),
			f("ueberfallkante", coded("weir_kind", "prank_weir_weir_kind")),
		})),
		rule("pump", "foerderaggregat", ownedByNode, fields(exportOverflow(), []mapping.Field{
			f("bauart", coded("construction_type", "pump_construction_type")),
			f("arbeitspunkt", col("operating_point")),
			f("einschaltpunkt", col("start_level")),
			f("ausschaltpunkt", col("stop_level")),
		})),
	}
}

func dssExport() []mapping.ExportRule {
	return []mapping.ExportRule{
		rule("hydraulic_char_data", "hydr_kennwerte", ownedByNode, fields(exportBase(), []mapping.Field{
			f("qab", col("q_discharge")),
			f("status", coded("status", "hydraulic_char_data_status")),
			f("abwasserknotenref", ref("fk_wastewater_node", "wastewater_node")),
		})),
	}
}

func kekExport() []mapping.ExportRule {
	damage := func(extra ...mapping.Field) []mapping.Field {
		return fields([]mapping.Field{
			f("obj_id", mapping.OID()),
			f("anmerkung", text("comments")),
			f("einzelschadenklasse", coded("single_damage_class", "damage_single_damage_class")),
			f("distanz", col("distance")),
			f("untersuchungref", ref("fk_examination", "examination")),
		}, extra)
	}
	ownedByExamination := mapping.OwnedBy("fk_examination", "examination")

	return []mapping.ExportRule{
		rule("examination", "untersuchung", mapping.OwnedBy("fk_reach_point", "reach_point"), fields(exportBase(), []mapping.Field{
			f("zeitpunkt", col("time_point")),
			f("status", coded("status", "maintenance_event_status")),
			f("ausfuehrende_firmaref", ref("fk_operating_company", "organisation")),
			f("geraet", text("equipment")),
			f("vonpunktbezeichnung", text("from_point_identifier")),
			f("inspizierte_laenge", col("inspected_length")),
			f("haltungspunktref", ref("fk_reach_point", "reach_point")),
		})),
		rule("damage_channel", "kanalschaden", ownedByExamination, damage(
			f("kanalschadencode", coded("channel_damage_code", "damage_channel_channel_damage_code")),
		)),
		rule("damage_manhole", "normschachtschaden", ownedByExamination, damage(
			f("schachtschadencode", coded("manhole_damage_code", "damage_manhole_manhole_damage_code")),
			f("schachtbereich", coded("manhole_shaft_area", "damage_manhole_manhole_shaft_area")),
		)),
	}
}

// reachPointScope keeps a reach point when a selected reach starts or ends
// at it and the element it sits on may be referenced.
func reachPointScope(c *mapping.Context, rec *models.Record) (bool, error) {
	if !c.Filtered() {
		return true, nil
	}
	if element, ok := rec.Values.String("fk_wastewater_networkelement"); ok &&
		!c.Allowed(c.Base("wastewater_networkelement"), element) {
		c.Logger.WithContext(c.Context()).Debugf("reach point %s skipped, element %s is outside the selection", rec.ID(), element)
		return false, nil
	}
	for _, column := range []string{"fk_reach_point_from", "fk_reach_point_to"} {
		reaches, err := c.Referrers("reach", column, rec.ID())
		if err != nil {
			return false, err
		}
		for _, reach := range reaches {
			if c.Selected(reach.Base(), reach.ID()) {
				return true, nil
			}
		}
	}
	return false, nil
}
