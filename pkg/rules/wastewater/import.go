package wastewater

import (
	"github.com/Ramsey-B/moss/pkg/mapping"
	"github.com/Ramsey-B/moss/pkg/models"
	"github.com/Ramsey-B/moss/pkg/source"
)

// identities binds every transfer TID to the obj_id it was exported with.
func identities(c *mapping.Context) error {
	records, err := c.Reader.Rows(c.Context(), "sia405_baseclass", source.Filter{})
	if err != nil {
		return err
	}
	for _, rec := range records {
		if oid, ok := rec.Values.String("obj_id"); ok {
			c.SetIdentity(rec.Values[rec.IDColumn], oid)
		}
	}
	return nil
}

// decoded maps the enumeration literal of a transfer attribute back onto the
// integer code of list.
func decoded(column, list string) mapping.Expr {
	return func(c *mapping.Context, rec *models.Record) (any, error) {
		return mapping.Decoded(column, list, rec.Table+"."+column, true)(c, rec)
	}
}

func lookup(column string) mapping.Expr {
	return mapping.Lookup(column)
}

// metaattributeOf returns the metaattribute record owned by rec.
func metaattributeOf(c *mapping.Context, rec *models.Record) (*models.Record, error) {
	metas, err := c.Referrers("metaattribute", "sia405_baseclass_metaattribute", rec.ID())
	if err != nil || len(metas) == 0 {
		return nil, err
	}
	return metas[0], nil
}

// metaOrganisation resolves the organisation named in column of the
// metaattribute of rec into its obj_id.
func metaOrganisation(column string) mapping.Expr {
	return func(c *mapping.Context, rec *models.Record) (any, error) {
		meta, err := metaattributeOf(c, rec)
		if err != nil || meta == nil {
			return nil, err
		}
		name, ok := meta.Values.String(column)
		if !ok {
			return nil, nil
		}
		orgs, err := c.Referrers("organisation", "bezeichnung", name)
		if err != nil || len(orgs) == 0 {
			return nil, err
		}
		id, _ := c.Identity(orgs[0].Values[orgs[0].IDColumn])
		return id, nil
	}
}

func metaModified(c *mapping.Context, rec *models.Record) (any, error) {
	meta, err := metaattributeOf(c, rec)
	if err != nil || meta == nil {
		return nil, err
	}
	return meta.Values["letzte_aenderung"], nil
}

func importMeta() []mapping.Field {
	return []mapping.Field{
		f("obj_id", mapping.Identity()),
		f("last_modification", metaModified),
		f("fk_dataowner", metaOrganisation("datenherr")),
		f("fk_provider", metaOrganisation("datenlieferant")),
	}
}

func importBase() []mapping.Field {
	return fields(importMeta(), []mapping.Field{
		f("identifier", text("bezeichnung")),
		f("remark", text("bemerkung")),
	})
}

func importStructure() []mapping.Field {
	return fields(importBase(), []mapping.Field{
		f("accessibility", decoded("zugaenglichkeit", "wastewater_structure_accessibility")),
		f("status", decoded("status", "wastewater_structure_status")),
		f("year_of_construction", mapping.Int(col("baujahr"))),
		f("fk_owner", lookup("eigentuemerref")),
		f("fk_operator", lookup("betreiberref")),
		f("detail_geometry_geometry", geom("detailgeometrie")),
	})
}

func importElement() []mapping.Field {
	return fields(importBase(), []mapping.Field{
		f("fk_wastewater_structure", lookup("abwasserbauwerkref")),
	})
}

func importStructurePart() []mapping.Field {
	return fields(importBase(), []mapping.Field{
		f("renovation_demand", decoded("instandstellung", "structure_part_renovation_demand")),
		f("fk_wastewater_structure", lookup("abwasserbauwerkref")),
	})
}

func importOverflow() []mapping.Field {
	return fields(importBase(), []mapping.Field{
		f("actuation", decoded("antrieb", "overflow_actuation")),
		f("function", decoded("funktion", "overflow_function")),
		f("fk_wastewater_node", lookup("abwasserknotenref")),
		f("fk_overflow_to", lookup("ueberlaufnachref")),
	})
}

func reverse(source, class string, fs []mapping.Field) mapping.ImportRule {
	return mapping.ImportRule{
		Source:  source,
		Targets: []mapping.Target{{Class: class, Fields: fs}},
	}
}

// baseImport lists the reverse rules of the SIA405 Abwasser classes. Label
// texts stay in the transfer schema.
func baseImport() []mapping.ImportRule {
	return []mapping.ImportRule{
		reverse("organisation", "organisation", fields(importMeta(), []mapping.Field{
			f("identifier", text("bezeichnung")),
			f("remark", text("bemerkung")),
			f("uid", text("auid")),
		})),
		reverse("rohrprofil", "pipe_profile", fields(importBase(), []mapping.Field{
			f("height_width_ratio", col("hoehenbreitenverhaeltnis")),
			f("profile_type", decoded("profiltyp", "pipe_profile_profile_type")),
		})),

		reverse("normschacht", "manhole", fields(importStructure(), []mapping.Field{
			f("function", decoded("funktion", "manhole_function")),
			f("dimension1", col("dimension1")),
			f("dimension2", col("dimension2")),
			f("material", decoded("material", "manhole_material")),
			f("surface_inflow", decoded("oberflaechenzulauf", "manhole_surface_inflow")),
		})),
		reverse("spezialbauwerk", "special_structure", fields(importStructure(), []mapping.Field{
			f("function", decoded("funktion", "special_structure_function")),
			f("bypass", decoded("bypass", "special_structure_bypass")),
		})),
		reverse("einleitstelle", "discharge_point", fields(importStructure(), []mapping.Field{
			f("relevance", decoded("relevanz", "discharge_point_relevance")),
			f("terrain_level", col("terrainkote")),
			f("waterlevel_hydraulic", col("wasserspiegel_hydraulik")),
		})),
		reverse("versickerungsanlage", "infiltration_installation", fields(importStructure(), []mapping.Field{
			f("kind", decoded("art", "infiltration_installation_kind")),
			f("absorption_capacity", col("schluckvermoegen")),
		})),

		reverse("abwasserknoten", "wastewater_node", fields(importElement(), []mapping.Field{
			f("backflow_level", col("rueckstaukote")),
			f("bottom_level", col("sohlenkote")),
			f("situation_geometry", geom("lage")),
		})),
		reverse("haltungspunkt", "reach_point", fields(importBase(), []mapping.Field{
			f("level", col("kote")),
			f("outlet_shape", decoded("auslaufform", "reach_point_outlet_shape")),
			f("position_of_connection", col("lage_anschluss")),
			f("situation_geometry", geom("lage")),
			f("fk_wastewater_networkelement", lookup("abwassernetzelementref")),
		})),
		reverse("haltung", "reach", fields(importElement(), []mapping.Field{
			f("clear_height", col("lichte_hoehe")),
			f("length_effective", col("laengeeffektiv")),
			f("material", decoded("material", "reach_material")),
			f("ring_stiffness", col("ringsteifigkeit")),
			f("progression_geometry", geom("verlauf")),
			f("fk_reach_point_from", lookup("vonhaltungspunktref")),
			f("fk_reach_point_to", lookup("nachhaltungspunktref")),
			f("fk_pipe_profile", lookup("rohrprofilref")),
			f("horizontal_positioning", decoded("lagebestimmung", "reach_horizontal_positioning")),
		})),

		reverse("einstiegshilfe", "access_aid", fields(importStructurePart(), []mapping.Field{
			f("kind", decoded("art", "access_aid_kind")),
		})),
		reverse("trockenwetterrinne", "dryweather_flume", fields(importStructurePart(), []mapping.Field{
			f("material", decoded("material", "dryweather_flume_material")),
		})),
		reverse("deckel", "cover", fields(importStructurePart(), []mapping.Field{
			f("brand", text("fabrikat")),
			f("cover_shape", decoded("deckelform", "cover_cover_shape")),
			f("diameter", col("durchmesser")),
			f("fastening", decoded("verschluss", "cover_fastening")),
			f("level", col("kote")),
			f("material", decoded("material", "cover_material")),
			f("positional_accuracy", decoded("lagegenauigkeit", "cover_positional_accuracy")),
			f("situation_geometry", geom("lage")),
			f("sludge_bucket", decoded("schlammeimer", "cover_sludge_bucket")),
			f("venting", decoded("entlueftung", "cover_venting")),
		})),

		reverse("leapingwehr", "leapingweir", fields(importOverflow(), []mapping.Field{
			f("length", col("laenge")),
			f("opening_shape", decoded("oeffnungsform", "leapingweir_opening_shape")),
			f("width", col("breite")),
		})),
		reverse("streichwehr", "prank_weir", fields(importOverflow(), []mapping.Field{
			f("level_max", col("kotemax")),
			f("level_min", col("kotemin")),
			f("weir_kind", decoded("ueberfallkante", "prank_weir_weir_kind")),
		})),
		reverse("foerderaggregat", "pump", fields(importOverflow(), []mapping.Field{
			f("construction_type", decoded("bauart", "pump_construction_type")),
			f("operating_point", col("arbeitspunkt")),
			f("start_level", col("einschaltpunkt")),
			f("stop_level", col("ausschaltpunkt")),
		})),
	}
}

func dssImport() []mapping.ImportRule {
	return []mapping.ImportRule{
		reverse("hydr_kennwerte", "hydraulic_char_data", fields(importBase(), []mapping.Field{
			f("q_discharge", col("qab")),
			f("status", decoded("status", "hydraulic_char_data_status")),
			f("fk_wastewater_node", lookup("abwasserknotenref")),
		})),
	}
}

func kekImport() []mapping.ImportRule {
	damage := func(extra ...mapping.Field) []mapping.Field {
		return fields(importMeta(), []mapping.Field{
			f("comments", text("anmerkung")),
			f("single_damage_class", decoded("einzelschadenklasse", "damage_single_damage_class")),
			f("distance", col("distanz")),
			f("fk_examination", lookup("untersuchungref")),
		}, extra)
	}

	return []mapping.ImportRule{
		reverse("untersuchung", "examination", fields(importBase(), []mapping.Field{
			f("time_point", col("zeitpunkt")),
			f("status", decoded("status", "maintenance_event_status")),
			f("fk_operating_company", lookup("ausfuehrende_firmaref")),
			f("equipment", text("geraet")),
			f("from_point_identifier", text("vonpunktbezeichnung")),
			f("inspected_length", col("inspizierte_laenge")),
			f("fk_reach_point", lookup("haltungspunktref")),
		})),
		reverse("kanalschaden", "damage_channel", damage(
			f("channel_damage_code", decoded("kanalschadencode", "damage_channel_channel_damage_code")),
		)),
		reverse("normschachtschaden", "damage_manhole", damage(
			f("manhole_damage_code", decoded("schachtschadencode", "damage_manhole_manhole_damage_code")),
			f("manhole_shaft_area", decoded("schachtbereich", "damage_manhole_manhole_shaft_area")),
		)),
	}
}
