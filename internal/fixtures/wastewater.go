package fixtures

import (
	"github.com/Ramsey-B/moss/pkg/schema"
	"github.com/Ramsey-B/moss/pkg/valuelist"
)

var meta = []string{"last_modification ts", "fk_dataowner text ->organisation", "fk_provider text ->organisation"}

func withMeta(columns ...string) []string {
	return append(columns, meta...)
}

// QGEP is the wastewater application schema.
func QGEP() *schema.Catalog {
	return build("qgep_od", "text",
		t("organisation", "obj_id", "", withMeta("identifier text 80", "remark text 255", "uid text 12")...),
		t("pipe_profile", "obj_id", "", withMeta("identifier text 20", "remark text 80", "height_width_ratio num",
			"profile_type int ->qgep_vl.pipe_profile_profile_type")...),

		t("wastewater_structure", "obj_id", "", withMeta("identifier text 20", "remark text 255",
			"accessibility int ->qgep_vl.wastewater_structure_accessibility",
			"status int ->qgep_vl.wastewater_structure_status",
			"year_of_construction int",
			"fk_owner text ->organisation", "fk_operator text ->organisation",
			"fk_main_cover text ->cover", "detail_geometry_geometry curvepolygon")...),
		t("manhole", "obj_id", "wastewater_structure", "function int ->qgep_vl.manhole_function", "dimension1 int", "dimension2 int",
			"material int ->qgep_vl.manhole_material", "surface_inflow int ->qgep_vl.manhole_surface_inflow"),
		t("special_structure", "obj_id", "wastewater_structure", "function int ->qgep_vl.special_structure_function",
			"bypass int ->qgep_vl.special_structure_bypass"),
		t("discharge_point", "obj_id", "wastewater_structure", "relevance int ->qgep_vl.discharge_point_relevance",
			"terrain_level num", "waterlevel_hydraulic num"),
		t("infiltration_installation", "obj_id", "wastewater_structure", "kind int ->qgep_vl.infiltration_installation_kind",
			"absorption_capacity num"),

		t("wastewater_networkelement", "obj_id", "", withMeta("identifier text 20", "remark text 255",
			"fk_wastewater_structure text ->wastewater_structure")...),
		t("wastewater_node", "obj_id", "wastewater_networkelement", "backflow_level num", "bottom_level num", "situation_geometry point"),
		t("reach", "obj_id", "wastewater_networkelement", "clear_height int", "length_effective num",
			"material int ->qgep_vl.reach_material", "ring_stiffness num", "progression_geometry compoundcurve",
			"fk_reach_point_from text ->reach_point", "fk_reach_point_to text ->reach_point",
			"fk_pipe_profile text ->pipe_profile", "horizontal_positioning int ->qgep_vl.reach_horizontal_positioning"),
		t("reach_point", "obj_id", "", withMeta("identifier text 20", "remark text 255", "level num",
			"outlet_shape int ->qgep_vl.reach_point_outlet_shape", "position_of_connection int",
			"situation_geometry point", "fk_wastewater_networkelement text ->wastewater_networkelement")...),

		t("structure_part", "obj_id", "", withMeta("identifier text 20", "remark text 255",
			"renovation_demand int ->qgep_vl.structure_part_renovation_demand",
			"fk_wastewater_structure text ->wastewater_structure")...),
		t("cover", "obj_id", "structure_part", "brand text 50", "cover_shape int ->qgep_vl.cover_cover_shape", "diameter int",
			"fastening int ->qgep_vl.cover_fastening", "level num", "material int ->qgep_vl.cover_material",
			"positional_accuracy int ->qgep_vl.cover_positional_accuracy", "situation_geometry point",
			"sludge_bucket int ->qgep_vl.cover_sludge_bucket", "venting int ->qgep_vl.cover_venting"),
		t("access_aid", "obj_id", "structure_part", "kind int ->qgep_vl.access_aid_kind"),
		t("dryweather_flume", "obj_id", "structure_part", "material int ->qgep_vl.dryweather_flume_material"),

		t("overflow", "obj_id", "", withMeta("identifier text 20", "remark text 255",
			"actuation int ->qgep_vl.overflow_actuation", "function int ->qgep_vl.overflow_function",
			"fk_wastewater_node text ->wastewater_node", "fk_overflow_to text ->wastewater_node")...),
		t("leapingweir", "obj_id", "overflow", "length num", "opening_shape int ->qgep_vl.leapingweir_opening_shape", "width num"),
		t("prank_weir", "obj_id", "overflow", "level_max num", "level_min num", "weir_kind int ->qgep_vl.prank_weir_weir_kind"),
		t("pump", "obj_id", "overflow", "construction_type int ->qgep_vl.pump_construction_type", "operating_point num",
			"start_level num", "stop_level num"),

		t("hydraulic_char_data", "obj_id", "", withMeta("identifier text 20", "remark text 255", "q_discharge num",
			"status int ->qgep_vl.hydraulic_char_data_status", "fk_wastewater_node text ->wastewater_node")...),

		t("maintenance_event", "obj_id", "", withMeta("identifier text 20", "remark text 255", "time_point ts",
			"status int ->qgep_vl.maintenance_event_status", "fk_operating_company text ->organisation")...),
		t("examination", "obj_id", "maintenance_event", "equipment text 50", "from_point_identifier text 41",
			"inspected_length num", "fk_reach_point text ->reach_point"),
		t("damage", "obj_id", "", withMeta("comments text 100", "single_damage_class int ->qgep_vl.damage_single_damage_class",
			"distance num", "fk_examination text ->examination")...),
		t("damage_channel", "obj_id", "damage", "channel_damage_code int ->qgep_vl.damage_channel_channel_damage_code"),
		t("damage_manhole", "obj_id", "damage", "manhole_damage_code int ->qgep_vl.damage_manhole_manhole_damage_code",
			"manhole_shaft_area int ->qgep_vl.damage_manhole_manhole_shaft_area"),
	)
}

// Abwasser is the transfer schema of the wastewater models.
func Abwasser() *schema.Catalog {
	return build("pg2ili_abwasser", "int",
		t("baseclass", "t_id", "", "t_type text 60 !", "t_ili_tid text 200"),
		t("sia405_baseclass", "t_id", "baseclass", "obj_id text 16 !"),
		t("metaattribute", "t_id", "", "t_seq int", "datenherr text 80 !", "datenlieferant text 80 !", "letzte_aenderung ts",
			"sia405_baseclass_metaattribute int ->sia405_baseclass"),

		t("organisation", "t_id", "sia405_baseclass", "bezeichnung text 80 !", "bemerkung text 80", "auid text 12"),
		t("rohrprofil", "t_id", "sia405_baseclass", "bezeichnung text 20", "bemerkung text 80", "hoehenbreitenverhaeltnis num", "profiltyp text 255"),

		t("abwasserbauwerk", "t_id", "sia405_baseclass", "bezeichnung text 20", "bemerkung text 80", "zugaenglichkeit text 255",
			"status text 255", "baujahr int", "eigentuemerref int ->organisation", "betreiberref int ->organisation",
			"detailgeometrie curvepolygon"),
		t("normschacht", "t_id", "abwasserbauwerk", "funktion text 255", "dimension1 int", "dimension2 int", "material text 255",
			"oberflaechenzulauf text 255"),
		t("spezialbauwerk", "t_id", "abwasserbauwerk", "funktion text 255", "bypass text 255"),
		t("einleitstelle", "t_id", "abwasserbauwerk", "relevanz text 255", "terrainkote num", "wasserspiegel_hydraulik num"),
		t("versickerungsanlage", "t_id", "abwasserbauwerk", "art text 255", "schluckvermoegen num"),

		t("abwassernetzelement", "t_id", "sia405_baseclass", "bezeichnung text 20", "bemerkung text 80",
			"abwasserbauwerkref int ->abwasserbauwerk"),
		t("abwasserknoten", "t_id", "abwassernetzelement", "rueckstaukote num", "sohlenkote num", "lage point"),
		t("haltung", "t_id", "abwassernetzelement", "lichte_hoehe int", "laengeeffektiv num", "material text 255",
			"ringsteifigkeit num", "verlauf compoundcurve", "vonhaltungspunktref int ->haltungspunkt",
			"nachhaltungspunktref int ->haltungspunkt", "rohrprofilref int ->rohrprofil", "lagebestimmung text 255"),
		t("haltungspunkt", "t_id", "sia405_baseclass", "bezeichnung text 20", "bemerkung text 80", "kote num",
			"auslaufform text 255", "lage_anschluss int", "lage point", "abwassernetzelementref int ->abwassernetzelement"),

		t("bauwerksteil", "t_id", "sia405_baseclass", "bezeichnung text 20", "bemerkung text 80", "instandstellung text 255",
			"abwasserbauwerkref int ->abwasserbauwerk"),
		t("deckel", "t_id", "bauwerksteil", "fabrikat text 50", "deckelform text 255", "durchmesser int", "verschluss text 255",
			"kote num", "material text 255", "lagegenauigkeit text 255", "lage point", "schlammeimer text 255", "entlueftung text 255"),
		t("einstiegshilfe", "t_id", "bauwerksteil", "art text 255"),
		t("trockenwetterrinne", "t_id", "bauwerksteil", "material text 255"),

		t("ueberlauf", "t_id", "sia405_baseclass", "bezeichnung text 20", "bemerkung text 80", "antrieb text 255",
			"funktion text 255", "abwasserknotenref int ->abwasserknoten", "ueberlaufnachref int ->abwasserknoten"),
		t("leapingwehr", "t_id", "ueberlauf", "laenge num", "oeffnungsform text 255", "breite num"),
		t("streichwehr", "t_id", "ueberlauf", "kotemax num", "kotemin num", "ueberfallkante text 255"),
		t("foerderaggregat", "t_id", "ueberlauf", "bauart text 255", "arbeitspunkt num", "einschaltpunkt num", "ausschaltpunkt num"),

		t("hydr_kennwerte", "t_id", "sia405_baseclass", "bezeichnung text 20", "bemerkung text 80", "qab num",
			"status text 255", "abwasserknotenref int ->abwasserknoten"),

		t("erhaltungsereignis", "t_id", "sia405_baseclass", "bezeichnung text 20", "bemerkung text 80", "zeitpunkt ts",
			"status text 255", "ausfuehrende_firmaref int ->organisation"),
		t("untersuchung", "t_id", "erhaltungsereignis", "geraet text 50", "vonpunktbezeichnung text 41",
			"inspizierte_laenge num", "haltungspunktref int ->haltungspunkt"),
		t("schaden", "t_id", "sia405_baseclass", "anmerkung text 100", "einzelschadenklasse text 255", "distanz num",
			"untersuchungref int ->untersuchung"),
		t("kanalschaden", "t_id", "schaden", "kanalschadencode text 255"),
		t("normschachtschaden", "t_id", "schaden", "schachtschadencode text 255", "schachtbereich text 255"),

		t("textpos", "t_id", "", "t_type text 60 !", "t_ili_tid text 200", "textpos point !", "textori num", "texthali text 255", "textvali text 255"),
		t("sia405_textpos", "t_id", "textpos", "plantyp text 255 !", "textinhalt text 80 !", "bemerkung text 80"),
		t("haltung_text", "t_id", "sia405_textpos", "haltungref int ->haltung"),
		t("abwasserbauwerk_text", "t_id", "sia405_textpos", "abwasserbauwerkref int ->abwasserbauwerk"),
	)
}

// WastewaterValueLists is a small extract of the qgep_vl value lists.
func WastewaterValueLists() []valuelist.Entry {
	entry := func(list, code, de, fr string) valuelist.Entry {
		return valuelist.Entry{List: list, Code: code, Labels: map[valuelist.Language]string{valuelist.German: de, valuelist.French: fr}}
	}
	return []valuelist.Entry{
		entry("manhole_function", "4532", "Einstiegschacht", "chambre_avec_acces"),
		entry("manhole_function", "8736", "Kontrollschacht", "chambre_de_controle"),
		entry("manhole_material", "4540", "Beton", "beton"),
		entry("wastewater_structure_status", "8493", "in_Betrieb", "en_service"),
		entry("wastewater_structure_status", "6530", "ausser_Betrieb", "hors_service"),
		entry("wastewater_structure_accessibility", "3444", "ueberdeckt", "couvert"),
		entry("reach_material", "5081", "Kunststoff_Polyethylen", "matiere_synthetique_polyethylene"),
		entry("reach_material", "3016", "unbekannt", "inconnu"),
		entry("reach_horizontal_positioning", "5378", "genau", "precis"),
		entry("reach_point_outlet_shape", "5374", "abgerundet", "arrondi"),
		entry("cover_material", "233", "Guss", "fonte"),
		entry("cover_cover_shape", "3499", "rund", "rond"),
		entry("overflow_function", "217", "Notentlastung", "deversoir_de_secours"),
		entry("pipe_profile_profile_type", "3350", "Kreisprofil", "circulaire"),
		entry("access_aid_kind", "243", "Leiter", "echelle"),
		entry("damage_channel_channel_damage_code", "3900", "BAA", "BAA"),
		entry("maintenance_event_status", "2550", "ausgefuehrt", "accompli"),
	}
}
