package fixtures

import (
	"github.com/Ramsey-B/moss/pkg/schema"
	"github.com/Ramsey-B/moss/pkg/valuelist"
)

// QWAT is the drinking water application schema.
func QWAT() *schema.Catalog {
	return build("qwat_od", "int",
		t("node", "id", "", "geometry point", "altitude num"),
		t("network_element", "id", "node", "identification text 50", "fk_status int ->qwat_vl.status",
			"fk_precision int ->qwat_vl.precision", "year int", "remark text"),
		t("hydrant", "id", "network_element", "fk_model_sup int ->qwat_vl.hydrant_model_sup", "pressure_static num", "flow num"),
		t("subscriber", "id", "network_element"),
		t("samplingpoint", "id", "network_element"),
		t("part", "id", "network_element"),
		t("installation", "id", "network_element", "name text 60"),
		t("tank", "id", "installation", "fk_tank_firestorage int ->qwat_vl.tank_firestorage", "storage_total num"),
		t("pump", "id", "installation", "fk_pump_type int ->qwat_vl.pump_type", "rejected_flow num"),

		t("pipe", "id", "", "fk_node_a int ->node", "fk_node_b int ->node",
			"fk_material int ->qwat_vl.pipe_material", "fk_function int ->qwat_vl.pipe_function",
			"fk_status int ->qwat_vl.status", "fk_precision int ->qwat_vl.precision", "year int",
			"remark text", "geometry line"),
		t("valve", "id", "", "identification text 50", "fk_valve_type int ->qwat_vl.valve_type",
			"fk_valve_function int ->qwat_vl.valve_function", "fk_status int ->qwat_vl.status", "year int",
			"remark text", "geometry point", "altitude num", "fk_pipe int ->pipe"),
	)
}

// Wasser is the transfer schema of the drinking water model.
func Wasser() *schema.Catalog {
	return build("pg2ili_wasser", "int",
		t("baseclass", "t_id", "", "t_type text 60 !", "t_ili_tid text 200"),
		t("sia405_baseclass", "t_id", "baseclass", "obj_id text 16 !"),
		t("metaattribute", "t_id", "", "t_seq int", "datenherr text 80 !", "datenlieferant text 80 !", "letzte_aenderung ts",
			"sia405_baseclass_metaattribute int ->sia405_baseclass"),

		t("hydraulischer_knoten", "t_id", "sia405_baseclass", "name_nummer text 40", "geometrie point !",
			"knotentyp text 255", "bemerkung text 80"),
		t("hydraulischer_strang", "t_id", "sia405_baseclass", "name_nummer text 40",
			"von_hydraulischer_knotenref int ->hydraulischer_knoten", "bis_hydraulischer_knotenref int ->hydraulischer_knoten",
			"bemerkung text 80"),
		t("leitungsknoten", "t_id", "sia405_baseclass", "name_nummer text 40", "geometrie point !", "hoehe num",
			"zustand text 255", "lagebestimmung text 255", "einbaujahr int", "bemerkung text 80",
			"hydraulischer_knotenref int ->hydraulischer_knoten"),
		t("hydrant", "t_id", "leitungsknoten", "art text 255", "versorgungsdruck num", "entnahme num"),
		t("absperrorgan", "t_id", "leitungsknoten", "art text 255", "schaltzustand text 255"),
		t("wasserbehaelter", "t_id", "leitungsknoten", "art text 255", "nutzinhalt num"),
		t("foerderanlage", "t_id", "leitungsknoten", "art text 255", "leistung num"),
		t("uebrige", "t_id", "leitungsknoten", "art text 255"),
		t("leitung", "t_id", "sia405_baseclass", "name_nummer text 40", "geometrie line !", "material text 255",
			"funktion text 255", "zustand text 255", "lagebestimmung text 255", "einbaujahr int", "bemerkung text 80",
			"strangref int ->hydraulischer_strang"),
	)
}

// WaterValueLists is a small extract of the qwat_vl value lists.
func WaterValueLists() []valuelist.Entry {
	entry := func(list, code, fr, de string) valuelist.Entry {
		return valuelist.Entry{List: list, Code: code, Labels: map[valuelist.Language]string{valuelist.French: fr, valuelist.German: de}}
	}
	return []valuelist.Entry{
		entry("status", "101", "en service", "in Betrieb"),
		entry("status", "102", "hors service", "ausser Betrieb"),
		entry("status", "103", "abandonné", "tot"),
		entry("precision", "1", "précis", "genau"),
		entry("precision", "2", "imprécis", "ungenau"),
		entry("pipe_material", "1", "fonte ductile", "Guss duktil"),
		entry("pipe_material", "2", "polyéthylène", "Polyethylen"),
		entry("pipe_material", "9", "matériau inconnu au bataillon", ""),
		entry("pipe_function", "4", "conduite de distribution", "Versorgungsleitung"),
		entry("valve_type", "1", "vanne à opercule", "Schieber"),
		entry("valve_function", "1", "ouverte", "offen"),
		entry("valve_function", "2", "fermée", "geschlossen"),
		entry("hydrant_model_sup", "1", "hydrant à colonne", "Ueberflurhydrant"),
		entry("tank_firestorage", "1", "réservoir enterré", "Erdbehaelter"),
		entry("pump_type", "1", "pompe centrifuge", "Kreiselpumpe"),
	}
}
