package water

import (
	"github.com/Ramsey-B/moss/pkg/mapping"
)

var (
	f     = mapping.F
	text  = mapping.Text
	col   = mapping.Col
	coded = mapping.Coded
	geom  = mapping.Geom
)

func year(column string) mapping.Expr {
	return mapping.Clamp(mapping.Int(col(column)), 1800, 2100)
}

func hydraulicNodeTarget() mapping.Target {
	return mapping.Target{
		Class:    hydraulicNode,
		ForClass: hydraulicNode,
		Fields: []mapping.Field{
			f("obj_id", mapping.OID()),
			f("name_nummer", text("identification")),
			f("geometrie", geom("geometry")),
			f("knotentyp", mapping.Const("Normalknoten")),
		},
	}
}

// networkNode builds the leitungsknoten target of class for QWAT network
// elements and valves.
func networkNode(class string, extra ...mapping.Field) mapping.Target {
	fs := []mapping.Field{
		f("obj_id", mapping.OID()),
		f("name_nummer", text("identification")),
		f("geometrie", geom("geometry")),
		f("hoehe", col("altitude")),
		f("zustand", coded("fk_status", "status", "leitungsknoten.zustand")),
		f("lagebestimmung", coded("fk_precision", "precision", "leitungsknoten.lagebestimmung")),
		f("einbaujahr", year("year")),
		f("bemerkung", text("remark")),
		f("hydraulischer_knotenref", mapping.SelfFor(hydraulicNode)),
	}
	return mapping.Target{Class: class, Fields: append(fs, extra...)}
}

func single(source string, t mapping.Target) mapping.ExportRule {
	return mapping.ExportRule{Source: source, Targets: []mapping.Target{t}, Metaattribute: true}
}

func exportRules() []mapping.ExportRule {
	return []mapping.ExportRule{
		single("node", hydraulicNodeTarget()),

		single("hydrant", networkNode("hydrant",
			f("art", coded("fk_model_sup", "hydrant_model_sup", "hydrant.art")),
			f("versorgungsdruck", col("pressure_static")),
			f("entnahme", col("flow")),
		)),
		single("tank", networkNode("wasserbehaelter",
			f("art", coded("fk_tank_firestorage", "tank_firestorage", "wasserbehaelter.art")),
			f("nutzinhalt", col("storage_total")),
		)),
		single("pump", networkNode("foerderanlage",
			f("art", coded("fk_pump_type", "pump_type", "foerderanlage.art")),
			f("leistung", col("rejected_flow")),
		)),
		single("subscriber", networkNode("uebrige", f("art", mapping.Const(artSubscriber)))),
		single("samplingpoint", networkNode("uebrige", f("art", mapping.Const(artSamplingPoint)))),
		single("part", networkNode("uebrige", f("art", mapping.Const(artPart)))),

		{
			Source: "valve",
			Targets: []mapping.Target{
				hydraulicNodeTarget(),
				networkNode("absperrorgan",
					f("art", coded("fk_valve_type", "valve_type", "absperrorgan.art")),
					f("schaltzustand", coded("fk_valve_function", "valve_function", "absperrorgan.schaltzustand")),
				),
			},
			Metaattribute: true,
		},

		{
			Source: "pipe",
			Targets: []mapping.Target{
				{
					Class:    hydraulicStrand,
					ForClass: hydraulicStrand,
					Fields: []mapping.Field{
						f("obj_id", mapping.OID()),
						f("von_hydraulischer_knotenref", mapping.Required("fk_node_a", "node", hydraulicNode)),
						f("bis_hydraulischer_knotenref", mapping.Required("fk_node_b", "node", hydraulicNode)),
						f("bemerkung", text("remark")),
					},
				},
				{
					Class:    conduit,
					ForClass: conduit,
					Fields: []mapping.Field{
						f("obj_id", mapping.OID()),
						f("geometrie", geom("geometry")),
						f("material", coded("fk_material", "pipe_material", "leitung.material")),
						f("funktion", coded("fk_function", "pipe_function", "leitung.funktion")),
						f("zustand", coded("fk_status", "status", "leitung.zustand")),
						f("lagebestimmung", coded("fk_precision", "precision", "leitung.lagebestimmung")),
						f("einbaujahr", year("year")),
						f("bemerkung", text("remark")),
						f("strangref", mapping.SelfFor(hydraulicStrand)),
					},
				},
			},
			Metaattribute: true,
		},
	}
}
