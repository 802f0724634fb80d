package water

import (
	"github.com/Ramsey-B/moss/pkg/mapping"
	"github.com/Ramsey-B/moss/pkg/models"
	"github.com/Ramsey-B/moss/pkg/source"
)

// Values of uebrige.art written for the QWAT node kinds without a class of
// their own.
const (
	artSubscriber    = "Hausanschluss"
	artSamplingPoint = "Probenahmestelle"
	artPart          = "Formstueck"
)

// identities imports every row under its transfer TID. A hydraulic node
// referenced by a network node takes the TID of that network node, so both
// become the same QWAT node.
func identities(c *mapping.Context) error {
	ctx := c.Context()

	nodes, err := c.Reader.Rows(ctx, "leitungsknoten", source.Filter{})
	if err != nil {
		return err
	}
	for _, rec := range nodes {
		id := rec.Values[rec.IDColumn]
		c.SetIdentity(id, id)
		if hk := rec.Values["hydraulischer_knotenref"]; hk != nil {
			c.SetIdentity(hk, id)
		}
	}

	hydraulic, err := c.Reader.Rows(ctx, hydraulicNode, source.Filter{})
	if err != nil {
		return err
	}
	for _, rec := range hydraulic {
		id := rec.Values[rec.IDColumn]
		if _, bound := c.Identity(id); !bound {
			c.SetIdentity(id, id)
		}
	}

	conduits, err := c.Reader.Rows(ctx, conduit, source.Filter{})
	if err != nil {
		return err
	}
	for _, rec := range conduits {
		id := rec.Values[rec.IDColumn]
		c.SetIdentity(id, id)
	}
	return nil
}

// unlinked keeps hydraulic nodes no network node refers to. The others are
// imported through their network node.
func unlinked(c *mapping.Context, rec *models.Record) (bool, error) {
	linked, err := c.Referrers("leitungsknoten", "hydraulischer_knotenref", rec.ID())
	if err != nil {
		return false, err
	}
	return len(linked) == 0, nil
}

// strandNode resolves the QWAT node at one end of the strand of a conduit.
func strandNode(column string) mapping.Expr {
	return func(c *mapping.Context, rec *models.Record) (any, error) {
		strand, ok := rec.Values.String("strangref")
		if !ok {
			return nil, nil
		}
		s, err := c.Record(hydraulicStrand, strand)
		if err != nil || s == nil {
			return nil, err
		}
		return mapping.Lookup(column)(c, s)
	}
}

func importNode(class string, extra ...mapping.Field) mapping.Target {
	fs := []mapping.Field{
		f("id", mapping.Identity()),
		f("geometry", geom("geometrie")),
		f("altitude", col("hoehe")),
		f("identification", text("name_nummer")),
		f("fk_status", mapping.Decoded("zustand", "status", "leitungsknoten.zustand", true)),
		f("fk_precision", mapping.Decoded("lagebestimmung", "precision", "leitungsknoten.lagebestimmung", true)),
		f("year", col("einbaujahr")),
		f("remark", text("bemerkung")),
	}
	return mapping.Target{Class: class, Fields: append(fs, extra...)}
}

func importRules() []mapping.ImportRule {
	return []mapping.ImportRule{
		{
			Source: hydraulicNode,
			Scope:  unlinked,
			Targets: []mapping.Target{{
				Class: "node",
				Fields: []mapping.Field{
					f("id", mapping.Identity()),
					f("geometry", geom("geometrie")),
				},
			}},
		},
		{Source: "hydrant", Targets: []mapping.Target{importNode("hydrant",
			f("fk_model_sup", mapping.Decoded("art", "hydrant_model_sup", "hydrant.art", true)),
			f("pressure_static", col("versorgungsdruck")),
			f("flow", col("entnahme")),
		)}},
		{Source: "wasserbehaelter", Targets: []mapping.Target{importNode("tank",
			f("fk_tank_firestorage", mapping.Decoded("art", "tank_firestorage", "wasserbehaelter.art", true)),
			f("storage_total", col("nutzinhalt")),
		)}},
		{Source: "foerderanlage", Targets: []mapping.Target{importNode("pump",
			f("fk_pump_type", mapping.Decoded("art", "pump_type", "foerderanlage.art", true)),
			f("rejected_flow", col("leistung")),
		)}},
		{
			Source: "uebrige",
			Discriminator: &mapping.Discriminator{
				Column: "art",
				Cases: map[string]mapping.Target{
					artSubscriber:    importNode("subscriber"),
					artSamplingPoint: importNode("samplingpoint"),
					artPart:          importNode("part"),
				},
				Default: artPart,
			},
		},
		{Source: "absperrorgan", Targets: []mapping.Target{{
			Class: "valve",
			Fields: []mapping.Field{
				f("id", mapping.Identity()),
				f("identification", text("name_nummer")),
				f("fk_valve_type", mapping.Decoded("art", "valve_type", "absperrorgan.art", true)),
				f("fk_valve_function", mapping.Decoded("schaltzustand", "valve_function", "absperrorgan.schaltzustand", true)),
				f("fk_status", mapping.Decoded("zustand", "status", "leitungsknoten.zustand", true)),
				f("year", col("einbaujahr")),
				f("remark", text("bemerkung")),
				f("geometry", geom("geometrie")),
				f("altitude", col("hoehe")),
			},
		}}},
		{Source: conduit, Targets: []mapping.Target{{
			Class: "pipe",
			Fields: []mapping.Field{
				f("id", mapping.Identity()),
				f("fk_node_a", strandNode("von_hydraulischer_knotenref")),
				f("fk_node_b", strandNode("bis_hydraulischer_knotenref")),
				f("fk_material", mapping.Decoded("material", "pipe_material", "leitung.material", true)),
				f("fk_function", mapping.Decoded("funktion", "pipe_function", "leitung.funktion", true)),
				f("fk_status", mapping.Decoded("zustand", "status", "leitung.zustand", true)),
				f("fk_precision", mapping.Decoded("lagebestimmung", "precision", "leitung.lagebestimmung", true)),
				f("year", col("einbaujahr")),
				f("remark", text("bemerkung")),
				f("geometry", geom("geometrie")),
			},
		}}},
	}
}
