// Package water holds the rules between the QWAT application schema and the
// SIA405_WASSER_LV95 transfer model.
//
// Every QWAT node becomes a hydraulischer_knoten. Network elements and
// valves additionally become a leitungsknoten subclass referencing that
// hydraulic node, and every pipe fans out into a hydraulischer_strang
// between the hydraulic nodes of its ends and a leitung on that strand.
// Valves are exported as nodes on the pipe; the pipe is not split.
package water

import (
	"github.com/Ramsey-B/moss/pkg/mapping"
	"github.com/Ramsey-B/moss/pkg/rules"
	"github.com/Ramsey-B/moss/pkg/selection"
	"github.com/Ramsey-B/moss/pkg/valuelist"
	"github.com/Ramsey-B/moss/pkg/xtf"
)

const (
	AppSchema       = "qwat_od"
	ValueListSchema = "qwat_vl"

	hydraulicNode   = "hydraulischer_knoten"
	hydraulicStrand = "hydraulischer_strang"
	conduit         = "leitung"
)

var Models = []string{xtf.ModelSIA405Wasser}

func New(model string) *rules.Set {
	return &rules.Set{
		Model:           model,
		ExportModel:     model,
		Family:          "water",
		AppSchema:       AppSchema,
		ValueListSchema: ValueListSchema,
		CodeColumn:      "id",
		Language:        valuelist.French,
		Export: &mapping.ExportSet{
			Rules:     exportRules(),
			Qualified: true,
			Metaattribute: &mapping.Metaattribute{
				Class:            "metaattribute",
				Owner:            "sia405_baseclass_metaattribute",
				DataOwner:        "datenherr",
				DataProvider:     "datenlieferant",
				LastModification: "letzte_aenderung",
			},
		},
		Import: &mapping.ImportSet{
			Rules:      importRules(),
			Identities: identities,
		},
		Edges: Edges,
	}
}

// Edges make a selected pipe require the nodes at both of its ends.
var Edges = []selection.Edge{
	{Name: "pipe_node_a", Table: "pipe", From: "id", To: "fk_node_a", FromBase: "pipe", ToBase: "node"},
	{Name: "pipe_node_b", Table: "pipe", From: "id", To: "fk_node_b", FromBase: "pipe", ToBase: "node"},
}
