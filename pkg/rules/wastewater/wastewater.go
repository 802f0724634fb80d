// Package wastewater holds the rules between the QGEP application schema and
// the SIA405 Abwasser family of transfer models (SIA405_ABWASSER_2015_LV95,
// DSS_2015_LV95 and VSA_KEK_2019_LV95).
package wastewater

import (
	"fmt"

	"github.com/Ramsey-B/moss/pkg/hooks"
	"github.com/Ramsey-B/moss/pkg/mapping"
	"github.com/Ramsey-B/moss/pkg/rules"
	"github.com/Ramsey-B/moss/pkg/selection"
	"github.com/Ramsey-B/moss/pkg/valuelist"
	"github.com/Ramsey-B/moss/pkg/xtf"
)

const (
	AppSchema       = "qgep_od"
	ValueListSchema = "qgep_vl"
)

// Models lists the transfer models served by New.
var Models = []string{xtf.ModelSIA405Abwasser, xtf.ModelDSS, xtf.ModelKEK}

// New builds the rule set of model. DSS adds hydraulic characteristics and
// KEK adds examinations with their damages.
func New(model string) *rules.Set {
	exportRules := baseExport()
	importRules := baseImport()
	switch model {
	case xtf.ModelDSS:
		exportRules = append(exportRules, dssExport()...)
		importRules = append(importRules, dssImport()...)
	case xtf.ModelKEK:
		exportRules = append(exportRules, kekExport()...)
		importRules = append(importRules, kekImport()...)
	}

	return &rules.Set{
		Model:           model,
		ExportModel:     model,
		Family:          "wastewater",
		AppSchema:       AppSchema,
		ValueListSchema: ValueListSchema,
		CodeColumn:      "code",
		Language:        valuelist.German,
		Export: &mapping.ExportSet{
			Rules:         exportRules,
			Global:        []string{"organisation", "pipe_profile"},
			Metaattribute: metaattribute,
			Labels:        labels,
		},
		Import: &mapping.ImportSet{
			Rules:      importRules,
			Identities: identities,
		},
		Edges:      Edges,
		PreImport:  PreImport(),
		PostImport: PostImport(AppSchema),
	}
}

var metaattribute = &mapping.Metaattribute{
	Class:            "metaattribute",
	Owner:            "sia405_baseclass_metaattribute",
	DataOwner:        "datenherr",
	DataProvider:     "datenlieferant",
	LastModification: "letzte_aenderung",
	OwnerSource:      "fk_dataowner",
	ProviderSource:   "fk_provider",
	ModifiedSource:   "last_modification",
	Organisation:     "organisation",
	OrganisationName: "identifier",
}

var labels = []mapping.LabelTarget{
	{Layer: "reach", Source: "reach", Owner: "haltung", Class: "haltung_text", OwnerField: "haltungref"},
	{Layer: "wastewater_structure", Source: "wastewater_structure", Owner: "abwasserbauwerk", Class: "abwasserbauwerk_text", OwnerField: "abwasserbauwerkref"},
}

// Edges close a selection of network objects. A reach requires the elements
// its reach points sit on, an element requires its structure and an
// overflow requires the node it discharges to. A selected structure
// contains its elements.
var Edges = []selection.Edge{
	{
		Name: "reach_from", Table: "reach", From: "obj_id", To: "fk_reach_point_from",
		Via: &selection.Via{Table: "reach_point", Key: "obj_id", Column: "fk_wastewater_networkelement"},
	},
	{
		Name: "reach_to", Table: "reach", From: "obj_id", To: "fk_reach_point_to",
		Via: &selection.Via{Table: "reach_point", Key: "obj_id", Column: "fk_wastewater_networkelement"},
	},
	{Name: "element_structure", Table: "wastewater_networkelement", From: "obj_id", To: "fk_wastewater_structure"},
	{Name: "overflow_to", Table: "overflow", From: "fk_wastewater_node", To: "fk_overflow_to"},
	{Name: "structure_elements", Table: "wastewater_networkelement", From: "fk_wastewater_structure", To: "obj_id", Contains: true},
}

// PreImport drops the symbology triggers so the bulk insert does not fire
// them row by row.
func PreImport() []hooks.Step {
	return []hooks.Step{
		{Name: "drop symbology triggers", SQL: "SELECT qgep_sys.drop_symbology_triggers()"},
	}
}

// PostImport restores the triggers and recomputes what they maintain.
func PostImport(appSchema string) []hooks.Step {
	return []hooks.Step{
		{Name: "create symbology triggers", SQL: "SELECT qgep_sys.create_symbology_triggers()"},
		{Name: "main cover", SQL: fmt.Sprintf("SELECT %s.wastewater_structure_update_fk_main_cover('', True)", appSchema)},
		{Name: "main wastewater node", SQL: fmt.Sprintf(
			"UPDATE %[1]s.wastewater_structure ws SET fk_main_wastewater_node = ("+
				"SELECT wn.obj_id FROM %[1]s.wastewater_node wn "+
				"JOIN %[1]s.wastewater_networkelement ne ON ne.obj_id = wn.obj_id "+
				"WHERE ne.fk_wastewater_structure = ws.obj_id ORDER BY wn.obj_id LIMIT 1) "+
				"WHERE ws.fk_main_wastewater_node IS NULL", appSchema)},
		{Name: "node symbology", SQL: fmt.Sprintf("SELECT %s.update_wastewater_node_symbology(NULL, True)", appSchema)},
		{Name: "structure symbology", SQL: fmt.Sprintf("SELECT %s.update_wastewater_structure_symbology(NULL, True)", appSchema)},
		{Name: "structure labels", SQL: fmt.Sprintf("SELECT %s.update_wastewater_structure_label(NULL, True)", appSchema)},
		{Name: "reach point labels", SQL: fmt.Sprintf("SELECT %s.update_reach_point_label(NULL, True)", appSchema)},
		{Name: "network", SQL: "SELECT qgep_network.refresh_network_simple()"},
	}
}
