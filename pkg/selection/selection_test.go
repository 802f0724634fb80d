package selection

import (
	"context"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/moss/pkg/models"
	"github.com/Ramsey-B/moss/pkg/schema"
	"github.com/Ramsey-B/moss/pkg/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

// network: MH1 contains N1 and N3, R runs from N1 to N2, N2 overflows to N4
func testGraph() *Graph {
	g := NewGraph()
	g.AddRequires("R", "N1")
	g.AddRequires("R", "N2")
	g.AddRequires("N1", "MH1")
	g.AddRequires("N3", "MH1")
	g.AddRequires("N2", "N4")
	g.AddContains("MH1", "N1")
	g.AddContains("MH1", "N3")
	return g
}

func TestCloseReach(t *testing.T) {
	g := NewGraph()
	g.AddRequires("R", "N1")
	g.AddRequires("R", "N2")

	closed := Close(NewSet("R"), g)
	assert.Equal(t, []string{"N1", "N2", "R"}, closed.IDs())
	assert.True(t, closed.Seed("R"))
	assert.False(t, closed.Seed("N1"))
}

func TestCloseStructurePolicy(t *testing.T) {
	g := testGraph()

	t.Run("pulled in structure does not bring its elements", func(t *testing.T) {
		closed := Close(NewSet("R"), g)
		assert.Equal(t, []string{"MH1", "N1", "N2", "N4", "R"}, closed.IDs())
		assert.False(t, closed.Has("N3"))
	})

	t.Run("selected structure brings its elements", func(t *testing.T) {
		closed := Close(NewSet("MH1"), g)
		assert.Equal(t, []string{"MH1", "N1", "N3"}, closed.IDs())
	})
}

func TestCloseIsFixpoint(t *testing.T) {
	g := testGraph()
	for _, seed := range [][]string{{"R"}, {"MH1"}, {"N2"}, {"R", "MH1"}, {}} {
		once := Close(NewSet(seed...), g)
		twice := Close(once, g)
		assert.True(t, once.Equal(twice), "seed %v", seed)
		assert.Equal(t, once.IDs(), twice.IDs())
	}
}

func TestCloseCycle(t *testing.T) {
	g := NewGraph()
	g.AddRequires("A", "B")
	g.AddRequires("B", "A")
	assert.Equal(t, []string{"A", "B"}, Close(NewSet("A"), g).IDs())
}

func TestEmptySet(t *testing.T) {
	var nilSet *Set
	assert.True(t, nilSet.Empty())
	assert.True(t, NewSet().Empty())
	assert.False(t, nilSet.Has("x"))
	assert.Equal(t, "node:12", Key("node", "12"))
}

func testCatalog(t *testing.T) *schema.Catalog {
	c, err := schema.NewCatalog("qgep_od",
		&schema.EntityDescriptor{Table: "reach", PrimaryKey: "obj_id", Columns: []schema.Column{
			{Name: "obj_id", Kind: schema.KindText},
			{Name: "fk_reach_point_from", Kind: schema.KindText, Nullable: true},
			{Name: "fk_reach_point_to", Kind: schema.KindText, Nullable: true},
		}},
		&schema.EntityDescriptor{Table: "reach_point", PrimaryKey: "obj_id", Columns: []schema.Column{
			{Name: "obj_id", Kind: schema.KindText},
			{Name: "fk_wastewater_networkelement", Kind: schema.KindText, Nullable: true},
		}},
	)
	require.NoError(t, err)
	return c
}

func TestLoadGraphFromReader(t *testing.T) {
	reader := source.NewMemoryReader(testCatalog(t))
	reader.Insert("reach", models.Row{"obj_id": "R", "fk_reach_point_from": "RP1", "fk_reach_point_to": "RP2"})
	reader.Insert("reach_point", models.Row{"obj_id": "RP1", "fk_wastewater_networkelement": "N1"})
	reader.Insert("reach_point", models.Row{"obj_id": "RP2", "fk_wastewater_networkelement": "N2"})

	edges := []Edge{
		{Name: "reach_from", Table: "reach", From: "obj_id", To: "fk_reach_point_from", Via: &Via{Table: "reach_point", Key: "obj_id", Column: "fk_wastewater_networkelement"}},
		{Name: "reach_to", Table: "reach", From: "obj_id", To: "fk_reach_point_to", Via: &Via{Table: "reach_point", Key: "obj_id", Column: "fk_wastewater_networkelement"}},
	}

	g, err := LoadGraph(context.Background(), NewReaderEdges(reader), edges, testLogger())
	require.NoError(t, err)
	assert.Equal(t, 2, g.Len())
	assert.Equal(t, []string{"N1", "N2", "R"}, Close(NewSet("R"), g).IDs())
}

func TestLoadGraphQualified(t *testing.T) {
	c, err := schema.NewCatalog("qwat_od",
		&schema.EntityDescriptor{Table: "pipe", PrimaryKey: "id", Columns: []schema.Column{
			{Name: "id", Kind: schema.KindInteger},
			{Name: "fk_node_a", Kind: schema.KindInteger},
		}},
	)
	require.NoError(t, err)
	reader := source.NewMemoryReader(c)
	reader.Insert("pipe", models.Row{"id": int64(7), "fk_node_a": int64(7)})

	g, err := LoadGraph(context.Background(), NewReaderEdges(reader),
		[]Edge{{Name: "pipe_a", Table: "pipe", From: "id", To: "fk_node_a", FromBase: "pipe", ToBase: "node"}}, testLogger())
	require.NoError(t, err)
	assert.Equal(t, []string{"node:7"}, g.Requires["pipe:7"])
}
