package source

import (
	"context"
	"testing"

	"github.com/Ramsey-B/moss/internal/fixtures"
	"github.com/Ramsey-B/moss/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryReaderJoinsChain(t *testing.T) {
	r := NewMemoryReader(fixtures.QGEP())
	require.NoError(t, r.InsertChain("manhole", models.Row{
		"obj_id": "ch13p7mzMH000002", "identifier": "MH2", "function": "4532", "year_of_construction": int64(1990),
	}))
	require.NoError(t, r.InsertChain("manhole", models.Row{
		"obj_id": "ch13p7mzMH000001", "identifier": "MH1",
	}))
	require.NoError(t, r.InsertChain("special_structure", models.Row{
		"obj_id": "ch13p7mzSS000001", "identifier": "SB1",
	}))

	records, err := r.Rows(context.Background(), "manhole", Filter{})
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "ch13p7mzMH000001", records[0].ID())
	assert.Equal(t, "wastewater_structure", records[0].Base())
	assert.Equal(t, []string{"wastewater_structure", "manhole"}, records[0].Chain)

	second := records[1]
	assert.Equal(t, "MH2", second.Values["identifier"])
	assert.Equal(t, "4532", second.Values["function"])
	assert.Equal(t, int64(1990), second.Values["year_of_construction"])

	structures, err := r.Rows(context.Background(), "wastewater_structure", Filter{})
	require.NoError(t, err)
	assert.Len(t, structures, 3)
}

func TestMemoryReaderFilter(t *testing.T) {
	r := NewMemoryReader(fixtures.QGEP())
	r.Insert("organisation", models.Row{"obj_id": "org-1", "identifier": "Acme"}).
		Insert("organisation", models.Row{"obj_id": "org-2", "identifier": "Other"})

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{name: "no filter", filter: Filter{}, want: []string{"org-1", "org-2"}},
		{name: "one id", filter: Filter{IDs: []string{"org-2"}}, want: []string{"org-2"}},
		{name: "empty ids match nothing", filter: Filter{IDs: []string{}}, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := r.Rows(context.Background(), "organisation", tt.filter)
			require.NoError(t, err)
			ids := []string{}
			for _, rec := range records {
				ids = append(ids, rec.ID())
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestMemoryReaderGet(t *testing.T) {
	r := NewMemoryReader(fixtures.QGEP())
	r.Insert("organisation", models.Row{"obj_id": "org-1", "identifier": "Acme"})

	rec, err := r.Get(context.Background(), "organisation", "org-1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "Acme", rec.Values["identifier"])

	rec, err = r.Get(context.Background(), "organisation", "missing")
	require.NoError(t, err)
	assert.Nil(t, rec)

	_, err = r.Rows(context.Background(), "unknown", Filter{})
	assert.Error(t, err)
}

func TestMemoryReaderSkipsIncompleteChain(t *testing.T) {
	r := NewMemoryReader(fixtures.QGEP())
	r.Insert("wastewater_structure", models.Row{"obj_id": "ws-1"})

	records, err := r.Rows(context.Background(), "manhole", Filter{})
	require.NoError(t, err)
	assert.Empty(t, records)
}
