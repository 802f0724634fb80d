package network

import (
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/moss/pkg/selection"
	"github.com/stretchr/testify/assert"
)

func TestQuery(t *testing.T) {
	repo := NewRepository(nil, "qgep_od", ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}))

	t.Run("direct", func(t *testing.T) {
		query, args := repo.Query(selection.Edge{Table: "overflow", From: "fk_wastewater_node", To: "fk_overflow_to"})
		assert.Equal(t, `SELECT t."fk_wastewater_node"::text AS from_id, t."fk_overflow_to"::text AS to_id FROM "qgep_od"."overflow" t WHERE t."fk_wastewater_node" IS NOT NULL AND t."fk_overflow_to" IS NOT NULL ORDER BY from_id, to_id`, query)
		assert.Empty(t, args)
	})

	t.Run("via", func(t *testing.T) {
		query, _ := repo.Query(selection.Edge{
			Table: "reach",
			From:  "obj_id",
			To:    "fk_reach_point_from",
			Via:   &selection.Via{Table: "reach_point", Key: "obj_id", Column: "fk_wastewater_networkelement"},
		})
		assert.Equal(t, `SELECT t."obj_id"::text AS from_id, v."fk_wastewater_networkelement"::text AS to_id FROM "qgep_od"."reach" t JOIN "qgep_od"."reach_point" v ON v."obj_id" = t."fk_reach_point_from" WHERE t."obj_id" IS NOT NULL AND v."fk_wastewater_networkelement" IS NOT NULL ORDER BY from_id, to_id`, query)
	})
}
