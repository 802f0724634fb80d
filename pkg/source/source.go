// Package source reads rows of a reflected schema through their whole
// inheritance chain.
package source

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/Ramsey-B/moss/pkg/geometry"
	"github.com/Ramsey-B/moss/pkg/models"
	"github.com/Ramsey-B/moss/pkg/schema"
)

// Filter restricts the rows returned by Reader.Rows. An empty filter
// returns every row.
type Filter struct {
	// IDs limits the result to these primary keys.
	IDs []string
}

func (f Filter) Empty() bool {
	return f.IDs == nil
}

// Reader is the read only session on one schema.
type Reader interface {
	Catalog() *schema.Catalog
	// Rows returns the records of table ordered by primary key. Each record
	// carries the columns of every table of the chain.
	Rows(ctx context.Context, table string, filter Filter) ([]*models.Record, error)
	// Get returns one record or nil when it does not exist.
	Get(ctx context.Context, table, id string) (*models.Record, error)
}

// normalize converts a driver value to the representation used by Row.
func normalize(col schema.Column, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch col.Kind {
	case schema.KindGeometry:
		switch t := v.(type) {
		case []byte:
			if len(t) == 0 {
				return nil, nil
			}
			return geometry.Decode(t)
		case geometry.Value:
			return t, nil
		}
	case schema.KindNumeric:
		return models.ToFloat(v)
	case schema.KindInteger:
		switch t := v.(type) {
		case []byte:
			return strconv.ParseInt(strings.TrimSpace(string(t)), 10, 64)
		case string:
			return strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		}
		return models.AnyToType[int64](v)
	case schema.KindBoolean:
		switch t := v.(type) {
		case []byte:
			return strconv.ParseBool(string(t))
		case string:
			return strconv.ParseBool(t)
		}
	case schema.KindText:
		return models.ToString(v), nil
	case schema.KindDate, schema.KindTimestamp:
		if t, ok := v.(time.Time); ok {
			return t, nil
		}
		return models.ToString(v), nil
	}
	if b, ok := v.([]byte); ok {
		return string(b), nil
	}
	return v, nil
}
