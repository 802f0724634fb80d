package mapping

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/moss/pkg/geometry"
	"github.com/Ramsey-B/moss/pkg/models"
	"github.com/Ramsey-B/moss/pkg/report"
	"github.com/Ramsey-B/moss/pkg/selection"
	"github.com/Ramsey-B/moss/pkg/source"
	"github.com/Ramsey-B/moss/pkg/tid"
	"github.com/Ramsey-B/moss/pkg/valuelist"
)

// Options configure a mapping Context.
type Options struct {
	Allocator *tid.Allocator
	Resolver  *valuelist.Resolver
	Reader    source.Reader
	Warnings  *report.Collector
	Logger    ectologger.Logger
	// Subset restricts the export; nil or empty exports everything.
	Subset *selection.Set
	// Global lists base tables exported in full regardless of Subset.
	Global []string
	// Qualified selects selection.Key ids for Subset lookups.
	Qualified    bool
	SRID         int
	DataOwner    string
	DataProvider string
	Now          time.Time
}

// Context carries the state of one mapping run and the position of the
// field being evaluated, for warnings.
type Context struct {
	ctx context.Context
	Options

	global     map[string]bool
	accepted   map[string]bool
	identities map[string]any
	indexes    map[string]map[string][]*models.Record
	records    map[string]*models.Record

	class  string
	field  string
	object string
	tidVal int64
}

func NewContext(ctx context.Context, opts Options) *Context {
	if opts.Allocator == nil {
		opts.Allocator = tid.New()
	}
	if opts.Warnings == nil {
		opts.Warnings = report.NewCollector()
	}
	if opts.Logger == nil {
		opts.Logger = ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	}
	if opts.SRID == 0 {
		opts.SRID = geometry.DefaultSRID
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	c := &Context{
		ctx:        ctx,
		Options:    opts,
		global:     map[string]bool{},
		accepted:   map[string]bool{},
		identities: map[string]any{},
		indexes:    map[string]map[string][]*models.Record{},
		records:    map[string]*models.Record{},
	}
	for _, g := range opts.Global {
		c.global[g] = true
	}
	return c
}

func (c *Context) Context() context.Context {
	return c.ctx
}

// At positions the context on a target class and source object.
func (c *Context) At(class, object string, tidVal int64) {
	c.class = class
	c.object = object
	c.tidVal = tidVal
	c.field = ""
}

func (c *Context) Class() string  { return c.class }
func (c *Context) Field() string  { return c.field }
func (c *Context) Object() string { return c.object }

// TID is the identity of the row being built.
func (c *Context) TID() int64 { return c.tidVal }

// Warn records a data warning at the current position.
func (c *Context) Warn(kind report.WarningKind, format string, args ...any) {
	c.Warnings.Addf(kind, c.class, c.field, c.object, format, args...)
}

// Filtered reports whether a selection restricts the run.
func (c *Context) Filtered() bool {
	return !c.Subset.Empty()
}

// Selected reports whether the object base/id is a member of the subset.
func (c *Context) Selected(base, id string) bool {
	if !c.Filtered() {
		return true
	}
	if c.Qualified {
		return c.Subset.Has(selection.Key(base, id))
	}
	return c.Subset.Has(id)
}

// Allowed reports whether a reference to base/id may be emitted: there is no
// filter, base is global, id is selected or the row was accepted earlier.
func (c *Context) Allowed(base, id string) bool {
	if !c.Filtered() || c.global[base] {
		return true
	}
	return c.Selected(base, id) || c.accepted[base+"|"+id]
}

// Accept records that the row base/id was emitted.
func (c *Context) Accept(base, id string) {
	c.accepted[base+"|"+id] = true
}

func (c *Context) Accepted(base, id string) bool {
	return c.accepted[base+"|"+id]
}

// Global reports whether base is exported in full.
func (c *Context) Global(base string) bool {
	return c.global[base]
}

// SetIdentity binds a transfer TID to the application id it imports as.
func (c *Context) SetIdentity(tidVal any, id any) {
	c.identities[models.ToString(tidVal)] = id
}

// Identity returns the application id bound to a transfer TID.
func (c *Context) Identity(tidVal any) (any, bool) {
	if tidVal == nil {
		return nil, false
	}
	id, ok := c.identities[models.ToString(tidVal)]
	return id, ok
}

// Index returns the records of table grouped by the text value of column.
// Indexes are built once per run.
func (c *Context) Index(table, column string) (map[string][]*models.Record, error) {
	key := table + "." + column
	if idx, ok := c.indexes[key]; ok {
		return idx, nil
	}
	records, err := c.Reader.Rows(c.ctx, table, source.Filter{})
	if err != nil {
		return nil, err
	}
	idx := map[string][]*models.Record{}
	for _, rec := range records {
		if v, ok := rec.Values.String(column); ok {
			idx[v] = append(idx[v], rec)
		}
	}
	c.indexes[key] = idx
	return idx, nil
}

// Referrers returns the records of table whose column references id.
func (c *Context) Referrers(table, column, id string) ([]*models.Record, error) {
	idx, err := c.Index(table, column)
	if err != nil {
		return nil, err
	}
	return idx[id], nil
}

// Record fetches a record of table by id, cached for the run.
func (c *Context) Record(table, id string) (*models.Record, error) {
	key := table + "|" + id
	if rec, ok := c.records[key]; ok {
		return rec, nil
	}
	rec, err := c.Reader.Get(c.ctx, table, id)
	if err != nil {
		return nil, err
	}
	c.records[key] = rec
	return rec, nil
}

// Base returns the root table of the chain of table in the source schema.
func (c *Context) Base(table string) string {
	return c.Reader.Catalog().Base(table)
}
