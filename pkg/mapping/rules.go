// Package mapping holds the translation rules between the application schema
// and the transfer schema, and the expressions their fields are built from.
//
// A rule maps the records of one source table onto one or more target
// classes. Each target lists its fields; a field is a column of the target
// chain and an Expr computing its value from the source record:
//
//	ExportRule{
//	    Source: "manhole",
//	    Targets: []Target{{
//	        Class: "normschacht",
//	        Fields: []Field{
//	            F("obj_id", OID()),
//	            F("bezeichnung", Text("identifier")),
//	            F("baujahr", Clamp(Col("year_of_construction"), 1800, 2100)),
//	            F("funktion", Coded("function", "manhole_function")),
//	        },
//	    }},
//	}
//
// Fields are spread over the tables of the target chain by the session, so a
// rule names the leaf class only. Rules are evaluated in order; the order of a
// rule set is the order rows are emitted in.
package mapping

import (
	"github.com/Ramsey-B/moss/pkg/errors"
	"github.com/Ramsey-B/moss/pkg/models"
)

// Field assigns the result of Value to the column Name.
type Field struct {
	Name  string
	Value Expr
}

func F(name string, value Expr) Field {
	return Field{Name: name, Value: value}
}

// Predicate filters records.
type Predicate func(c *Context, rec *models.Record) (bool, error)

// Target is one class a source record materialises into.
type Target struct {
	Class string
	// ForClass separates the identity of this target from other targets of
	// the same record.
	ForClass string
	Fields   []Field
	// When skips the target for records it rejects.
	When Predicate
}

type ExportRule struct {
	Source string
	// Scope decides which records are exported under a selection. Nil keeps
	// members of the selection.
	Scope   Predicate
	Targets []Target
	// Metaattribute emits a metaattribute row for every target row.
	Metaattribute bool
}

// Metaattribute describes the audit rows attached to exported rows.
type Metaattribute struct {
	Class string
	// Owner is the column referencing the owning row.
	Owner            string
	DataOwner        string
	DataProvider     string
	LastModification string
	// Source columns of the application rows.
	OwnerSource      string
	ProviderSource   string
	ModifiedSource   string
	Organisation     string
	OrganisationName string
}

// LabelTarget maps labels of one layer onto a text class.
type LabelTarget struct {
	Layer string
	// Source is the application table of the labelled objects.
	Source string
	// Owner is the target class the text references.
	Owner      string
	Class      string
	OwnerField string
}

type ExportSet struct {
	Rules []ExportRule
	// Global bases are exported in full under a selection.
	Global []string
	// Qualified selections hold selection.Key ids.
	Qualified     bool
	Metaattribute *Metaattribute
	Labels        []LabelTarget
}

// Discriminator chooses the target of an import record from a column value.
type Discriminator struct {
	Column  string
	Cases   map[string]Target
	Default string
}

func (d *Discriminator) Choose(rec *models.Record) (Target, bool) {
	v, _ := rec.Values.String(d.Column)
	if t, ok := d.Cases[v]; ok {
		return t, true
	}
	t, ok := d.Cases[d.Default]
	return t, ok
}

type ImportRule struct {
	Source        string
	Scope         Predicate
	Targets       []Target
	Discriminator *Discriminator
}

// IdentityFunc binds every transfer TID of the run to the application id it
// imports as.
type IdentityFunc func(c *Context) error

type ImportSet struct {
	Rules      []ImportRule
	Identities IdentityFunc
}

// Build evaluates the fields of t for rec. Errors carry the class, object
// and field they were raised at.
func Build(c *Context, t Target, rec *models.Record) (models.Row, error) {
	row := make(models.Row, len(t.Fields))
	for _, f := range t.Fields {
		c.field = f.Name
		v, err := f.Value(c, rec)
		if err != nil {
			c.field = ""
			return nil, errors.Wrap(errors.KindMappingError, err, "failed to map value").
				AddClass(t.Class).AddObject(rec.ID()).AddField(f.Name)
		}
		row[f.Name] = v
	}
	c.field = ""
	return row, nil
}

// Selected keeps records that are members of the selection.
func Selected() Predicate {
	return func(c *Context, rec *models.Record) (bool, error) {
		return c.Selected(rec.Base(), rec.ID()), nil
	}
}

// OwnedBy keeps records whose owner, referenced by column, may be referenced.
// Records without owner are dropped.
func OwnedBy(column, table string) Predicate {
	return func(c *Context, rec *models.Record) (bool, error) {
		id, ok := rec.Values.String(column)
		if !ok {
			return !c.Filtered(), nil
		}
		return c.Allowed(c.Base(table), id), nil
	}
}

// Present keeps records where column is not NULL.
func Present(column string) Predicate {
	return func(_ *Context, rec *models.Record) (bool, error) {
		return rec.Values.Has(column), nil
	}
}

// All combines predicates.
func All(preds ...Predicate) Predicate {
	return func(c *Context, rec *models.Record) (bool, error) {
		for _, p := range preds {
			ok, err := p(c, rec)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	}
}
