package exporter

import (
	"github.com/Ramsey-B/moss/pkg/mapping"
	"github.com/Ramsey-B/moss/pkg/models"
	"github.com/Ramsey-B/moss/pkg/tid"
)

// metaattribute stages the audit row of the target row t built from rec.
// Classes outside the hierarchy the metaattribute references get none.
func (e *Exporter) metaattribute(mc *mapping.Context, rec *models.Record, target mapping.Target, t int64) error {
	m := e.opts.Rules.Metaattribute
	if m == nil {
		return nil
	}
	catalog := e.opts.Session.Catalog()
	fk, err := catalog.Relation(m.Class, m.Owner)
	if err != nil {
		return err
	}
	if !catalog.IsA(target.Class, fk.RefTable) {
		return nil
	}
	entity, err := catalog.Entity(m.Class)
	if err != nil {
		return err
	}

	forClass := m.Class
	if target.ForClass != "" {
		forClass += ":" + target.ForClass
	}
	metaTID := e.opts.Allocator.For(rec, forClass)
	mc.At(m.Class, rec.ID(), metaTID)

	row := models.Row{
		entity.PrimaryKey: metaTID,
		m.Owner:           t,
	}
	if m.DataOwner != "" {
		owner, err := e.organisation(mc, rec, m, m.OwnerSource, e.opts.DataOwner)
		if err != nil {
			return err
		}
		row[m.DataOwner] = owner
	}
	if m.DataProvider != "" {
		provider, err := e.organisation(mc, rec, m, m.ProviderSource, e.opts.DataProvider)
		if err != nil {
			return err
		}
		row[m.DataProvider] = provider
	}
	if m.LastModification != "" {
		row[m.LastModification] = mc.Now
		if m.ModifiedSource != "" && rec.Values.Has(m.ModifiedSource) {
			row[m.LastModification] = rec.Values[m.ModifiedSource]
		}
	}
	if _, ok := entity.Column("t_seq"); ok {
		row["t_seq"] = 0
	}
	if _, ok := entity.Column("t_type"); ok {
		row["t_type"] = m.Class
	}
	if _, ok := entity.Column("t_ili_tid"); ok {
		row["t_ili_tid"] = tid.OID(metaTID)
	}

	return e.opts.Session.AddChain(m.Class, row, rec.ID())
}

// organisation names the organisation referenced by column, falling back to
// the configured default.
func (e *Exporter) organisation(mc *mapping.Context, rec *models.Record, m *mapping.Metaattribute, column, fallback string) (string, error) {
	if column != "" && m.Organisation != "" {
		if id, ok := rec.Values.String(column); ok {
			org, err := mc.Record(m.Organisation, id)
			if err != nil {
				return "", err
			}
			if org != nil {
				if name, ok := org.Values.String(m.OrganisationName); ok && name != "" {
					return name, nil
				}
			}
		}
	}
	if fallback != "" {
		return fallback, nil
	}
	return unknownOrganisation, nil
}
