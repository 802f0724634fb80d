package exporter

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/Ramsey-B/moss/pkg/errors"
	"github.com/Ramsey-B/moss/pkg/geometry"
	"github.com/Ramsey-B/moss/pkg/mapping"
	"github.com/Ramsey-B/moss/pkg/models"
	"github.com/Ramsey-B/moss/pkg/report"
	"github.com/Ramsey-B/moss/pkg/tid"
)

const defaultPlanType = "Leitungskataster"

// Label is the position of an object label drawn on a plan.
type Label struct {
	Layer    string
	ObjID    string
	Text     string
	Rotation float64
	PlanType string
	Point    orb.Point
}

// LoadLabels reads point features with layer, obj_id, text, rotation and
// plantype properties.
func LoadLabels(r io.Reader) ([]Label, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(errors.KindInvalidInput, err, "failed to read labels")
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, errors.Wrap(errors.KindInvalidInput, err, "invalid labels file")
	}

	labels := make([]Label, 0, len(fc.Features))
	for i, f := range fc.Features {
		point, ok := f.Geometry.(orb.Point)
		if !ok {
			return nil, errors.InvalidInput("label %d is not a point", i)
		}
		l := Label{
			Layer:    f.Properties.MustString("layer", ""),
			ObjID:    f.Properties.MustString("obj_id", ""),
			Text:     f.Properties.MustString("text", ""),
			Rotation: f.Properties.MustFloat64("rotation", 0),
			PlanType: f.Properties.MustString("plantype", defaultPlanType),
			Point:    point,
		}
		if l.Layer == "" || l.ObjID == "" {
			return nil, errors.InvalidInput("label %d has no layer or obj_id", i)
		}
		labels = append(labels, l)
	}
	return labels, nil
}

// LoadLabelsFile is LoadLabels on a file.
func LoadLabelsFile(path string) ([]Label, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(errors.KindInvalidInput, err, "failed to open labels file %s", path)
	}
	defer f.Close()
	return LoadLabels(f)
}

// exportLabels stages one text row per label whose owner was exported.
func (e *Exporter) exportLabels(ctx context.Context, mc *mapping.Context) (int, error) {
	if len(e.opts.Labels) == 0 {
		return 0, nil
	}
	targets := map[string]mapping.LabelTarget{}
	for _, lt := range e.opts.Rules.Labels {
		targets[lt.Layer] = lt
	}

	catalog := e.opts.Session.Catalog()
	emitted := 0
	for _, l := range e.opts.Labels {
		lt, ok := targets[l.Layer]
		if !ok {
			e.logger.WithContext(ctx).Debugf("label layer %s is not exported", l.Layer)
			continue
		}
		if err := catalog.Require(lt.Class); err != nil {
			return emitted, err
		}

		base := mc.Base(lt.Source)
		owner, ok := e.opts.Allocator.Lookup(tid.Key{Base: base, ID: l.ObjID})
		if !ok || !mc.Accepted(base, l.ObjID) {
			if !mc.Filtered() {
				e.opts.Warnings.Addf(report.WarningRowSkipped, lt.Class, "", l.ObjID, "label of %s %s which was not exported", l.Layer, l.ObjID)
			}
			continue
		}

		t := e.opts.Allocator.Next()
		mc.At(lt.Class, l.ObjID, t)
		row, err := labelRow(mc, lt, l, e.opts.LabelOrientation)
		if err != nil {
			return emitted, err
		}
		row[lt.OwnerField] = owner
		if err := e.fill(lt.Class, row, t); err != nil {
			return emitted, err
		}
		if err := e.opts.Session.AddChain(lt.Class, row, l.ObjID); err != nil {
			return emitted, err
		}
		emitted++
	}

	e.logger.WithContext(ctx).Infof("exported %d of %d labels", emitted, len(e.opts.Labels))
	return emitted, nil
}

func labelRow(mc *mapping.Context, lt mapping.LabelTarget, l Label, orientation float64) (models.Row, error) {
	rec := &models.Record{
		Table:    lt.Class,
		IDColumn: "obj_id",
		Values:   models.Row{"obj_id": l.ObjID, "rotation": l.Rotation},
	}
	ori, err := mapping.Modulo(mapping.Col("rotation"), orientation, 360)(mc, rec)
	if err != nil {
		return nil, fmt.Errorf("label of %s: %w", l.ObjID, err)
	}
	return models.Row{
		"textpos":    geometry.Value{Geometry: l.Point, SRID: mc.SRID},
		"textori":    ori,
		"texthali":   "Center",
		"textvali":   "Half",
		"plantyp":    l.PlanType,
		"textinhalt": l.Text,
	}, nil
}
