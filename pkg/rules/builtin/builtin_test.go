package builtin

import (
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/moss/internal/fixtures"
	"github.com/Ramsey-B/moss/pkg/errors"
	"github.com/Ramsey-B/moss/pkg/hooks"
	"github.com/Ramsey-B/moss/pkg/xtf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryModels(t *testing.T) {
	r := Registry()
	assert.Equal(t, xtf.Priority, r.Models())

	model, ok := r.Pick([]string{xtf.ModelSIA405Abwasser, xtf.ModelDSS})
	require.True(t, ok)
	assert.Equal(t, xtf.ModelDSS, model)

	_, ok = r.Pick([]string{"Units", "INTERLIS_CORE"})
	assert.False(t, ok)

	_, err := r.Lookup("SIA405_GAS_LV95")
	require.Error(t, err)
	assert.Equal(t, errors.KindInvalidInput, errors.KindOf(err))
}

// Every rule set must only name tables and columns of the fixture schemas,
// which mirror the real ones.
func TestRuleSetsMatchSchemas(t *testing.T) {
	tests := []struct {
		model  string
		app    func() any
		family string
	}{
		{model: xtf.ModelSIA405Abwasser, family: "wastewater"},
		{model: xtf.ModelDSS, family: "wastewater"},
		{model: xtf.ModelKEK, family: "wastewater"},
		{model: xtf.ModelSIA405Wasser, family: "water"},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			set, err := Registry().Lookup(tt.model)
			require.NoError(t, err)
			assert.Equal(t, tt.family, set.Family)

			app, target := fixtures.QGEP(), fixtures.Abwasser()
			if tt.family == "water" {
				app, target = fixtures.QWAT(), fixtures.Wasser()
			}

			require.NoError(t, app.Require(set.SourceTables()...))
			require.NoError(t, target.Require(set.TargetClasses()...))

			for _, r := range set.Export.Rules {
				for _, tg := range r.Targets {
					for _, fl := range tg.Fields {
						_, _, ok := target.Column(tg.Class, fl.Name)
						assert.True(t, ok, "%s.%s", tg.Class, fl.Name)
					}
				}
			}
			for _, r := range set.Import.Rules {
				require.True(t, target.Has(r.Source), r.Source)
				targets := r.Targets
				if r.Discriminator != nil {
					for _, tg := range r.Discriminator.Cases {
						targets = append(targets, tg)
					}
				}
				for _, tg := range targets {
					for _, fl := range tg.Fields {
						_, _, ok := app.Column(tg.Class, fl.Name)
						assert.True(t, ok, "%s.%s", tg.Class, fl.Name)
					}
				}
			}
			for _, e := range set.Edges {
				assert.True(t, app.Has(e.Table), e.Name)
			}
		})
	}
}

func TestHooksAreValid(t *testing.T) {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	for _, model := range Registry().Models() {
		set, err := Registry().Lookup(model)
		require.NoError(t, err)
		_, err = hooks.New("pre-import", set.PreImport, logger)
		assert.NoError(t, err, model)
		_, err = hooks.New("post-import", set.PostImport, logger)
		assert.NoError(t, err, model)
	}
}
