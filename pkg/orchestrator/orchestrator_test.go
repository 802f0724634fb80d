package orchestrator

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Ramsey-B/moss/config"
	"github.com/Ramsey-B/moss/internal/fixtures"
	"github.com/Ramsey-B/moss/pkg/errors"
	"github.com/Ramsey-B/moss/pkg/hooks"
	"github.com/Ramsey-B/moss/pkg/lock"
	"github.com/Ramsey-B/moss/pkg/logging"
	"github.com/Ramsey-B/moss/pkg/models"
	"github.com/Ramsey-B/moss/pkg/progress"
	"github.com/Ramsey-B/moss/pkg/report"
	"github.com/Ramsey-B/moss/pkg/schema"
	"github.com/Ramsey-B/moss/pkg/selection"
	"github.com/Ramsey-B/moss/pkg/session"
	"github.com/Ramsey-B/moss/pkg/source"
	"github.com/Ramsey-B/moss/pkg/valuelist"
	"github.com/Ramsey-B/moss/pkg/xtf"
)

func oid(suffix string) string {
	return "chmoss" + strings.Repeat("0", 10-len(suffix)) + suffix
}

type memUnit struct {
	writer     *session.MemoryWriter
	failWrite  error
	execs      []string
	committed  bool
	rolledBack bool
}

func (u *memUnit) Writer() session.Writer {
	if u.failWrite != nil {
		return failingWriter{u.failWrite}
	}
	return u.writer
}

func (u *memUnit) Exec(_ context.Context, hook *hooks.Hook) error {
	u.execs = append(u.execs, hook.Name())
	return nil
}

func (u *memUnit) Commit(_ context.Context) error {
	u.committed = true
	return nil
}

func (u *memUnit) Rollback(_ context.Context) error {
	u.rolledBack = true
	return nil
}

type failingWriter struct{ err error }

func (f failingWriter) Insert(_ context.Context, _ *schema.EntityDescriptor, _ []models.Row) error {
	return f.err
}

type memStore struct {
	catalogs  map[string]*schema.Catalog
	readers   map[string]*source.MemoryReader
	entries   []valuelist.Entry
	units     []*memUnit
	failWrite error
	hooksRun  []string
	forgotten []string
}

func newStore() *memStore {
	return &memStore{
		catalogs: map[string]*schema.Catalog{
			"qgep_od":         fixtures.QGEP(),
			"pg2ili_abwasser": fixtures.Abwasser(),
		},
		readers: map[string]*source.MemoryReader{},
		entries: fixtures.WastewaterValueLists(),
	}
}

func (m *memStore) Catalog(_ context.Context, name string, required ...string) (*schema.Catalog, error) {
	c, ok := m.catalogs[name]
	if !ok {
		return nil, errors.SchemaError("schema %s does not exist or has no tables", name)
	}
	if err := c.Require(required...); err != nil {
		return nil, err
	}
	return c, nil
}

func (m *memStore) Forget(name string) {
	m.forgotten = append(m.forgotten, name)
}

func (m *memStore) reader(name string) *source.MemoryReader {
	r, ok := m.readers[name]
	if !ok {
		r = source.NewMemoryReader(m.catalogs[name])
		m.readers[name] = r
	}
	return r
}

func (m *memStore) Reader(c *schema.Catalog, _ int) source.Reader {
	return m.reader(c.Schema)
}

func (m *memStore) ValueLists(_ context.Context, _, _ string) ([]valuelist.Entry, error) {
	return m.entries, nil
}

func (m *memStore) Edges(reader source.Reader) selection.EdgeSource {
	return selection.NewReaderEdges(reader)
}

func (m *memStore) Begin(_ context.Context) (Unit, error) {
	u := &memUnit{writer: session.NewMemoryWriter(), failWrite: m.failWrite}
	m.units = append(m.units, u)
	return u, nil
}

func (m *memStore) RunHook(_ context.Context, hook *hooks.Hook, _ *report.Collector) int {
	m.hooksRun = append(m.hooksRun, hook.Name())
	return 0
}

type fakeTools struct {
	calls    []string
	logs     []string
	fail     map[string]error
	onImport func() error
}

func (f *fakeTools) record(op, logPath string) error {
	f.calls = append(f.calls, op)
	f.logs = append(f.logs, logPath)
	return f.fail[op]
}

func (f *fakeTools) Validate(_ context.Context, _, logPath string) error {
	return f.record("validate", logPath)
}

func (f *fakeTools) SchemaImport(_ context.Context, _, _, logPath string, _ bool) error {
	return f.record("schema_import", logPath)
}

func (f *fakeTools) XTFImport(_ context.Context, _, _, logPath string) error {
	if err := f.record("xtf_import", logPath); err != nil {
		return err
	}
	if f.onImport != nil {
		return f.onImport()
	}
	return nil
}

func (f *fakeTools) XTFExport(_ context.Context, _, model, _, xtfFile, logPath string) error {
	if err := f.record("xtf_export", logPath); err != nil {
		return err
	}
	return os.WriteFile(xtfFile, []byte(transferFile(model)), 0o600)
}

func transferFile(models ...string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<TRANSFER xmlns="http://www.interlis.ch/INTERLIS2.3"><HEADERSECTION SENDER="ili2pg" VERSION="2.3"><MODELS>`)
	for _, m := range models {
		b.WriteString(`<MODEL NAME="` + m + `" VERSION="2020" URI="http://www.vsa.ch/models"/>`)
	}
	b.WriteString(`</MODELS></HEADERSECTION><DATASECTION/></TRANSFER>`)
	return b.String()
}

type harness struct {
	orch    *Orchestrator
	store   *memStore
	tools   *fakeTools
	sink    *progress.Recorder
	locker  *lock.MemoryLocker
	dir     string
	logsDir string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	h := &harness{
		store:   newStore(),
		tools:   &fakeTools{fail: map[string]error{}},
		sink:    &progress.Recorder{},
		locker:  lock.NewMemoryLocker(),
		dir:     dir,
		logsDir: filepath.Join(dir, "logs"),
	}
	cfg := &config.Config{
		TargetSchema:        "pg2ili_abwasser",
		TargetModel:         xtf.ModelSIA405Abwasser,
		SRID:                2056,
		RecreateSchema:      true,
		DefaultDataOwner:    "unknown",
		DefaultDataProvider: "unknown",
	}
	h.orch = New(Options{
		Config: cfg,
		Store:  h.store,
		Tools:  h.tools,
		Locker: h.locker,
		Sink:   h.sink,
		Logs:   logging.NewFactory(zap.NewNop(), h.logsDir, zapcore.DebugLevel),
		Now:    func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) },
	})
	return h
}

// network is N1 -RP1- R -RP2- N2 plus an unrelated node N3.
func (h *harness) network(t *testing.T) {
	reader := h.store.reader("qgep_od")
	rows := []any{
		"wastewater_node", models.Row{"obj_id": oid("N1"), "identifier": "N1"},
		"wastewater_node", models.Row{"obj_id": oid("N2"), "identifier": "N2"},
		"wastewater_node", models.Row{"obj_id": oid("N3"), "identifier": "N3"},
		"reach_point", models.Row{"obj_id": oid("RP1"), "fk_wastewater_networkelement": oid("N1")},
		"reach_point", models.Row{"obj_id": oid("RP2"), "fk_wastewater_networkelement": oid("N2")},
		"reach", models.Row{
			"obj_id": oid("R"), "identifier": "R", "material": int64(5081),
			"fk_reach_point_from": oid("RP1"), "fk_reach_point_to": oid("RP2"),
		},
	}
	for i := 0; i < len(rows); i += 2 {
		require.NoError(t, reader.InsertChain(rows[i].(string), rows[i+1].(models.Row)))
	}
}

func (h *harness) xtf(t *testing.T, models ...string) string {
	path := filepath.Join(h.dir, "in.xtf")
	require.NoError(t, os.WriteFile(path, []byte(transferFile(models...)), 0o600))
	return path
}

func TestExport(t *testing.T) {
	h := newHarness(t)
	h.network(t)
	out := filepath.Join(h.dir, "out", "export.xtf")

	res := h.orch.Export(context.Background(), ExportRequest{XTF: out, Selection: []string{oid("R")}})

	require.NoError(t, res.Err)
	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, xtf.ModelSIA405Abwasser, res.Model)
	assert.Equal(t, []string{"schema_import", "xtf_export", "validate"}, h.tools.calls)
	assert.Equal(t, []int{25, 33, 50, 66, 75, 100}, h.sink.Percents())
	assert.False(t, h.sink.Closed)
	assert.Equal(t, []string{"pg2ili_abwasser"}, h.store.forgotten, "the recreated transfer schema is reflected again")

	require.Len(t, h.store.units, 1)
	unit := h.store.units[0]
	assert.True(t, unit.committed)
	assert.False(t, unit.rolledBack)
	assert.Len(t, unit.writer.Rows("haltung"), 1)
	assert.Len(t, unit.writer.Rows("abwasserknoten"), 2)
	assert.Equal(t, 1, res.Counts["haltung"])

	assert.FileExists(t, out)
	assert.Equal(t, filepath.Join(h.logsDir, res.RunID+"-validate.log"), res.LogPath)
	assert.FileExists(t, filepath.Join(h.logsDir, res.RunID+"-mapping.log"))
	assert.Equal(t, filepath.Join(h.logsDir, res.RunID+"-schema_import-tool.log"), h.tools.logs[0])
}

func TestExportEverything(t *testing.T) {
	h := newHarness(t)
	h.network(t)

	res := h.orch.Export(context.Background(), ExportRequest{XTF: filepath.Join(h.dir, "all.xtf"), SkipValidation: true})

	require.NoError(t, res.Err)
	assert.Equal(t, []string{"schema_import", "xtf_export"}, h.tools.calls)
	assert.Equal(t, 3, res.Counts["abwasserknoten"])
	assert.Equal(t, []int{25, 33, 50, 66, 75, 100}, h.sink.Percents())
}

func TestExportValidationFailure(t *testing.T) {
	h := newHarness(t)
	h.network(t)
	out := filepath.Join(h.dir, "out.xtf")
	h.tools.fail["validate"] = errors.ToolFailure("validate", 1, filepath.Join(h.logsDir, "validator.log"), "Error: line 3")

	res := h.orch.Export(context.Background(), ExportRequest{XTF: out})

	assert.Equal(t, StatusToolFailure, res.Status)
	assert.Equal(t, 3, res.Status.ExitCode())
	assert.Equal(t, filepath.Join(h.logsDir, "validator.log"), res.LogPath)
	assert.FileExists(t, out)
	assert.True(t, h.store.units[0].committed)
	assert.Equal(t, []int{25, 33, 50, 66}, h.sink.Percents())
}

func TestExportMappingFailureRollsBack(t *testing.T) {
	h := newHarness(t)
	h.network(t)
	h.store.failWrite = stderrors.New("duplicate key value violates unique constraint")

	res := h.orch.Export(context.Background(), ExportRequest{XTF: filepath.Join(h.dir, "out.xtf")})

	assert.Equal(t, StatusMappingError, res.Status)
	require.Len(t, h.store.units, 1)
	assert.False(t, h.store.units[0].committed)
	assert.True(t, h.store.units[0].rolledBack)
	assert.Equal(t, []string{"schema_import"}, h.tools.calls)
	assert.Equal(t, filepath.Join(h.logsDir, res.RunID+"-mapping.log"), res.LogPath)
	assert.Equal(t, []int{25, 33}, h.sink.Percents())
}

func TestExportMissingTargetClass(t *testing.T) {
	h := newHarness(t)
	h.store.catalogs["pg2ili_abwasser"] = fixtures.Wasser()

	res := h.orch.Export(context.Background(), ExportRequest{XTF: filepath.Join(h.dir, "out.xtf")})

	assert.Equal(t, StatusMappingError, res.Status)
	assert.Equal(t, errors.KindSchemaError, errors.KindOf(res.Err))
	assert.Empty(t, h.store.units)
}

func TestExportUnknownModel(t *testing.T) {
	h := newHarness(t)

	res := h.orch.Export(context.Background(), ExportRequest{XTF: "out.xtf", Model: "NOT_A_MODEL"})

	assert.Equal(t, StatusInvalidInput, res.Status)
	assert.Empty(t, h.tools.calls)
}

func TestExportLockHeld(t *testing.T) {
	h := newHarness(t)
	held, err := h.locker.Acquire(context.Background(), "pg2ili_abwasser")
	require.NoError(t, err)

	res := h.orch.Export(context.Background(), ExportRequest{XTF: filepath.Join(h.dir, "out.xtf")})
	assert.Equal(t, StatusInvalidInput, res.Status)
	assert.True(t, stderrors.Is(res.Err, lock.ErrLockHeld))
	assert.Empty(t, h.tools.calls)

	require.NoError(t, held.Release(context.Background()))
	res = h.orch.Export(context.Background(), ExportRequest{XTF: filepath.Join(h.dir, "out.xtf")})
	assert.Equal(t, StatusSuccess, res.Status)

	// released after the run
	again, err := h.locker.Acquire(context.Background(), "pg2ili_abwasser")
	require.NoError(t, err)
	require.NoError(t, again.Release(context.Background()))
}

func TestExportCanceled(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := h.orch.Export(ctx, ExportRequest{XTF: filepath.Join(h.dir, "out.xtf")})

	assert.Equal(t, StatusCanceled, res.Status)
	assert.Equal(t, 130, res.Status.ExitCode())
}

func (h *harness) fillTransfer(t *testing.T) func() error {
	return func() error {
		reader := h.store.reader("pg2ili_abwasser")
		require.NoError(t, reader.InsertChain("organisation", models.Row{
			"t_id": int64(1), "t_type": "organisation", "obj_id": oid("O1"), "bezeichnung": "Acme",
		}))
		return nil
	}
}

func TestImport(t *testing.T) {
	h := newHarness(t)
	h.tools.onImport = h.fillTransfer(t)
	in := h.xtf(t, xtf.ModelSIA405Abwasser)

	res := h.orch.Import(context.Background(), ImportRequest{XTF: in})

	require.NoError(t, res.Err)
	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, xtf.ModelSIA405Abwasser, res.Model)
	assert.Equal(t, []string{"validate", "schema_import", "xtf_import"}, h.tools.calls)
	assert.Equal(t, []int{25, 33, 50, 66, 75, 100}, h.sink.Percents())
	assert.Equal(t, []string{"pg2ili_abwasser"}, h.store.forgotten)

	require.Len(t, h.store.units, 1)
	unit := h.store.units[0]
	assert.Equal(t, []string{"pre_import"}, unit.execs)
	assert.True(t, unit.committed)
	assert.Equal(t, []string{"post_import"}, h.store.hooksRun)

	orgs := unit.writer.Rows("organisation")
	require.Len(t, orgs, 1)
	assert.Equal(t, "Acme", orgs[0]["identifier"])
	assert.Equal(t, 1, res.Counts["organisation"])
}

func TestImportInvalidFile(t *testing.T) {
	h := newHarness(t)
	in := h.xtf(t, xtf.ModelSIA405Abwasser)
	toolLog := filepath.Join(h.logsDir, "validator.log")
	h.tools.fail["validate"] = errors.ToolFailure("validate", 1, toolLog, "Error: unknown class")

	res := h.orch.Import(context.Background(), ImportRequest{XTF: in})

	assert.Equal(t, StatusInvalidInput, res.Status)
	assert.Equal(t, 2, res.Status.ExitCode())
	assert.Equal(t, toolLog, res.LogPath)
	assert.Contains(t, res.Error, "unknown class")
	assert.Equal(t, []string{"validate"}, h.tools.calls)
	assert.Empty(t, h.store.units)
	assert.Empty(t, h.sink.Percents())
}

func TestImportUnsupportedModel(t *testing.T) {
	h := newHarness(t)
	in := h.xtf(t, "Base_LV95", "NotAModel_2020")

	res := h.orch.Import(context.Background(), ImportRequest{XTF: in})

	assert.Equal(t, StatusInvalidInput, res.Status)
	assert.Empty(t, h.tools.calls)
}

func TestImportLoadFailure(t *testing.T) {
	h := newHarness(t)
	in := h.xtf(t, xtf.ModelSIA405Abwasser)
	h.tools.fail["xtf_import"] = errors.ToolFailure("xtf_import", 1, "/tmp/ili2pg.log", "")

	res := h.orch.Import(context.Background(), ImportRequest{XTF: in, SkipValidation: true})

	assert.Equal(t, StatusToolFailure, res.Status)
	assert.Equal(t, "/tmp/ili2pg.log", res.LogPath)
	assert.Equal(t, []string{"schema_import", "xtf_import"}, h.tools.calls)
	assert.Empty(t, h.store.units)
	assert.Empty(t, h.store.hooksRun)
	assert.Equal(t, []int{25, 33}, h.sink.Percents())
}

func TestValidate(t *testing.T) {
	h := newHarness(t)

	res := h.orch.Validate(context.Background(), h.xtf(t, xtf.ModelDSS))
	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, []string{"validate"}, h.tools.calls)
}

func TestDetect(t *testing.T) {
	h := newHarness(t)

	model, err := h.orch.Detect(h.xtf(t, xtf.ModelDSS, xtf.ModelSIA405Abwasser))
	require.NoError(t, err)
	assert.Equal(t, xtf.ModelDSS, model)

	_, err = h.orch.Detect(filepath.Join(h.dir, "missing.xtf"))
	assert.Equal(t, errors.KindInvalidInput, errors.KindOf(err))
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want Status
		code int
	}{
		{nil, StatusSuccess, 0},
		{errors.InvalidInput("bad file"), StatusInvalidInput, 2},
		{errors.ToolFailure("xtf_export", 1, "", ""), StatusToolFailure, 3},
		{errors.SchemaError("missing table"), StatusMappingError, 1},
		{errors.IntegrityError("dangling"), StatusMappingError, 1},
		{context.Canceled, StatusCanceled, 130},
		{stderrors.New("unclassified"), StatusMappingError, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusOf(tt.err))
		assert.Equal(t, tt.code, StatusOf(tt.err).ExitCode())
	}
}
