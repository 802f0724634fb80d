package runs

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/moss/pkg/errors"
	"github.com/Ramsey-B/moss/pkg/lock"
	"github.com/Ramsey-B/moss/pkg/middleware"
	"github.com/Ramsey-B/moss/pkg/orchestrator"
)

type fakeRunner struct {
	exports  []orchestrator.ExportRequest
	imports  []orchestrator.ImportRequest
	uploaded string
	status   orchestrator.Status
	err      error
}

func (f *fakeRunner) result(direction string) *orchestrator.Result {
	status := f.status
	if status == "" {
		status = orchestrator.StatusSuccess
	}
	return &orchestrator.Result{RunID: "run-1", Direction: direction, Status: status, Err: f.err}
}

func (f *fakeRunner) Export(_ context.Context, req orchestrator.ExportRequest) *orchestrator.Result {
	f.exports = append(f.exports, req)
	return f.result(orchestrator.DirectionExport)
}

func (f *fakeRunner) Import(_ context.Context, req orchestrator.ImportRequest) *orchestrator.Result {
	f.imports = append(f.imports, req)
	if data, err := os.ReadFile(req.XTF); err == nil {
		f.uploaded = string(data)
	}
	return f.result(orchestrator.DirectionImport)
}

func (f *fakeRunner) Validate(_ context.Context, _ string) *orchestrator.Result {
	return f.result(orchestrator.DirectionValidate)
}

func (f *fakeRunner) Detect(path string) (string, error) {
	if strings.HasSuffix(path, "bad.xtf") {
		return "", errors.InvalidInput("%s declares no supported model", path)
	}
	return "DSS_2015_LV95", nil
}

func newServer(t *testing.T, runner Runner, maxBytes int64) (*echo.Echo, string) {
	dir := t.TempDir()
	e := echo.New()
	e.HTTPErrorHandler = middleware.Error(ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}))
	NewHandler(runner, dir, maxBytes).Register(e.Group("/api/v1"))
	return e, dir
}

func postJSON(e *echo.Echo, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func postFile(e *echo.Echo, path, content string, fields map[string]string) *httptest.ResponseRecorder {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		_ = w.WriteField(k, v)
	}
	part, _ := w.CreateFormFile("file", "in.xtf")
	_, _ = part.Write([]byte(content))
	_ = w.Close()

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestExport(t *testing.T) {
	runner := &fakeRunner{}
	e, _ := newServer(t, runner, 0)

	rec := postJSON(e, "/api/v1/exports", `{"xtf":"/out/export.xtf","selection":["R1"],"skip_validation":true}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var res orchestrator.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, orchestrator.StatusSuccess, res.Status)
	assert.Equal(t, "run-1", res.RunID)
	assert.Equal(t, "run-1", rec.Header().Get(middleware.HeaderRunID))

	require.Len(t, runner.exports, 1)
	assert.Equal(t, []string{"R1"}, runner.exports[0].Selection)
	assert.True(t, runner.exports[0].SkipValidation)
}

func TestExportRequiresFile(t *testing.T) {
	runner := &fakeRunner{}
	e, _ := newServer(t, runner, 0)

	rec := postJSON(e, "/api/v1/exports", `{"selection":["R1"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, runner.exports)
}

func TestImportUpload(t *testing.T) {
	runner := &fakeRunner{}
	e, dir := newServer(t, runner, 0)

	rec := postFile(e, "/api/v1/imports", "<TRANSFER/>", map[string]string{"model": "DSS_2015_LV95"})
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, runner.imports, 1)
	assert.Equal(t, "DSS_2015_LV95", runner.imports[0].Model)
	assert.Equal(t, "<TRANSFER/>", runner.uploaded)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "upload is removed after the run")
}

func TestImportUploadTooLarge(t *testing.T) {
	runner := &fakeRunner{}
	e, _ := newServer(t, runner, 4)

	rec := postFile(e, "/api/v1/imports", "<TRANSFER/>", nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Empty(t, runner.imports)
}

func TestImportPath(t *testing.T) {
	runner := &fakeRunner{}
	e, _ := newServer(t, runner, 0)

	rec := postJSON(e, "/api/v1/imports", `{"xtf":"/data/in.xtf"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/data/in.xtf", runner.imports[0].XTF)
}

func TestDetect(t *testing.T) {
	e, _ := newServer(t, &fakeRunner{}, 0)

	rec := postJSON(e, "/api/v1/detect", `{"xtf":"/data/in.xtf"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var res DetectResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "DSS_2015_LV95", res.Model)

	rec = postJSON(e, "/api/v1/detect", `{"xtf":"/data/bad.xtf"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestValidate(t *testing.T) {
	e, _ := newServer(t, &fakeRunner{status: orchestrator.StatusToolFailure}, 0)

	rec := postFile(e, "/api/v1/validate", "<TRANSFER/>", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		res  *orchestrator.Result
		want int
	}{
		{name: "success", res: &orchestrator.Result{Status: orchestrator.StatusSuccess}, want: http.StatusOK},
		{name: "invalid input", res: &orchestrator.Result{Status: orchestrator.StatusInvalidInput}, want: http.StatusBadRequest},
		{name: "lock held", res: &orchestrator.Result{
			Status: orchestrator.StatusInvalidInput,
			Err:    errors.Wrap(errors.KindInvalidInput, lock.ErrLockHeld, "cannot lock"),
		}, want: http.StatusConflict},
		{name: "tool failure", res: &orchestrator.Result{Status: orchestrator.StatusToolFailure}, want: http.StatusBadGateway},
		{name: "mapping error", res: &orchestrator.Result{Status: orchestrator.StatusMappingError}, want: http.StatusUnprocessableEntity},
		{name: "canceled", res: &orchestrator.Result{Status: orchestrator.StatusCanceled}, want: http.StatusRequestTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusCode(tt.res))
		})
	}
}
