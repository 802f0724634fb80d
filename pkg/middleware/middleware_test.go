package middleware

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mosscontext "github.com/Ramsey-B/moss/pkg/context"
	"github.com/Ramsey-B/moss/pkg/errors"
	"github.com/Ramsey-B/moss/pkg/lock"
)

func nopLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestContext(t *testing.T) {
	e := echo.New()
	e.Use(Context())
	e.GET("/", func(c echo.Context) error {
		ctx := c.Request().Context()
		return c.String(http.StatusOK, mosscontext.GetRequestID(ctx)+"|"+mosscontext.GetUserID(ctx))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderXRequestID, "req-1")
	req.Header.Set(HeaderUserID, "alice")
	rec := serve(e, req)
	assert.Equal(t, "req-1|alice", rec.Body.String())
	assert.Equal(t, "req-1", rec.Header().Get(echo.HeaderXRequestID))

	rec = serve(e, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestLogger(t *testing.T) {
	messages := []ectologger.EctoLogMessage{}
	logger := ectologger.NewEctoLogger(func(msg ectologger.EctoLogMessage) {
		messages = append(messages, msg)
	})

	e := echo.New()
	e.HTTPErrorHandler = Error(nopLogger())
	e.Use(Context())
	e.Use(Logger(logger))
	e.GET("/api/v1/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.POST("/api/v1/exports", func(c echo.Context) error {
		c.Response().Header().Set(HeaderRunID, "run-7")
		return c.NoContent(http.StatusOK)
	})
	e.POST("/api/v1/imports", func(c echo.Context) error { return errors.InvalidInput("not a transfer file") })

	req := httptest.NewRequest(http.MethodPost, "/api/v1/exports", nil)
	req.Header.Set(echo.HeaderXRequestID, "req-1")
	req.Header.Set(HeaderUserID, "alice")
	serve(e, req)
	serve(e, httptest.NewRequest(http.MethodGet, "/api/v1/health/live", nil))
	serve(e, httptest.NewRequest(http.MethodPost, "/api/v1/imports", nil))

	require.Len(t, messages, 3)

	export := messages[0]
	assert.Equal(t, "info", export.Level)
	assert.Equal(t, "req-1", export.Fields["request_id"])
	assert.Equal(t, "alice", export.Fields["user_id"])
	assert.Equal(t, "run-7", export.Fields["run_id"])
	assert.Equal(t, "/api/v1/exports", export.Fields["route"])
	assert.Equal(t, http.StatusOK, export.Fields["status"])

	assert.Equal(t, "debug", messages[1].Level, "health checks stay quiet")
	assert.NotContains(t, messages[1].Fields, "run_id")

	assert.Equal(t, "warn", messages[2].Level)
	assert.Equal(t, http.StatusBadRequest, messages[2].Fields["status"])
}

func TestError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantKind any
	}{
		{name: "invalid input", err: errors.InvalidInput("unknown model"), wantCode: http.StatusBadRequest, wantKind: "invalid_input"},
		{name: "tool failure", err: errors.ToolFailure("validate", 1, "/logs/v.log", ""), wantCode: http.StatusBadGateway, wantKind: "tool_failure"},
		{name: "wrapped mapping error", err: fmt.Errorf("run: %w", errors.MappingError("bad rule")), wantCode: http.StatusUnprocessableEntity, wantKind: "mapping_error"},
		{name: "lock held", err: errors.Wrap(errors.KindInvalidInput, lock.ErrLockHeld, "export"), wantCode: http.StatusConflict},
		{name: "echo error", err: echo.NewHTTPError(http.StatusNotFound, "no route"), wantCode: http.StatusNotFound},
		{name: "plain error", err: stderrors.New("boom"), wantCode: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			e.HTTPErrorHandler = Error(nopLogger())
			e.GET("/", func(c echo.Context) error { return tt.err })

			rec := serve(e, httptest.NewRequest(http.MethodGet, "/", nil))
			assert.Equal(t, tt.wantCode, rec.Code)

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			if tt.wantKind != nil {
				assert.Equal(t, tt.wantKind, body.Meta["kind"])
			}
		})
	}
}

func TestAuthentication(t *testing.T) {
	verify := func(_ context.Context, raw string) (UserClaims, error) {
		if raw != "good" {
			return UserClaims{}, stderrors.New("signature mismatch")
		}
		return UserClaims{Sub: "user-42"}, nil
	}

	e := echo.New()
	e.Use(Authentication(nopLogger(), verify))
	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, mosscontext.GetUserID(c.Request().Context()))
	})

	tests := []struct {
		name     string
		header   string
		wantCode int
		wantBody string
	}{
		{name: "missing", wantCode: http.StatusUnauthorized},
		{name: "invalid", header: "Bearer bad", wantCode: http.StatusUnauthorized},
		{name: "valid", header: "Bearer good", wantCode: http.StatusOK, wantBody: "user-42"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := serve(e, req)
			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}
