package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorPath(t *testing.T) {
	err := MappingError("value out of range").AddClass("haltung").AddObject("ch000000000000a1").AddField("baujahr")
	assert.Equal(t, "class 'haltung' -> object 'ch000000000000a1' -> field 'baujahr': value out of range", err.Error())

	err.AddClass("other")
	assert.Equal(t, "haltung", err.Class, "first class wins")
}

func TestWrap(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		assert.Nil(t, Wrap(KindSchemaError, nil, "reflect"))
	})

	t.Run("plain error", func(t *testing.T) {
		cause := stderrors.New("connection refused")
		err := Wrap(KindSchemaError, cause, "failed to reflect qgep_od")

		assert.Equal(t, KindSchemaError, err.Kind)
		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "failed to reflect qgep_od: connection refused")
	})

	t.Run("keeps kind", func(t *testing.T) {
		inner := IntegrityError("dangling reference")
		wrapped := fmt.Errorf("flush: %w", inner)
		err := Wrap(KindMappingError, wrapped, "export")

		assert.Equal(t, KindIntegrityError, err.Kind)
	})
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(nil))
	assert.Equal(t, KindToolFailure, KindOf(fmt.Errorf("x: %w", ToolFailure("ili2pg", 1, "/tmp/a.log", ""))))
	assert.Equal(t, KindCanceled, KindOf(fmt.Errorf("x: %w", context.Canceled)))
	assert.Equal(t, KindMappingError, KindOf(stderrors.New("boom")))
	assert.True(t, Is(InvalidInput("bad"), KindInvalidInput))
	assert.False(t, Is(stderrors.New("bad"), KindInvalidInput))
}

func TestToolFailure(t *testing.T) {
	output := "line 1\nline 2\nError: model not found\n"
	err := ToolFailure("schema_import", 2, "/var/log/moss/run-schema.log", output)

	assert.Equal(t, KindToolFailure, err.Kind)
	assert.Equal(t, "/var/log/moss/run-schema.log", LogPathOf(err))
	assert.Contains(t, err.Error(), "schema_import exited with status 2")
	assert.Contains(t, err.Error(), "Error: model not found")
}

func TestToHTTPError(t *testing.T) {
	cases := []struct {
		err    *Error
		status int
	}{
		{InvalidInput("bad"), http.StatusBadRequest},
		{IntegrityError("bad"), http.StatusUnprocessableEntity},
		{ToolFailure("validate", 1, "", ""), http.StatusBadGateway},
		{SchemaError("bad"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(string(tc.err.Kind), func(t *testing.T) {
			httpErr := tc.err.ToHTTPError()
			require.True(t, httperror.IsHTTPError(httpErr))
			assert.Equal(t, tc.status, httperror.GetStatusCode(httpErr))
		})
	}
}
