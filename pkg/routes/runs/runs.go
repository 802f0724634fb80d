// Package runs exposes orchestrated runs over HTTP. Each request runs
// synchronously and answers with the run result.
package runs

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/moss/pkg/lock"
	"github.com/Ramsey-B/moss/pkg/middleware"
	"github.com/Ramsey-B/moss/pkg/orchestrator"
)

// Runner is the orchestrator seen by the handlers.
type Runner interface {
	Export(ctx context.Context, req orchestrator.ExportRequest) *orchestrator.Result
	Import(ctx context.Context, req orchestrator.ImportRequest) *orchestrator.Result
	Validate(ctx context.Context, path string) *orchestrator.Result
	Detect(path string) (string, error)
}

// FileRequest names a transfer file already on the server.
type FileRequest struct {
	XTF string `json:"xtf" validate:"required"`
}

type DetectResponse struct {
	Model string `json:"model"`
}

type Handler struct {
	runner    Runner
	uploadDir string
	maxBytes  int64
	validate  *validator.Validate
}

func NewHandler(runner Runner, uploadDir string, maxBytes int64) *Handler {
	return &Handler{
		runner:    runner,
		uploadDir: uploadDir,
		maxBytes:  maxBytes,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) Register(g *echo.Group) {
	g.POST("/exports", h.Export)
	g.POST("/imports", h.Import)
	g.POST("/detect", h.Detect)
	g.POST("/validate", h.Validate)
}

func (h *Handler) Export(c echo.Context) error {
	var req orchestrator.ExportRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	return respond(c, h.runner.Export(c.Request().Context(), req))
}

// Import accepts either a JSON body naming a server side file or a
// multipart upload in the field "file".
func (h *Handler) Import(c echo.Context) error {
	var req orchestrator.ImportRequest
	if isMultipart(c) {
		path, cleanup, err := h.upload(c)
		if err != nil {
			return err
		}
		defer cleanup()
		req.XTF = path
		req.Model = c.FormValue("model")
		req.SkipValidation = c.FormValue("skip_validation") == "true"
	} else if err := h.bind(c, &req); err != nil {
		return err
	}
	return respond(c, h.runner.Import(c.Request().Context(), req))
}

func (h *Handler) Detect(c echo.Context) error {
	path, cleanup, err := h.file(c)
	if err != nil {
		return err
	}
	defer cleanup()

	model, err := h.runner.Detect(path)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, DetectResponse{Model: model})
}

func (h *Handler) Validate(c echo.Context) error {
	path, cleanup, err := h.file(c)
	if err != nil {
		return err
	}
	defer cleanup()
	return respond(c, h.runner.Validate(c.Request().Context(), path))
}

// file resolves the transfer file of a request, uploaded or named.
func (h *Handler) file(c echo.Context) (string, func(), error) {
	if isMultipart(c) {
		return h.upload(c)
	}
	var req FileRequest
	if err := h.bind(c, &req); err != nil {
		return "", nil, err
	}
	return req.XTF, func() {}, nil
}

func (h *Handler) bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// upload stores the multipart file in the upload directory. The returned
// cleanup removes it.
func (h *Handler) upload(c echo.Context) (string, func(), error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return "", nil, httperror.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	if h.maxBytes > 0 && fh.Size > h.maxBytes {
		return "", nil, httperror.NewHTTPError(http.StatusRequestEntityTooLarge, fmt.Sprintf("file exceeds %d bytes", h.maxBytes))
	}

	src, err := fh.Open()
	if err != nil {
		return "", nil, httperror.NewHTTPError(http.StatusBadRequest, "cannot read upload")
	}
	defer src.Close()

	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return "", nil, err
	}
	path := filepath.Join(h.uploadDir, uuid.New().String()+".xtf")
	dst, err := os.Create(path)
	if err != nil {
		return "", nil, err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return "", nil, err
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return "", nil, err
	}
	return path, func() { os.Remove(path) }, nil
}

func isMultipart(c echo.Context) bool {
	return strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm)
}

// respond writes the result with a status code matching its outcome.
func respond(c echo.Context, res *orchestrator.Result) error {
	if res.RunID != "" {
		c.Response().Header().Set(middleware.HeaderRunID, res.RunID)
	}
	return c.JSON(StatusCode(res), res)
}

func StatusCode(res *orchestrator.Result) int {
	switch res.Status {
	case orchestrator.StatusSuccess:
		return http.StatusOK
	case orchestrator.StatusInvalidInput:
		if stderrors.Is(res.Err, lock.ErrLockHeld) {
			return http.StatusConflict
		}
		return http.StatusBadRequest
	case orchestrator.StatusToolFailure:
		return http.StatusBadGateway
	case orchestrator.StatusCanceled:
		return http.StatusRequestTimeout
	default:
		return http.StatusUnprocessableEntity
	}
}
