// Package logging builds the process logger and the per phase file loggers
// of a run.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Ramsey-B/moss/config"
)

// Factory hands out loggers sharing one zap core.
type Factory struct {
	base  *zap.Logger
	dir   string
	level zapcore.Level
}

// New builds the process logger from cfg.
func New(cfg *config.Config) (*Factory, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}

	zc := zap.NewProductionConfig()
	if cfg.PrettyLogs {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	zc.InitialFields = map[string]any{"app": cfg.AppName}

	base, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return NewFactory(base, cfg.LogDir, level), nil
}

func NewFactory(base *zap.Logger, dir string, level zapcore.Level) *Factory {
	return &Factory{base: base, dir: dir, level: level}
}

func (f *Factory) Logger() ectologger.Logger {
	return zapadapter.NewZapEctoLogger(f.base, nil)
}

// PhaseLog is a logger writing to one phase file and the process log.
type PhaseLog struct {
	Logger ectologger.Logger
	Path   string
	file   *os.File
	zap    *zap.Logger
}

// Close flushes and closes the phase file.
func (p *PhaseLog) Close() error {
	_ = p.zap.Sync()
	return p.file.Close()
}

// Path returns the phase log path of runID, also used as the prefix of the
// logs written by the external tools.
func (f *Factory) Path(runID, phase string) string {
	return filepath.Join(f.dir, fmt.Sprintf("%s-%s.log", runID, phase))
}

// Phase opens <dir>/<runID>-<phase>.log.
func (f *Factory) Phase(runID, phase string) (*PhaseLog, error) {
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", f.dir, err)
	}

	path := f.Path(runID, phase)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log %s: %w", path, err)
	}

	encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	fileCore := zapcore.NewCore(encoder, zapcore.AddSync(file), zapcore.DebugLevel)
	z := f.base.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, fileCore)
	})).With(zap.String("run_id", runID), zap.String("phase", phase))

	return &PhaseLog{
		Logger: zapadapter.NewZapEctoLogger(z, nil),
		Path:   path,
		file:   file,
		zap:    z,
	}, nil
}

func (f *Factory) Sync() {
	_ = f.base.Sync()
}
