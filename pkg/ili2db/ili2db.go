// Package ili2db drives the external INTERLIS tools: ili2pg creates the
// transfer schema and moves transfer files in and out of it, ilivalidator
// checks transfer files.
package ili2db

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/moss/config"
	"github.com/Ramsey-B/moss/pkg/database"
	"github.com/Ramsey-B/moss/pkg/errors"
	"github.com/Ramsey-B/moss/pkg/tracing"
)

const (
	OpValidate     = "validate"
	OpSchemaImport = "schema_import"
	OpXTFImport    = "xtf_import"
	OpXTFExport    = "xtf_export"
)

// Flags are the ili2pg feature switches.
type Flags struct {
	SetupPgExt          bool
	CreateGeomIdx       bool
	CreateFk            bool
	CreateFkIdx         bool
	CreateTidCol        bool
	ImportTid           bool
	NoSmartMapping      bool
	DisableValidation   bool
	SkipReferenceErrors bool
	DeleteData          bool
}

type Config struct {
	JavaPath     string
	ToolJar      string
	ValidatorJar string
	ModelDir     string

	Host     string
	Port     int
	Database string
	User     string
	Password string

	SRID  int
	Flags Flags
}

// FromConfig takes the tool settings out of the process configuration.
func FromConfig(cfg *config.Config) Config {
	return Config{
		JavaPath:     cfg.JavaPath,
		ToolJar:      cfg.ToolJar,
		ValidatorJar: cfg.ValidatorJar,
		ModelDir:     cfg.ModelDir,
		Host:         cfg.PGHost,
		Port:         cfg.PGPort,
		Database:     cfg.PGDatabase,
		User:         cfg.PGUser,
		Password:     cfg.PGPassword,
		SRID:         cfg.SRID,
		Flags: Flags{
			SetupPgExt:          cfg.SetupPgExt,
			CreateGeomIdx:       cfg.CreateGeomIdx,
			CreateFk:            cfg.CreateFk,
			CreateFkIdx:         cfg.CreateFkIdx,
			CreateTidCol:        cfg.CreateTidCol,
			ImportTid:           cfg.ImportTid,
			NoSmartMapping:      cfg.NoSmartMapping,
			DisableValidation:   cfg.DisableValidation,
			SkipReferenceErrors: cfg.SkipReferenceErrors,
			DeleteData:          cfg.DeleteData,
		},
	}
}

// Observer is told about every tool invocation.
type Observer func(operation string, exitCode int)

type Driver struct {
	cfg      Config
	runner   Runner
	db       database.Querier
	logger   ectologger.Logger
	observer Observer
}

// New builds a driver. db is used to create the transfer schema before the
// tool fills it.
func New(cfg Config, runner Runner, db database.Querier, logger ectologger.Logger) *Driver {
	return &Driver{cfg: cfg, runner: runner, db: db, logger: logger}
}

// Observe registers fn to be called after every invocation.
func (d *Driver) Observe(fn Observer) *Driver {
	d.observer = fn
	return d
}

// Validate checks xtfFile with ilivalidator.
func (d *Driver) Validate(ctx context.Context, xtfFile, logPath string) error {
	args := []string{"-jar", d.cfg.ValidatorJar, "--log", logPath}
	if d.cfg.ModelDir != "" {
		args = append(args, "--modeldir", d.cfg.ModelDir)
	}
	args = append(args, xtfFile)
	return d.run(ctx, OpValidate, args, logPath)
}

// SchemaImport creates the relational schema of model in targetSchema. With
// recreate the schema is dropped first.
func (d *Driver) SchemaImport(ctx context.Context, targetSchema, model, logPath string, recreate bool) error {
	if recreate {
		if _, err := d.db.ExecContext(ctx, "DROP SCHEMA IF EXISTS "+database.Ident(targetSchema)+" CASCADE"); err != nil {
			return errors.Wrapf(errors.KindSchemaError, err, "failed to drop schema %s", targetSchema)
		}
	}
	if _, err := d.db.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+database.Ident(targetSchema)); err != nil {
		return errors.Wrapf(errors.KindSchemaError, err, "failed to create schema %s", targetSchema)
	}

	args := d.toolArgs("--schemaimport", targetSchema, logPath)
	f := d.cfg.Flags
	args = appendFlag(args, f.SetupPgExt, "--setupPgExt")
	args = appendFlag(args, f.CreateGeomIdx, "--createGeomIdx")
	args = appendFlag(args, f.CreateFk, "--createFk")
	args = appendFlag(args, f.CreateFkIdx, "--createFkIdx")
	args = appendFlag(args, f.CreateTidCol, "--createTidCol")
	args = appendFlag(args, f.ImportTid, "--importTid")
	args = appendFlag(args, f.NoSmartMapping, "--noSmartMapping")
	args = append(args, "--defaultSrsCode", strconv.Itoa(d.srid()), "--models", model)
	return d.run(ctx, OpSchemaImport, args, logPath)
}

// XTFImport loads xtfFile into targetSchema.
func (d *Driver) XTFImport(ctx context.Context, targetSchema, xtfFile, logPath string) error {
	args := d.toolArgs("--import", targetSchema, logPath)
	f := d.cfg.Flags
	args = appendFlag(args, f.ImportTid, "--importTid")
	args = appendFlag(args, f.NoSmartMapping, "--noSmartMapping")
	args = appendFlag(args, f.DisableValidation, "--disableValidation")
	args = appendFlag(args, f.SkipReferenceErrors, "--skipReferenceErrors")
	args = appendFlag(args, f.DeleteData, "--deleteData")
	args = append(args, "--defaultSrsCode", strconv.Itoa(d.srid()), xtfFile)
	return d.run(ctx, OpXTFImport, args, logPath)
}

// XTFExport writes targetSchema into xtfFile. exportModel restricts the
// file to a base model of model.
func (d *Driver) XTFExport(ctx context.Context, targetSchema, model, exportModel, xtfFile, logPath string) error {
	args := d.toolArgs("--export", targetSchema, logPath)
	args = appendFlag(args, d.cfg.Flags.DisableValidation, "--disableValidation")
	args = append(args, "--models", model)
	if exportModel != "" && exportModel != model {
		args = append(args, "--exportModels", exportModel)
	}
	args = append(args, xtfFile)
	return d.run(ctx, OpXTFExport, args, logPath)
}

func (d *Driver) toolArgs(mode, targetSchema, logPath string) []string {
	args := []string{
		"-jar", d.cfg.ToolJar, mode,
		"--dbhost", d.cfg.Host,
		"--dbport", strconv.Itoa(d.cfg.Port),
		"--dbdatabase", d.cfg.Database,
		"--dbusr", d.cfg.User,
	}
	if d.cfg.Password != "" {
		args = append(args, "--dbpwd", d.cfg.Password)
	}
	args = append(args, "--dbschema", targetSchema, "--log", logPath)
	if d.cfg.ModelDir != "" {
		args = append(args, "--modeldir", d.cfg.ModelDir)
	}
	return args
}

func (d *Driver) srid() int {
	if d.cfg.SRID == 0 {
		return 2056
	}
	return d.cfg.SRID
}

func (d *Driver) run(ctx context.Context, operation string, args []string, logPath string) error {
	ctx, span := tracing.StartSpan(ctx, "ili2db."+operation)
	defer span.End()

	logger := d.logger.WithContext(ctx).WithFields(map[string]any{
		"operation": operation,
		"log":       logPath,
	})
	logger.Infof("running %s %s", d.cfg.JavaPath, strings.Join(redact(args), " "))

	code, output, err := d.runner.Run(ctx, d.cfg.JavaPath, args)
	if d.observer != nil {
		d.observer(operation, code)
	}
	if err != nil {
		if ctx.Err() != nil {
			return errors.Wrap(errors.KindCanceled, ctx.Err(), operation+" canceled").WithLog(logPath)
		}
		logger.WithError(err).Error("failed to start tool")
		return errors.Wrap(errors.KindToolFailure, err, fmt.Sprintf("failed to run %s", operation)).WithLog(logPath)
	}
	if code != 0 {
		logger.Errorf("%s exited with status %d", operation, code)
		return errors.ToolFailure(operation, code, logPath, output)
	}
	logger.Debugf("%s finished", operation)
	return nil
}

func appendFlag(args []string, on bool, flag string) []string {
	if on {
		return append(args, flag)
	}
	return args
}

// redact hides the database password in logged command lines.
func redact(args []string) []string {
	out := make([]string, len(args))
	copy(out, args)
	for i := 0; i < len(out)-1; i++ {
		if out[i] == "--dbpwd" {
			out[i+1] = "****"
		}
	}
	return out
}
