package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgservicefile"
	"github.com/joho/godotenv"
)

type Config struct {
	AppName    string `yaml:"app_name" env:"APP_NAME" env-default:"moss"`
	LogLevel   string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info" validate:"oneof=debug info warn error"`
	PrettyLogs bool   `yaml:"pretty_logs" env:"PRETTY_LOGS" env-default:"false"`
	// Directory receiving one log file per run phase
	LogDir string `yaml:"log_dir" env:"LOG_DIR" env-default:"logs"`

	// APP schema name, defaults to the schema of the model's rule set
	SourceSchema string `yaml:"source_schema" env:"SOURCE_SCHEMA" env-default:""`
	// APP value list schema name, defaults like SourceSchema
	ValueListSchema string `yaml:"value_list_schema" env:"VALUE_LIST_SCHEMA" env-default:""`
	// APP system schema holding trigger and symbology procedures
	SystemSchema string `yaml:"system_schema" env:"SYSTEM_SCHEMA" env-default:"qgep_sys"`
	// INTERLIS-REL schema name
	TargetSchema string `yaml:"target_schema" env:"TARGET_SCHEMA" env-default:"pg2ili_abwasser" validate:"required"`
	// INTERLIS model identifier
	TargetModel string `yaml:"target_model" env:"TARGET_MODEL" env-default:"SIA405_ABWASSER_2015_LV95" validate:"required"`
	// Model used for the export file when it differs from TargetModel
	ExportModel string `yaml:"export_model" env:"EXPORT_MODEL" env-default:""`
	// Directory containing .ili model files
	ModelDir string `yaml:"model_dir" env:"MODEL_DIR" env-default:"%ILI_FROM_DB;%XTF_DIR;http://models.interlis.ch/"`
	SRID     int    `yaml:"srid" env:"SRID" env-default:"2056" validate:"gt=0"`

	// Language used to resolve value list labels
	ValueLanguage    string  `yaml:"value_language" env:"VALUE_LANGUAGE" env-default:"de" validate:"oneof=de fr en it ro"`
	LabelOrientation float64 `yaml:"label_orientation" env:"LABEL_ORIENTATION" env-default:"0"`
	LabelsFile       string  `yaml:"labels_file" env:"LABELS_FILE" env-default:""`
	// Written into metaattributes when the source row has no owner or provider
	DefaultDataOwner    string `yaml:"default_data_owner" env:"DEFAULT_DATA_OWNER" env-default:"unknown"`
	DefaultDataProvider string `yaml:"default_data_provider" env:"DEFAULT_DATA_PROVIDER" env-default:"unknown"`

	PGService  string `yaml:"pg_service" env:"PG_SERVICE" env-default:""`
	PGHost     string `yaml:"pg_host" env:"PG_HOST" env-default:""`
	PGPort     int    `yaml:"pg_port" env:"PG_PORT" env-default:"0"`
	PGDatabase string `yaml:"pg_db" env:"PG_DB" env-default:""`
	PGUser     string `yaml:"pg_user" env:"PG_USER" env-default:""`
	PGPassword string `yaml:"pg_password" env:"PG_PASSWORD" env-default:""`
	PGSSLMode  string `yaml:"pg_sslmode" env:"PG_SSLMODE" env-default:"disable"`
	// Max Open Conns
	DatabaseMaxOpenConns int `yaml:"db_max_open_conns" env:"DB_MAX_OPEN_CONNS" env-default:"4"`
	// Conn Max Lifetime
	DatabaseConnMaxLifetime time.Duration `yaml:"db_conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME" env-default:"30m"`

	JavaPath     string `yaml:"java_path" env:"JAVA_PATH" env-default:"java"`
	ToolJar      string `yaml:"tool_jar" env:"TOOL_JAR" env-default:"ili2pg.jar"`
	ValidatorJar string `yaml:"validator_jar" env:"VALIDATOR_JAR" env-default:"ilivalidator.jar"`

	// Feature flags handed to the loader
	SetupPgExt          bool `yaml:"setup_pg_ext" env:"ILI_SETUP_PG_EXT" env-default:"true"`
	CreateGeomIdx       bool `yaml:"create_geom_idx" env:"ILI_CREATE_GEOM_IDX" env-default:"true"`
	CreateFk            bool `yaml:"create_fk" env:"ILI_CREATE_FK" env-default:"true"`
	CreateFkIdx         bool `yaml:"create_fk_idx" env:"ILI_CREATE_FK_IDX" env-default:"true"`
	CreateTidCol        bool `yaml:"create_tid_col" env:"ILI_CREATE_TID_COL" env-default:"true"`
	ImportTid           bool `yaml:"import_tid" env:"ILI_IMPORT_TID" env-default:"true"`
	NoSmartMapping      bool `yaml:"no_smart_mapping" env:"ILI_NO_SMART_MAPPING" env-default:"true"`
	DisableValidation   bool `yaml:"disable_validation" env:"ILI_DISABLE_VALIDATION" env-default:"true"`
	SkipReferenceErrors bool `yaml:"skip_reference_errors" env:"ILI_SKIP_REFERENCE_ERRORS" env-default:"false"`
	DeleteData          bool `yaml:"delete_data" env:"ILI_DELETE_DATA" env-default:"false"`

	SkipValidation bool `yaml:"skip_validation" env:"SKIP_VALIDATION" env-default:"false"`
	RecreateSchema bool `yaml:"recreate_schema" env:"RECREATE_SCHEMA" env-default:"true"`

	Port                          int `yaml:"port" env:"PORT" env-default:"3000"`
	HttpServerWriteTimeoutSeconds int `yaml:"http_server_write_timeout_seconds" env:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS" env-default:"900"`
	HttpServerReadTimeoutSeconds  int `yaml:"http_server_read_timeout_seconds" env:"HTTP_SERVER_READ_TIMEOUT_SECONDS" env-default:"60"`
	// Upper bound for uploaded transfer files
	MaxUploadBytes     int64 `yaml:"max_upload_bytes" env:"MAX_UPLOAD_BYTES" env-default:"536870912"`
	StartupMaxAttempts int   `yaml:"startup_max_attempts" env:"STARTUP_MAX_ATTEMPTS" env-default:"5"`

	// Auth Enabled
	AuthEnabled bool `yaml:"auth_enabled" env:"AUTH_ENABLED" env-default:"false"`
	// Auth Issuer URL
	AuthIssuerURL string `yaml:"auth_issuer_url" env:"AUTH_ISSUER_URL" env-default:"" validate:"required_if=AuthEnabled true"`
	// Auth Client ID
	AuthClientID string `yaml:"auth_client_id" env:"AUTH_CLIENT_ID" env-default:""`

	// Redis run lock, disabled when RedisHost is empty
	RedisHost     string        `yaml:"redis_host" env:"REDIS_HOST" env-default:""`
	RedisPort     int           `yaml:"redis_port" env:"REDIS_PORT" env-default:"6379"`
	RedisPassword string        `yaml:"redis_password" env:"REDIS_PASSWORD" env-default:""`
	RedisDB       int           `yaml:"redis_db" env:"REDIS_DB" env-default:"0"`
	RunLockTTL    time.Duration `yaml:"run_lock_ttl" env:"RUN_LOCK_TTL" env-default:"2h"`

	// Kafka progress events, disabled when KafkaBrokers is empty
	KafkaBrokers       []string `yaml:"kafka_brokers" env:"KAFKA_BROKERS"`
	KafkaProgressTopic string   `yaml:"kafka_progress_topic" env:"KAFKA_PROGRESS_TOPIC" env-default:"moss-progress"`
	KafkaRequiredAcks  int      `yaml:"kafka_required_acks" env:"KAFKA_REQUIRED_ACKS" env-default:"1"`
	KafkaCompression   string   `yaml:"kafka_compression" env:"KAFKA_COMPRESSION" env-default:"snappy"`

	// Tracing, disabled when OtelEndpoint is empty
	OtelEndpoint string `yaml:"otel_endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT" env-default:""`
	OtelProtocol string `yaml:"otel_protocol" env:"OTEL_EXPORTER_OTLP_PROTOCOL" env-default:"grpc" validate:"oneof=grpc http"`
	OtelInsecure bool   `yaml:"otel_insecure" env:"OTEL_EXPORTER_OTLP_INSECURE" env-default:"true"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads the optional config file, then the environment. A .env file in
// the working directory is loaded first when present.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	cfg := &Config{}
	var err error
	if path != "" {
		err = cleanenv.ReadConfig(path, cfg)
	} else {
		err = cleanenv.ReadEnv(cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := cfg.resolveService(); err != nil {
		return nil, err
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// resolveService fills unset connection settings from the pg service file.
func (c *Config) resolveService() error {
	if c.PGService == "" {
		c.applyConnectionDefaults()
		return nil
	}

	path := os.Getenv("PGSERVICEFILE")
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to locate pg service file: %w", err)
		}
		path = filepath.Join(home, ".pg_service.conf")
	}

	file, err := pgservicefile.ReadServicefile(path)
	if err != nil {
		return fmt.Errorf("failed to read pg service file %s: %w", path, err)
	}

	return c.ApplyService(file)
}

// ApplyService copies the settings of the configured service into every
// connection field that is still empty.
func (c *Config) ApplyService(file *pgservicefile.Servicefile) error {
	service, err := file.GetService(c.PGService)
	if err != nil {
		return fmt.Errorf("pg service %q: %w", c.PGService, err)
	}

	settings := service.Settings
	if c.PGHost == "" {
		c.PGHost = settings["host"]
	}
	if c.PGPort == 0 && settings["port"] != "" {
		port, err := strconv.Atoi(settings["port"])
		if err != nil {
			return fmt.Errorf("pg service %q: invalid port %q", c.PGService, settings["port"])
		}
		c.PGPort = port
	}
	if c.PGDatabase == "" {
		c.PGDatabase = settings["dbname"]
	}
	if c.PGUser == "" {
		c.PGUser = settings["user"]
	}
	if c.PGPassword == "" {
		c.PGPassword = settings["password"]
	}
	if mode, ok := settings["sslmode"]; ok {
		c.PGSSLMode = mode
	}

	c.applyConnectionDefaults()
	return nil
}

func (c *Config) applyConnectionDefaults() {
	if c.PGHost == "" {
		c.PGHost = "localhost"
	}
	if c.PGPort == 0 {
		c.PGPort = 5432
	}
	if c.PGDatabase == "" {
		c.PGDatabase = "qgep_prod"
	}
	if c.PGUser == "" {
		c.PGUser = "postgres"
	}
}

// DSN returns the lib/pq connection string.
func (c *Config) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.PGUser, c.PGPassword),
		Host:   fmt.Sprintf("%s:%d", c.PGHost, c.PGPort),
		Path:   "/" + c.PGDatabase,
	}
	q := u.Query()
	q.Set("sslmode", c.PGSSLMode)
	q.Set("application_name", c.AppName)
	u.RawQuery = q.Encode()
	return u.String()
}

// Model returns the model used for the exported file.
func (c *Config) Model() string {
	if c.ExportModel != "" {
		return c.ExportModel
	}
	return c.TargetModel
}
