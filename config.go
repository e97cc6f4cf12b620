package target

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/hugr-lab/target-mssql/internal/compress"
	"github.com/hugr-lab/target-mssql/message"
	"github.com/hugr-lab/target-mssql/sqltype"
)

// Defaults applied by LoadConfig and NewTarget.
const (
	DefaultPort         = 1433
	DefaultMaxBatchSize = 10000
	DefaultBatchFormat  = message.FormatJSONL
	appName             = "target-mssql"
)

// Standard errors returned by the target package.
var (
	// ErrInvalidConfig indicates Config validation failed.
	ErrInvalidConfig = errors.New("invalid target config")

	// ErrUnknownStream indicates a RECORD or BATCH arrived before the SCHEMA
	// of its stream.
	ErrUnknownStream = errors.New("stream has no schema")
)

// BatchEncoding selects the encoding of staged batch files.
type BatchEncoding struct {
	// Format of staged files.
	// OPTIONAL: "jsonl", the only supported format.
	Format string `mapstructure:"format"`

	// Compression of staged files: "none", "gzip" or "zstd".
	// OPTIONAL: uncompressed when empty.
	Compression string `mapstructure:"compression"`
}

// BatchStorage locates staged batch files.
type BatchStorage struct {
	// Root is the directory URL batch files are placed in,
	// e.g. "file://test/batches" or "s3://bucket/staging".
	// OPTIONAL: each manifest entry is resolved from its own URL when empty.
	Root string `mapstructure:"root"`

	// Prefix of batch file names, e.g. "test-batch-". Manifest entries with
	// another name are rejected, so only staged files are ever deleted.
	// OPTIONAL: any name is accepted when empty.
	Prefix string `mapstructure:"prefix"`
}

// BatchConfig groups the batch message settings.
type BatchConfig struct {
	Encoding BatchEncoding `mapstructure:"encoding"`
	Storage  BatchStorage  `mapstructure:"storage"`
}

// Config contains the configuration of a SQL Server target.
type Config struct {
	// Host is the SQL Server host name.
	// REQUIRED: MUST be non-empty.
	Host string `mapstructure:"host"`

	// Port is the SQL Server TCP port.
	// OPTIONAL: 1433 when zero.
	Port int `mapstructure:"port"`

	// User and Password authenticate the connection. OPTIONAL.
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`

	// Database is the default database of the connection. OPTIONAL.
	Database string `mapstructure:"database"`

	// TrustServerCertificate skips server certificate validation.
	// OPTIONAL: false.
	TrustServerCertificate bool `mapstructure:"trust_server_certificate"`

	// URLQuery holds extra connection string parameters, e.g. "encrypt".
	// OPTIONAL.
	URLQuery map[string]string `mapstructure:"sqlalchemy_url_query"`

	// DefaultTargetSchema places every stream in this schema. When empty a
	// stream named "schema-table" is split into schema and table.
	// OPTIONAL.
	DefaultTargetSchema string `mapstructure:"default_target_schema"`

	// ExtendedTypeMode enables the full SQL Server type mapping (native BIT,
	// DECIMAL, MONEY, temporal and identifier types).
	// OPTIONAL: false uses the legacy mapping.
	ExtendedTypeMode bool `mapstructure:"hd_jsonschema_types"`

	// PrimaryKeyMaxLength caps string primary key columns.
	// OPTIONAL: 450 when zero.
	PrimaryKeyMaxLength int `mapstructure:"primary_key_max_length"`

	// AllowColumnAdd enables adding missing columns. LoadConfig defaults it to true.
	AllowColumnAdd bool `mapstructure:"allow_column_add"`

	// AllowColumnRename enables renaming columns. LoadConfig defaults it to true.
	AllowColumnRename bool `mapstructure:"allow_column_rename"`

	// AllowColumnAlter MUST be false: column types are never altered.
	AllowColumnAlter bool `mapstructure:"allow_column_alter"`

	// AllowTempTables MUST be false: temporary tables are not supported.
	AllowTempTables bool `mapstructure:"allow_temp_tables"`

	// StrictInsert returns bulk insert failures instead of logging them and
	// counting zero inserted rows.
	// OPTIONAL: false.
	StrictInsert bool `mapstructure:"strict_insert"`

	// MaxBatchSize is the number of records buffered per stream before
	// they are loaded.
	// OPTIONAL: 10000 when zero.
	MaxBatchSize int `mapstructure:"max_batch_size"`

	// Batch configures BATCH message handling. OPTIONAL.
	Batch BatchConfig `mapstructure:"batch_config"`

	// Logger for internal logging.
	// OPTIONAL: Uses slog.Default() if nil.
	// If Logger is also provided, LogLevel is ignored.
	Logger *slog.Logger `mapstructure:"-"`

	// LogLevel sets the logging level of a text logger on stderr.
	// OPTIONAL: If nil, uses Logger or slog.Default().
	LogLevel *slog.Level `mapstructure:"-"`
}

// LoadConfig reads a JSON (or any viper-supported) config file and applies
// defaults. Keys follow the snake_case names of the mapstructure tags.
//
// Example config:
//
//	{
//	    "host": "localhost",
//	    "user": "sa",
//	    "password": "secret",
//	    "database": "warehouse",
//	    "hd_jsonschema_types": true,
//	    "batch_config": {"encoding": {"format": "jsonl", "compression": "gzip"}}
//	}
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("TARGET_MSSQL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}

	if s := v.GetString("log_level"); s != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(s)); err != nil {
			return nil, fmt.Errorf("%w: log_level %q: %v", ErrInvalidConfig, s, err)
		}
		cfg.LogLevel = &level
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", DefaultPort)
	v.SetDefault("primary_key_max_length", sqltype.DefaultPrimaryKeyLength)
	v.SetDefault("allow_column_add", true)
	v.SetDefault("allow_column_rename", true)
	v.SetDefault("max_batch_size", DefaultMaxBatchSize)
	v.SetDefault("batch_config.encoding.format", DefaultBatchFormat)
}

// Validate checks the connection settings and the loader settings.
func (c *Config) Validate() error {
	if err := c.validateConnection(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return c.validateSettings()
}

func (c *Config) validateConnection() error {
	if c.Host == "" {
		return errors.New("host is required")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	return nil
}

// validateSettings checks everything but the connection.
func (c *Config) validateSettings() error {
	if err := c.validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

func (c *Config) validate() error {
	if c.AllowColumnAlter {
		return errors.New("allow_column_alter is not supported")
	}
	if c.AllowTempTables {
		return errors.New("allow_temp_tables is not supported")
	}
	if c.PrimaryKeyMaxLength < 0 || c.PrimaryKeyMaxLength > sqltype.MaxNCharLength {
		return fmt.Errorf("primary_key_max_length %d out of range", c.PrimaryKeyMaxLength)
	}
	if c.MaxBatchSize < 0 {
		return fmt.Errorf("max_batch_size %d is negative", c.MaxBatchSize)
	}
	if f := c.Batch.Encoding.Format; f != "" && f != message.FormatJSONL {
		return fmt.Errorf("batch format %q is not supported", f)
	}
	if _, err := compress.Parse(c.Batch.Encoding.Compression); err != nil {
		return err
	}
	return nil
}

// DSN returns the go-mssqldb connection URL.
func (c *Config) DSN() string {
	return c.connURL().String()
}

// RedactedDSN returns the connection URL with the password masked.
// Only the redacted form may appear in logs.
func (c *Config) RedactedDSN() string {
	return c.connURL().Redacted()
}

func (c *Config) connURL() *url.URL {
	port := c.Port
	if port == 0 {
		port = DefaultPort
	}
	u := &url.URL{
		Scheme: "sqlserver",
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(port)),
	}
	if c.User != "" {
		if c.Password != "" {
			u.User = url.UserPassword(c.User, c.Password)
		} else {
			u.User = url.User(c.User)
		}
	}

	q := url.Values{}
	keys := make([]string, 0, len(c.URLQuery))
	for k := range c.URLQuery {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		// The driver key only selects an ODBC driver and has no meaning here.
		if strings.EqualFold(k, "driver") {
			continue
		}
		q.Set(k, c.URLQuery[k])
	}
	if c.Database != "" {
		q.Set("database", c.Database)
	}
	if c.TrustServerCertificate {
		q.Set("TrustServerCertificate", "true")
	}
	q.Set("app name", appName)
	u.RawQuery = q.Encode()
	return u
}

// logger resolves the configured logger.
func (c *Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	if c.LogLevel != nil {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: *c.LogLevel}))
	}
	return slog.Default()
}
