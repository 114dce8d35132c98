// Package config loads settings from a YAML file, an optional .env file and
// ROSTER_INJECTOR_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"rosterinjector/internal/blob"
	"rosterinjector/internal/blob/core"
	"rosterinjector/internal/infra/blob/s3"
	"rosterinjector/pkg/domain"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ROSTER_INJECTOR_"

// Config holds process settings.
type Config struct {
	SaveDir string        `yaml:"save_dir"`
	WorkDir string        `yaml:"work_dir"`
	Log     LogConfig     `yaml:"log"`
	Backup  BackupConfig  `yaml:"backup"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // text|json
}

// BackupConfig selects where container backups are kept.
type BackupConfig struct {
	Driver string   `yaml:"driver"` // fs|memory|s3
	Root   string   `yaml:"root"`
	S3     S3Config `yaml:"s3"`
}

// S3Config holds the s3 driver settings. Credentials left empty fall back to
// the default AWS chain.
type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	Prefix          string `yaml:"prefix"`
	PathStyle       bool   `yaml:"path_style"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// MetricsConfig controls the Prometheus textfile export.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// Default returns settings usable without any file or environment.
func Default() Config {
	work := filepath.Join(os.TempDir(), "roster-injector")
	return Config{
		WorkDir: work,
		Log:     LogConfig{Level: "info", Format: "text"},
		Backup:  BackupConfig{Driver: string(core.DriverFilesystem), Root: filepath.Join(work, "backups")},
	}
}

// Load reads path (skipped when empty), then envFile (ignored when missing),
// then applies environment overrides and validates the result.
func Load(path, envFile string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, domain.IOError{Op: "read config", Path: path, Err: err}
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, domain.ValidationError{Field: "config", Reason: fmt.Sprintf("failed to unmarshal %s: %v", path, err)}
		}
	}
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, domain.ValidationError{Field: "env_file", Reason: fmt.Sprintf("failed to load %s: %v", envFile, err)}
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	str := map[string]*string{
		"SAVE_DIR":                    &c.SaveDir,
		"WORK_DIR":                    &c.WorkDir,
		"LOG_LEVEL":                   &c.Log.Level,
		"LOG_FORMAT":                  &c.Log.Format,
		"BACKUP_DRIVER":               &c.Backup.Driver,
		"BACKUP_ROOT":                 &c.Backup.Root,
		"BACKUP_S3_BUCKET":            &c.Backup.S3.Bucket,
		"BACKUP_S3_REGION":            &c.Backup.S3.Region,
		"BACKUP_S3_ENDPOINT":          &c.Backup.S3.Endpoint,
		"BACKUP_S3_PREFIX":            &c.Backup.S3.Prefix,
		"BACKUP_S3_ACCESS_KEY_ID":     &c.Backup.S3.AccessKeyID,
		"BACKUP_S3_SECRET_ACCESS_KEY": &c.Backup.S3.SecretAccessKey,
		"METRICS_TEXTFILE":            &c.Metrics.Textfile,
	}
	for name, dst := range str {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			*dst = v
		}
	}
	if v, ok := os.LookupEnv(EnvPrefix + "BACKUP_S3_PATH_STYLE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return domain.ValidationError{Field: EnvPrefix + "BACKUP_S3_PATH_STYLE", Reason: fmt.Sprintf("invalid boolean %q", v)}
		}
		c.Backup.S3.PathStyle = b
	}
	return nil
}

// Validate checks enumerated settings.
func (c Config) Validate() error {
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return domain.ValidationError{Field: "log.format", Reason: fmt.Sprintf("unknown format %q", c.Log.Format)}
	}
	switch core.Driver(c.Backup.Driver) {
	case "", core.DriverFilesystem, core.DriverMemory:
	case core.DriverS3:
		if c.Backup.S3.Bucket == "" {
			return domain.ValidationError{Field: "backup.s3.bucket", Reason: "required for the s3 driver"}
		}
	default:
		return domain.ValidationError{Field: "backup.driver", Reason: fmt.Sprintf("unknown driver %q", c.Backup.Driver)}
	}
	return nil
}

// BlobConfig maps the backup settings onto the blob factory.
func (c Config) BlobConfig() blob.Config {
	return blob.Config{
		Driver: core.Driver(c.Backup.Driver),
		Root:   c.Backup.Root,
		S3: s3.Config{
			Bucket:          c.Backup.S3.Bucket,
			Region:          c.Backup.S3.Region,
			Endpoint:        c.Backup.S3.Endpoint,
			Prefix:          c.Backup.S3.Prefix,
			PathStyle:       c.Backup.S3.PathStyle,
			AccessKeyID:     c.Backup.S3.AccessKeyID,
			SecretAccessKey: c.Backup.S3.SecretAccessKey,
		},
	}
}

// NewLogger builds the configured slog handler writing to w.
func (c LogConfig) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func parseLevel(s string) (slog.Level, error) {
	if s == "" {
		return slog.LevelInfo, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, domain.ValidationError{Field: "log.level", Reason: fmt.Sprintf("unknown level %q", s)}
	}
	return level, nil
}
