package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Supported signature store backends.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendMariaDB  = "mariadb"
)

type Config struct {
	Store       StoreConfig
	Database    DatabaseConfig
	MariaDB     MariaDBConfig
	Recognition RecognitionConfig
	Enrollment  EnrollmentConfig
	Web         WebConfig
	Log         LogConfig
}

type StoreConfig struct {
	Backend   string `yaml:"backend"`   // file, postgres or mariadb
	FacesDir  string `yaml:"faces_dir"` // directory of <label>.face files for the file backend
	Extension string `yaml:"extension"`
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type MariaDBConfig struct {
	DSN string // e.g. faces:faces@tcp(mariadb:3306)/faces
}

type RecognitionConfig struct {
	Threshold float64 `yaml:"threshold"`
}

type EnrollmentConfig struct {
	AutoNamePrefix string `yaml:"auto_name_prefix"`
}

type WebConfig struct {
	Host              string   `yaml:"host"`
	Port              int      `yaml:"port"`
	MaxSignatureBytes int64    `yaml:"max_signature_bytes"`
	AllowedOrigins    []string `yaml:"allowed_origins"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// defaultsFile mirrors the layout of defaults.yaml.
type defaultsFile struct {
	Store       StoreConfig       `yaml:"store"`
	Recognition RecognitionConfig `yaml:"recognition"`
	Enrollment  EnrollmentConfig  `yaml:"enrollment"`
	Web         WebConfig         `yaml:"web"`
	Log         LogConfig         `yaml:"log"`
}

// envString returns the environment variable or the default when unset.
func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
// Returns the default value if the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envList splits a comma-separated environment variable, dropping blanks.
func envList(key string) []string {
	var out []string
	for item := range strings.SplitSeq(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func loadDefaults() defaultsFile {
	var d defaultsFile
	if err := yaml.Unmarshal(defaultsYAML, &d); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}
	return d
}

func Load() *Config {
	d := loadDefaults()

	return &Config{
		Store: StoreConfig{
			Backend:   strings.ToLower(envString("STORE_BACKEND", d.Store.Backend)),
			FacesDir:  envString("FACES_DIR", d.Store.FacesDir),
			Extension: envString("FACES_EXTENSION", d.Store.Extension),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		MariaDB: MariaDBConfig{
			DSN: os.Getenv("MARIADB_DSN"),
		},
		Recognition: RecognitionConfig{
			Threshold: envFloat("RECOGNITION_THRESHOLD", d.Recognition.Threshold),
		},
		Enrollment: EnrollmentConfig{
			AutoNamePrefix: envString("AUTO_NAME_PREFIX", d.Enrollment.AutoNamePrefix),
		},
		Web: WebConfig{
			Host:              envString("WEB_HOST", d.Web.Host),
			Port:              envInt("WEB_PORT", d.Web.Port),
			MaxSignatureBytes: int64(envInt("MAX_SIGNATURE_BYTES", int(d.Web.MaxSignatureBytes))),
			AllowedOrigins:    envList("WEB_ALLOWED_ORIGINS"),
		},
		Log: LogConfig{
			Level: envString("LOG_LEVEL", d.Log.Level),
		},
	}
}

// Validate checks the settings required by the selected backend.
func (c *Config) Validate() error {
	if c.Recognition.Threshold <= 0 {
		return errors.New("recognition threshold must be positive")
	}
	if c.Enrollment.AutoNamePrefix == "" {
		return errors.New("auto name prefix must not be empty")
	}
	switch c.Store.Backend {
	case BackendFile:
		if c.Store.FacesDir == "" {
			return errors.New("FACES_DIR is required for the file backend")
		}
	case BackendPostgres:
		if c.Database.URL == "" {
			return errors.New("DATABASE_URL environment variable is required for the postgres backend")
		}
	case BackendMariaDB:
		if c.MariaDB.DSN == "" {
			return errors.New("MARIADB_DSN environment variable is required for the mariadb backend")
		}
	default:
		return fmt.Errorf("unknown store backend %q (expected file, postgres or mariadb)", c.Store.Backend)
	}
	return nil
}
