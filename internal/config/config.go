// Package config provides configuration management.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	cgerrors "circularity-gap/internal/errors"
	"circularity-gap/internal/logging"
)

// Dataset sources
const (
	SourceDir = "dir"
	SourceS3  = "s3"
)

// Config is the main application configuration
type Config struct {
	// Version is the configuration version
	Version string `json:"version" yaml:"version"`

	// Dataset describes where the source tables come from
	Dataset DatasetConfig `json:"dataset" yaml:"dataset"`

	// Compute contains pipeline settings
	Compute ComputeConfig `json:"compute" yaml:"compute"`

	// Output contains report settings
	Output OutputConfig `json:"output" yaml:"output"`

	// Storage contains object storage settings
	Storage StorageConfig `json:"storage" yaml:"storage"`

	// Logging contains logging configuration
	Logging logging.Config `json:"logging" yaml:"logging"`
}

// DatasetConfig locates the source tables
type DatasetConfig struct {
	// Source is "dir" or "s3"
	Source string `json:"source" yaml:"source"`

	// Dir is the directory holding RE_ACT.txt, ..., POP.txt
	Dir string `json:"dir" yaml:"dir"`

	// Prefix is the object key prefix when Source is s3
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`

	// SchemaFile optionally overrides the built-in classifier schema
	SchemaFile string `json:"schema_file,omitempty" yaml:"schema_file,omitempty"`

	// CacheSize is the number of parsed tables kept in memory
	CacheSize int `json:"cache_size" yaml:"cache_size"`
}

// ComputeConfig contains pipeline settings
type ComputeConfig struct {
	// Workers bounds the per-country worker pool
	Workers int `json:"workers" yaml:"workers"`
}

// OutputConfig contains output-related settings
type OutputConfig struct {
	// Path is the workbook path; empty means results_YYYYMMDD.xlsx
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	// Formats lists extra renderings (cli, json)
	Formats []string `json:"formats" yaml:"formats"`

	// ChartPath is an optional PNG chart of the regional gap
	ChartPath string `json:"chart_path,omitempty" yaml:"chart_path,omitempty"`

	// Precision is the number of decimals shown in text renderings
	Precision int32 `json:"precision" yaml:"precision"`

	// Upload copies written artifacts to the storage bucket
	Upload bool `json:"upload" yaml:"upload"`

	// ArchiveDir keeps a summary of every run for history; empty disables it
	ArchiveDir string `json:"archive_dir,omitempty" yaml:"archive_dir,omitempty"`
}

// StorageConfig contains S3-compatible storage settings
type StorageConfig struct {
	Endpoint  string `json:"endpoint" yaml:"endpoint"`
	Region    string `json:"region" yaml:"region"`
	AccessKey string `json:"access_key,omitempty" yaml:"access_key,omitempty"`
	SecretKey string `json:"secret_key,omitempty" yaml:"secret_key,omitempty"`
	Bucket    string `json:"bucket" yaml:"bucket"`
	UseSSL    bool   `json:"use_ssl" yaml:"use_ssl"`
}

// Default returns a default configuration
func Default() *Config {
	return &Config{
		Version: "1.0",
		Dataset: DatasetConfig{
			Source:    SourceDir,
			Dir:       "exio_mr_hiot_v3.3.15_2011",
			CacheSize: 16,
		},
		Compute: ComputeConfig{
			Workers: runtime.NumCPU(),
		},
		Output: OutputConfig{
			Formats:    []string{"cli"},
			Precision:  3,
			ArchiveDir: ".cgap/runs",
		},
		Storage: StorageConfig{
			Region: "us-east-1",
			Bucket: "circularity-gap",
		},
		Logging: logging.DefaultConfig(),
	}
}

// Load loads configuration from a JSON or YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}

	config := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, config)
	default:
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, cgerrors.Config("decode "+path, err)
	}

	return config, nil
}

// Save saves configuration to a file
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// ApplyEnv loads .env (if present) and applies CGAP_* overrides.
func (c *Config) ApplyEnv() {
	_ = godotenv.Load()

	setString(&c.Dataset.Source, "CGAP_SOURCE")
	setString(&c.Dataset.Dir, "CGAP_DATA_DIR")
	setString(&c.Dataset.Prefix, "CGAP_DATA_PREFIX")
	setString(&c.Dataset.SchemaFile, "CGAP_SCHEMA_FILE")
	setString(&c.Output.Path, "CGAP_OUTPUT")
	setString(&c.Output.ArchiveDir, "CGAP_ARCHIVE_DIR")
	setString(&c.Storage.Endpoint, "CGAP_S3_ENDPOINT")
	setString(&c.Storage.Region, "CGAP_S3_REGION")
	setString(&c.Storage.Bucket, "CGAP_S3_BUCKET")
	setString(&c.Storage.AccessKey, "CGAP_S3_ACCESS_KEY")
	setString(&c.Storage.SecretKey, "CGAP_S3_SECRET_KEY")
	setString(&c.Logging.Level, "CGAP_LOG_LEVEL")

	if v := strings.TrimSpace(os.Getenv("CGAP_WORKERS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Compute.Workers = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("CGAP_S3_USE_SSL")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Storage.UseSSL = b
		}
	}
}

// Validate checks the configuration for obvious mistakes
func (c *Config) Validate() error {
	switch c.Dataset.Source {
	case SourceDir:
		if c.Dataset.Dir == "" {
			return cgerrors.Config("dataset.dir is required for the dir source", nil)
		}
	case SourceS3:
		if c.Storage.Endpoint == "" || c.Storage.Bucket == "" {
			return cgerrors.Config("storage.endpoint and storage.bucket are required for the s3 source", nil)
		}
	default:
		return cgerrors.Config("unknown dataset.source "+strconv.Quote(c.Dataset.Source), nil)
	}
	if c.Output.Upload && (c.Storage.Endpoint == "" || c.Storage.Bucket == "") {
		return cgerrors.Config("output.upload requires storage.endpoint and storage.bucket", nil)
	}
	if c.Compute.Workers < 0 {
		return cgerrors.Config("compute.workers must not be negative", nil)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

// Global configuration instance
var globalConfig = Default()

// Get returns the global configuration
func Get() *Config {
	return globalConfig
}

// Set sets the global configuration
func Set(config *Config) {
	globalConfig = config
}
