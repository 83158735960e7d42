// Package config loads the settings shared by the `dupes` commands.
package config

import (
	"context"
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/kelseyhightower/envconfig"
	"github.com/weberc2/dupes/pkg/dupes"
	"github.com/weberc2/dupes/pkg/jobstore"
	"github.com/weberc2/dupes/pkg/objectstore"
	"github.com/weberc2/dupes/pkg/trash"
	"gopkg.in/yaml.v2"
)

const (
	envVarPrefix = "DUPES"
	appName      = "dupes"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

type Config struct {
	Addr      string `envconfig:"ADDR"       yaml:"addr"`
	Workers   int    `envconfig:"WORKERS"    yaml:"workers"`
	Algorithm string `envconfig:"ALGORITHM"  yaml:"algorithm"`
	Prefilter bool   `envconfig:"PREFILTER"  yaml:"prefilter"`
	TrashDir  string `envconfig:"TRASH_DIR"  yaml:"trashDir"`
	LogLevel  string `envconfig:"LOG_LEVEL"  yaml:"logLevel"`
	LogFormat string `envconfig:"LOG_FORMAT" yaml:"logFormat"`

	Store    string                  `envconfig:"STORE" yaml:"store"`
	Postgres jobstore.PostgresConfig `envconfig:"PG"    yaml:"postgres"`

	// ExportDir, if set, exports reports to a local directory (one
	// subdirectory per bucket) rather than S3.
	ExportBucket   string `envconfig:"EXPORT_BUCKET"   yaml:"exportBucket"`
	ExportPrefix   string `envconfig:"EXPORT_PREFIX"   yaml:"exportPrefix"`
	ExportDir      string `envconfig:"EXPORT_DIR"      yaml:"exportDir"`
	ExportRegion   string `envconfig:"EXPORT_REGION"   yaml:"exportRegion"`
	ExportEndpoint string `envconfig:"EXPORT_ENDPOINT" yaml:"exportEndpoint"`

	// AccessKey, if set, requires mutating API requests to carry an access
	// token signed by the corresponding private key.
	AccessKey PublicKey `envconfig:"ACCESS_KEY" yaml:"accessKey"`
}

// Default returns the configuration used where neither the config file nor
// the environment say otherwise.
func Default() *Config {
	return &Config{
		Addr:         "127.0.0.1:8080",
		Algorithm:    string(dupes.AlgorithmMD5),
		LogLevel:     "info",
		LogFormat:    "text",
		Store:        StoreMemory,
		Postgres:     jobstore.DefaultPostgresConfig(),
		ExportBucket: appName,
		ExportPrefix: "reports/",
	}
}

// Load reads the YAML file named by `DUPES_CONFIG_FILE` (default
// `$XDG_CONFIG_HOME/dupes.yaml`) over the defaults and then applies any
// `DUPES_*` environment variables. A missing file is not an error.
func Load() (*Config, error) {
	configFile := os.Getenv(envVarPrefix + "_CONFIG_FILE")
	if configFile == "" {
		configFile = filepath.Join(xdg.ConfigHome, appName+".yaml")
	}
	return LoadFile(configFile)
}

func LoadFile(configFile string) (*Config, error) {
	c := Default()
	data, err := os.ReadFile(configFile)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	} else if err := yaml.UnmarshalStrict(data, c); err != nil {
		return nil, fmt.Errorf(
			"unmarshaling config file `%s`: %w",
			configFile,
			err,
		)
	}

	if err := envconfig.Process(envVarPrefix, c); err != nil {
		return nil, fmt.Errorf("parsing environment variables: %w", err)
	}

	return c, nil
}

func (c *Config) Validate() error {
	if y, e, err := func() (string, string, error) {
		if c.Addr == "" {
			return "addr", "ADDR", errMissing
		}
		if c.Workers < 0 {
			return "workers", "WORKERS", errNegative
		}
		if _, err := dupes.ParseAlgorithm(c.Algorithm); err != nil {
			return "algorithm", "ALGORITHM", err
		}
		if _, err := c.level(); err != nil {
			return "logLevel", "LOG_LEVEL", err
		}
		if c.LogFormat != "text" && c.LogFormat != "json" {
			return "logFormat", "LOG_FORMAT", fmt.Errorf(
				"wanted `text` or `json`; found `%s`",
				c.LogFormat,
			)
		}
		switch c.Store {
		case StoreMemory:
		case StorePostgres:
			if c.Postgres.Host == "" {
				return "postgres.host", "PG_HOST", errMissing
			}
		default:
			return "store", "STORE", fmt.Errorf(
				"wanted `%s` or `%s`; found `%s`",
				StoreMemory,
				StorePostgres,
				c.Store,
			)
		}
		return "", "", nil
	}(); y != "" {
		return fmt.Errorf(
			"invalid configuration: %s / %s_%s: %w",
			y,
			envVarPrefix,
			e,
			err,
		)
	}
	return nil
}

var (
	errMissing  = errors.New("missing required value")
	errNegative = errors.New("must not be negative")
)

// Options returns the search options. The configuration must be valid.
func (c *Config) Options() dupes.Options {
	algorithm, _ := dupes.ParseAlgorithm(c.Algorithm)
	return dupes.Options{
		Algorithm: algorithm,
		Workers:   c.Workers,
		Prefilter: c.Prefilter,
	}
}

// Trash returns the configured trash, defaulting to the user's home trash.
func (c *Config) Trash() *trash.Trash {
	if c.TrashDir != "" {
		return &trash.Trash{Dir: c.TrashDir}
	}
	return trash.Default()
}

// ObjectStore returns the store that reports are exported to.
func (c *Config) ObjectStore() (objectstore.ObjectStore, error) {
	if c.ExportDir != "" {
		return &objectstore.DirObjectStore{Root: c.ExportDir}, nil
	}
	return objectstore.NewS3ObjectStore(c.ExportRegion, c.ExportEndpoint)
}

// SearchStore opens the configured search store. The returned function
// releases its resources.
func (c *Config) SearchStore(
	ctx context.Context,
) (jobstore.SearchStore, func() error, error) {
	if c.Store == StorePostgres {
		store, err := jobstore.OpenPostgres(ctx, &c.Postgres)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	}
	return &jobstore.MemorySearchStore{}, func() error { return nil }, nil
}

// Logger builds the logger writing to `w`. The configuration must be valid.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, _ := c.level()
	options := slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, &options))
	}
	return slog.New(slog.NewTextHandler(w, &options))
}

func (c *Config) level() (level slog.Level, err error) {
	err = level.UnmarshalText([]byte(strings.ToUpper(c.LogLevel)))
	return
}

// PublicKey is an ECDSA public key which decodes from PEM.
type PublicKey ecdsa.PublicKey

func (pk *PublicKey) Decode(value string) error {
	data := []byte(value)

	for {
		block, rest := pem.Decode(data)
		if block == nil {
			return fmt.Errorf("input isn't PEM data")
		}
		if block.Type != "PUBLIC KEY" {
			if len(rest) > 0 {
				data = rest
				continue
			}
			return fmt.Errorf("PEM data is missing a 'PUBLIC KEY' block")
		}
		pub, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return fmt.Errorf("parsing x509 PKIX public key: %w", err)
		}
		key, ok := pub.(*ecdsa.PublicKey)
		if !ok {
			return fmt.Errorf(
				"invalid key type; wanted *ecdsa.PublicKey; found %T",
				pub,
			)
		}
		*pk = PublicKey(*key)
		return nil
	}
}

func (pk *PublicKey) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return fmt.Errorf("yaml-unmarshaling *PublicKey: %w", err)
	}

	if err := pk.Decode(s); err != nil {
		return fmt.Errorf("yaml-unmarshaling *PublicKey: %w", err)
	}

	return nil
}

// Std returns the key, or `nil` if none was configured.
func (pk *PublicKey) Std() *ecdsa.PublicKey {
	if pk.X == nil {
		return nil
	}
	return (*ecdsa.PublicKey)(pk)
}
