package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"

	"github.com/xenking/feed-import/internal/storage/s3"
	"github.com/xenking/feed-import/pkg/httpclient"
)

// ErrDatabaseURLRequired is returned when no database URL is configured.
var ErrDatabaseURLRequired = errors.New("database URL is required: set IMPORT_DATABASE_URL or DATABASE_URL")

// Config holds the complete application configuration, loadable from
// environment variables (IMPORT_ prefix), flags, or YAML config files.
type Config struct {
	URL         string `usage:"Feed URL: http(s)://, file:// or a local path" flag:"url"`
	DatabaseURL string `usage:"PostgreSQL connection URL (IMPORT_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	Timezone    string `default:"UTC" usage:"Zone of feed dates without an explicit offset" flag:"timezone"`
	BloomIndex  bool   `default:"true" usage:"Preload asset checksums into a bloom filter" flag:"bloom-index"`
	Fetch       httpclient.Config
	S3          s3.Config
}

// LoadConfig loads configuration from environment variables, YAML config
// files and args (os.Args[1:] when nil).
func LoadConfig(args []string) (*Config, error) {
	if args == nil {
		args = os.Args[1:]
	}

	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix:        "IMPORT",
		AllowUnknownEnvs: true,
		Args:             args,
		Files:            []string{"import.yaml", "/etc/feed-import/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if _, err := cfg.Location(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, errors.Wrapf(err, "load timezone %q", c.Timezone)
	}
	return loc, nil
}

// applyPlatformDefaults maps the conventional DATABASE_URL variable onto the
// IMPORT_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
}
