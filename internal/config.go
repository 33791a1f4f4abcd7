package internal

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/docshelf/internal/catalog"
	"github.com/starford/docshelf/internal/scanner"
	"github.com/starford/docshelf/internal/storage"
	"github.com/starford/docshelf/internal/syncer"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Library LibraryConfig     `yaml:"library"`
	SQLite  SQLiteConfig      `yaml:"sqlite"`
	Sync    SyncConfig        `yaml:"sync"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Library.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	return c.Sync.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// LibraryConfig locates the documents on disk.
type LibraryConfig struct {
	Root      string        `yaml:"root"`
	Extension string        `yaml:"extension"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`
}

// Validate validates the library configuration. An empty extension is
// replaced with the default.
func (c *LibraryConfig) Validate() error {
	if strings.TrimSpace(c.Extension) == "" {
		c.Extension = storage.DefaultExtension
	}
	c.Extension = storage.NormalizeExtension(c.Extension)
	return validation.ValidateStruct(c,
		validation.Field(&c.Root, validation.Required),
		validation.Field(&c.Extension, validation.Length(2, 16), validation.By(noSeparator)),
		validation.Field(&c.CacheTTL, validation.Min(time.Duration(0))),
	)
}

func noSeparator(value any) error {
	s, _ := value.(string)
	if strings.ContainsAny(s, `/\`) {
		return fmt.Errorf("must not contain a path separator")
	}
	return nil
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SyncConfig controls the background sync triggers and store timeouts.
//
// Watch enables the fsnotify trigger. Interval, when positive, adds a periodic
// pass. OpTimeout bounds each catalog call.
type SyncConfig struct {
	Watch     bool          `yaml:"watch"`
	Debounce  time.Duration `yaml:"debounce"`
	Interval  time.Duration `yaml:"interval"`
	OpTimeout time.Duration `yaml:"op_timeout"`
}

// Validate validates the sync configuration.
func (c *SyncConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Debounce, validation.Min(time.Duration(0))),
		validation.Field(&c.Interval, validation.Min(time.Duration(0))),
		validation.Field(&c.OpTimeout, validation.Min(time.Duration(0))),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Library: LibraryConfig{
			Root:      "./pdfs",
			Extension: storage.DefaultExtension,
			CacheTTL:  scanner.DefaultTTL,
		},
		SQLite: SQLiteConfig{
			Path: "./catalog.db",
		},
		Sync: SyncConfig{
			Watch:     true,
			Debounce:  syncer.DefaultDebounce,
			OpTimeout: catalog.DefaultOpTimeout,
		},
	}
}
