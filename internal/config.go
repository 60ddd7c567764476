package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/menuboard/internal/editor"
	"github.com/starford/menuboard/internal/htmlimport"
	"github.com/starford/menuboard/internal/models"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app" toml:"app"`
	Library   LibraryConfig     `yaml:"library" toml:"library"`
	SQLite    SQLiteConfig      `yaml:"sqlite" toml:"sqlite"`
	Auth      AuthConfig        `yaml:"auth" toml:"auth"`
	Editor    EditorConfig      `yaml:"editor" toml:"editor"`
	Import    ImportConfig      `yaml:"import" toml:"import"`
	Export    ExportConfig      `yaml:"export" toml:"export"`
	RateLimit RateLimitConfig   `yaml:"rate_limit" toml:"rate_limit"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, v := range []validation.Validatable{
		&c.App, &c.Library, &c.SQLite, &c.Auth, &c.Editor, &c.Import, &c.Export, &c.RateLimit,
	} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level" toml:"log_level"`
	HTTP     HTTPConfig `yaml:"http" toml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port" toml:"port"`
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

// LibraryConfig holds the directory with template JSON files and assets.
type LibraryConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// Validate validates the library configuration.
func (c *LibraryConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode" toml:"mode"`
	Token string `yaml:"token" toml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// EditorConfig holds the editing rules applied to every session.
type EditorConfig struct {
	MinElementSize  float64       `yaml:"min_element_size" toml:"min_element_size"`
	DuplicateOffset float64       `yaml:"duplicate_offset" toml:"duplicate_offset"`
	NudgeStep       float64       `yaml:"nudge_step" toml:"nudge_step"`
	NudgeStepLarge  float64       `yaml:"nudge_step_large" toml:"nudge_step_large"`
	HistoryLimit    int           `yaml:"history_limit" toml:"history_limit"`
	SessionTTL      time.Duration `yaml:"session_ttl" toml:"session_ttl"`
}

// Validate validates the editor configuration.
func (c *EditorConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MinElementSize, validation.Required, validation.Min(1.0)),
		validation.Field(&c.DuplicateOffset, validation.Min(0.0)),
		validation.Field(&c.NudgeStep, validation.Required, validation.Min(0.0)),
		validation.Field(&c.NudgeStepLarge, validation.Required, validation.Min(0.0)),
		validation.Field(&c.HistoryLimit, validation.Min(0)),
		validation.Field(&c.SessionTTL, validation.Min(time.Duration(0))),
	)
}

// Session converts the section into editor rules.
func (c *EditorConfig) Session() editor.Config {
	return editor.Config{
		MinElementSize:  c.MinElementSize,
		DuplicateOffset: c.DuplicateOffset,
		NudgeStep:       c.NudgeStep,
		NudgeStepLarge:  c.NudgeStepLarge,
		HistoryLimit:    c.HistoryLimit,
	}
}

// ImportConfig holds HTML import settings.
type ImportConfig struct {
	CanvasWidth  int           `yaml:"canvas_width" toml:"canvas_width"`
	CanvasHeight int           `yaml:"canvas_height" toml:"canvas_height"`
	ImageRetries int           `yaml:"image_retries" toml:"image_retries"`
	RetryDelay   time.Duration `yaml:"retry_delay" toml:"retry_delay"`
	ProbeTimeout time.Duration `yaml:"probe_timeout" toml:"probe_timeout"`
}

// Validate validates the import configuration.
func (c *ImportConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.CanvasWidth, validation.Required, validation.Min(1)),
		validation.Field(&c.CanvasHeight, validation.Required, validation.Min(1)),
		validation.Field(&c.ImageRetries, validation.Min(1), validation.Max(10)),
		validation.Field(&c.RetryDelay, validation.Min(time.Duration(0))),
		validation.Field(&c.ProbeTimeout, validation.Required),
	)
}

// Options converts the section into converter options.
func (c *ImportConfig) Options() htmlimport.Options {
	return htmlimport.Options{
		Canvas:     models.CanvasSize{Width: c.CanvasWidth, Height: c.CanvasHeight},
		Retries:    c.ImageRetries,
		RetryDelay: c.RetryDelay,
	}
}

// ExportConfig holds rendering settings.
type ExportConfig struct {
	ImageTimeout time.Duration `yaml:"image_timeout" toml:"image_timeout"`
}

// Validate validates the export configuration.
func (c *ExportConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.ImageTimeout, validation.Required),
	)
}

// RateLimitConfig bounds import and export requests per client.
// RPS 0 disables limiting.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps" toml:"rps"`
	Burst int     `yaml:"burst" toml:"burst"`
}

// Validate validates the rate limit configuration.
func (c *RateLimitConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.RPS, validation.Min(0.0)),
		validation.Field(&c.Burst, validation.When(c.RPS > 0, validation.Required, validation.Min(1))),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	ed := editor.DefaultConfig()
	imp := htmlimport.DefaultOptions()
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Library: LibraryConfig{
			Path: "./library",
		},
		SQLite: SQLiteConfig{
			Path: "./menuboard.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Editor: EditorConfig{
			MinElementSize:  ed.MinElementSize,
			DuplicateOffset: ed.DuplicateOffset,
			NudgeStep:       ed.NudgeStep,
			NudgeStepLarge:  ed.NudgeStepLarge,
			HistoryLimit:    ed.HistoryLimit,
			SessionTTL:      30 * time.Minute,
		},
		Import: ImportConfig{
			CanvasWidth:  imp.Canvas.Width,
			CanvasHeight: imp.Canvas.Height,
			ImageRetries: imp.Retries,
			RetryDelay:   imp.RetryDelay,
			ProbeTimeout: 10 * time.Second,
		},
		Export: ExportConfig{
			ImageTimeout: 15 * time.Second,
		},
		RateLimit: RateLimitConfig{
			RPS:   5,
			Burst: 30,
		},
	}
}
