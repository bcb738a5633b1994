package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/masque/internal/kvstore"
	"github.com/starford/masque/internal/models"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Storage StorageConfig     `yaml:"storage"`
	Auth    AuthConfig        `yaml:"auth"`
	Masks   MasksConfig       `yaml:"masks"`
	Import  DirConfig         `yaml:"import"`
	Export  DirConfig         `yaml:"export"`
	Events  EventsConfig      `yaml:"events"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Masks.Validate(); err != nil {
		return err
	}
	return c.Events.Validate()
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

// StorageConfig selects the key-value backend holding masks and preferences.
type StorageConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

// Validate validates the storage configuration.
func (c *StorageConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.Required, validation.In(kvstore.DriverSQLite, kvstore.DriverPebble)),
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
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

// MasksConfig holds mask behaviour.
type MasksConfig struct {
	// BuiltinFile is a YAML file of read-only presets; empty means none.
	BuiltinFile  string `yaml:"builtin_file"`
	HideBuiltin  bool   `yaml:"hide_builtin"`
	ShareBaseURL string `yaml:"share_base_url"`
	// SyncSupported offers the global sync toggle on mask panels. Share
	// links are unavailable while it is on.
	SyncSupported bool `yaml:"sync_supported"`
	// ModelConfig seeds the global model configuration on first start.
	ModelConfig *models.ModelConfig `yaml:"model_config"`
}

// Validate validates the masks configuration.
func (c *MasksConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.ShareBaseURL, validation.By(httpURL)),
	); err != nil {
		return err
	}
	if c.ModelConfig != nil {
		if err := c.ModelConfig.Validate(); err != nil {
			return fmt.Errorf("masks: model_config: %w", err)
		}
	}
	return nil
}

func httpURL(v any) error {
	s, _ := v.(string)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("must be an http(s) URL")
	}
	return nil
}

// GlobalSeed returns the configured model configuration or the defaults.
func (c *MasksConfig) GlobalSeed() models.ModelConfig {
	if c.ModelConfig == nil {
		return models.DefaultModelConfig()
	}
	return *c.ModelConfig
}

// DirConfig names an optional directory; empty disables the feature.
type DirConfig struct {
	Dir string `yaml:"dir"`
}

// Enabled reports whether a directory is configured.
func (c *DirConfig) Enabled() bool {
	return c.Dir != ""
}

// EventsConfig holds server-sent event settings.
type EventsConfig struct {
	// Throttle is the minimum interval between masks.changed events.
	Throttle time.Duration `yaml:"throttle"`
}

// Validate validates the events configuration.
func (c *EventsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Throttle, validation.Min(time.Duration(0))),
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
		Storage: StorageConfig{
			Driver: kvstore.DriverSQLite,
			Path:   "./masque.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Masks: MasksConfig{
			BuiltinFile:  "configs/builtin-masks.yaml",
			ShareBaseURL: "http://localhost:3000",
		},
		Import: DirConfig{Dir: "./masks/inbox"},
		Export: DirConfig{Dir: "./masks/exports"},
		Events: EventsConfig{Throttle: 2 * time.Second},
	}
}
