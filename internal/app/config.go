package app

import (
	"os"
	"path/filepath"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete client configuration, loadable from environment
// variables (SHOP_ prefix), flags, or YAML config files.
type Config struct {
	APIBaseURL    string        `default:"http://localhost:8080" usage:"Storefront API base URL" flag:"api-base-url"`
	RefreshMargin time.Duration `default:"30s" usage:"Token time-to-expiry margin for 401 recovery" flag:"refresh-margin"`
	LogFile       string        `default:"" usage:"Log file path (terminal output is owned by the UI)" flag:"log-file"`
	Identity      IdentityConfig
}

// IdentityConfig locates the OpenID-Connect identity provider.
type IdentityConfig struct {
	URL      string `default:"http://localhost:9090" usage:"Identity provider base URL"`
	Realm    string `default:"eshop-realm" usage:"Identity provider realm"`
	ClientID string `default:"shopfront-terminal" usage:"OAuth client identifier" flag:"client-id"`
}

// LoadConfig loads configuration from environment variables, YAML config
// files, and flags, then fills in platform defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "SHOP",
		Files:     []string{"config.yaml", userConfigPath()},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func userConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "shopfront", "config.yaml")
}

// applyDefaults fills values that depend on the runtime environment.
func (c *Config) applyDefaults() {
	if c.LogFile == "" {
		if dir, err := os.UserCacheDir(); err == nil {
			c.LogFile = filepath.Join(dir, "shopfront", "shopfront.log")
		} else {
			c.LogFile = "shopfront.log"
		}
	}
}
