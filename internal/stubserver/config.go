package stubserver

import (
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the stub server configuration, loadable from environment
// variables (STUB_ prefix), flags, or YAML config files.
type Config struct {
	APIAddr      string `default:"0.0.0.0:8080" usage:"Storefront API listen address" flag:"api-addr"`
	IdentityAddr string `default:"0.0.0.0:9090" usage:"Identity provider listen address" flag:"identity-addr"`
	Realm        string `default:"eshop-realm" usage:"Realm name served by the identity stub"`
	SigningKey   string `default:"stub-server-dev-secret" usage:"HMAC key for issued tokens" flag:"signing-key"`
	Seed         bool   `default:"true" usage:"Seed the catalog with demo products"`

	TokenTTL   time.Duration `default:"5m"  usage:"Access token lifetime" flag:"token-ttl"`
	RefreshTTL time.Duration `default:"30m" usage:"Refresh token lifetime" flag:"refresh-ttl"`

	CORSOrigins []string `default:"*" usage:"Allowed CORS origins" flag:"cors-origins"`
	Graceful    GracefulConfig
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads the stub server configuration.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "STUB",
		Files:     []string{"stub-server.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	return &cfg, nil
}
