package config

import (
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime settings for the admin CLI.
//
// Fields:
//   - ServerEndpointAddr: host:port of the admin gRPC endpoint.
//   - AccessToken: admin JWT sent in the access_token metadata key.
//   - Timeout: deadline for one call.
type Config struct {
	ServerEndpointAddr string        `envconfig:"ADMIN_ADDR"`
	AccessToken        string        `envconfig:"ADMIN_TOKEN"`
	Timeout            time.Duration `envconfig:"ADMIN_TIMEOUT"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.Timeout = 10 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present), SCRIPTGUARD_ADMIN_* variables and command-line flags.
// Later sources take precedence over earlier ones.
func LoadConfig() *Config {
	return loadConfig(os.Args[1:])
}

func loadConfig(args []string) *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg, args)
	if err := envconfig.Process("SCRIPTGUARD", cfg); err != nil {
		panic(err)
	}
	parseFlags(cfg, args)
	return cfg
}
