package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/scriptguard/internal/flagx"
	"github.com/dmitrijs2005/scriptguard/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Timeout
// accepts "10s" strings or integer nanoseconds.
type JsonConfig struct {
	ServerEndpointAddr string         `json:"server_endpoint_addr"`
	AccessToken        string         `json:"access_token"`
	Timeout            timex.Duration `json:"timeout"`
}

// parseJson overlays cfg with the file named by -c/-config. Empty fields
// leave the current value; read or unmarshal errors panic.
func parseJson(cfg *Config, args []string) {
	path := flagx.ConfigPath(args)
	if path == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerEndpointAddr != "" {
		cfg.ServerEndpointAddr = jc.ServerEndpointAddr
	}
	if jc.AccessToken != "" {
		cfg.AccessToken = jc.AccessToken
	}
	if jc.Timeout.Duration > 0 {
		cfg.Timeout = jc.Timeout.Duration
	}
}
