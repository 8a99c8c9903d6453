package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/scriptguard/internal/flagx"
	"github.com/dmitrijs2005/scriptguard/internal/timex"
)

// JsonConfig is the DTO read from the -c/-config file. Durations accept both
// "10s" strings and integer nanoseconds. Only non-zero fields override the
// current values.
type JsonConfig struct {
	EndpointAddrHTTP            string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC            string         `json:"endpoint_addr_grpc"`
	DatabaseDSN                 string         `json:"database_dsn"`
	SecretKey                   string         `json:"secret_key"`
	AccessTokenValidityDuration timex.Duration `json:"access_token_validity_duration"`
	Environment                 string         `json:"environment"`
	LogLevel                    string         `json:"log_level"`
	ProjectID                   string         `json:"project_id"`
	KeyHeader                   string         `json:"key_header"`
	Brand                       string         `json:"brand"`
	GitHubToken                 string         `json:"github_token"`
	GitHubAPIURL                string         `json:"github_api_url"`
	FetchTimeout                timex.Duration `json:"fetch_timeout"`
	RedisURL                    string         `json:"redis_url"`
	AssetCacheTTL               timex.Duration `json:"asset_cache_ttl"`
	KafkaBrokers                []string       `json:"kafka_brokers"`
	KafkaTopic                  string         `json:"kafka_topic"`
	S3RootUser                  string         `json:"s3_root_user"`
	S3RootPassword              string         `json:"s3_root_password"`
	S3Region                    string         `json:"s3_region"`
	S3BaseEndpoint              string         `json:"s3_base_endpoint"`
	RateLimitRPS                float64        `json:"rate_limit_rps"`
	RateLimitBurst              int            `json:"rate_limit_burst"`
}

// parseJson overlays the JSON file named by -c/-config onto config. Missing
// flag means nothing to load; an unreadable or malformed file panics.
func parseJson(config *Config, args []string) {
	path := flagx.ConfigPath(args)
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.Environment, c.Environment)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.ProjectID, c.ProjectID)
	setString(&config.KeyHeader, c.KeyHeader)
	setString(&config.Brand, c.Brand)
	setString(&config.GitHubToken, c.GitHubToken)
	setString(&config.GitHubAPIURL, c.GitHubAPIURL)
	setString(&config.RedisURL, c.RedisURL)
	setString(&config.KafkaTopic, c.KafkaTopic)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)

	if c.AccessTokenValidityDuration.Duration > 0 {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.FetchTimeout.Duration > 0 {
		config.FetchTimeout = c.FetchTimeout.Duration
	}
	if c.AssetCacheTTL.Duration > 0 {
		config.AssetCacheTTL = c.AssetCacheTTL.Duration
	}
	if len(c.KafkaBrokers) > 0 {
		config.KafkaBrokers = c.KafkaBrokers
	}
	if c.RateLimitRPS > 0 {
		config.RateLimitRPS = c.RateLimitRPS
	}
	if c.RateLimitBurst > 0 {
		config.RateLimitBurst = c.RateLimitBurst
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
