package config

import (
	"flag"
	"strings"
	"time"

	"github.com/dmitrijs2005/scriptguard/internal/flagx"
)

var serverFlags = []string{
	"-a", "-g", "-d", "-s", "-t", "-p", "-k",
	"-env", "-log-level", "-brand",
	"-github-token", "-github-api", "-fetch-timeout",
	"-redis", "-cache-ttl", "-kafka", "-kafka-topic",
	"-s3-user", "-s3-password", "-s3-region", "-s3-endpoint",
	"-rps", "-burst",
}

// parseFlags populates Config fields from command-line flags.
//
// Short forms kept from the original server layout:
//
//	-a string   HTTP bind address (e.g. ":8080")
//	-g string   gRPC admin bind address (e.g. ":50051")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-t int      admin access token validity, minutes
//	-p string   project id served by /api/script
//	-k string   license key header name
//
// Only the flags listed in serverFlags are parsed, so unrelated arguments
// (such as -c) do not break parsing.
func parseFlags(config *Config, args []string) {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "HTTP address and port")
	fs.StringVar(&config.EndpointAddrGRPC, "g", config.EndpointAddrGRPC, "gRPC admin address and port")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	accessTokenValidity := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "admin access token validity (in minutes)")
	fs.StringVar(&config.ProjectID, "p", config.ProjectID, "project id served by /api/script")
	fs.StringVar(&config.KeyHeader, "k", config.KeyHeader, "license key header name")

	fs.StringVar(&config.Environment, "env", config.Environment, "environment (development|production)")
	fs.StringVar(&config.LogLevel, "log-level", config.LogLevel, "log level")
	fs.StringVar(&config.Brand, "brand", config.Brand, "getgenv() table name")
	fs.StringVar(&config.GitHubToken, "github-token", config.GitHubToken, "GitHub token used when a project has none")
	fs.StringVar(&config.GitHubAPIURL, "github-api", config.GitHubAPIURL, "GitHub API base URL")
	fs.DurationVar(&config.FetchTimeout, "fetch-timeout", config.FetchTimeout, "asset fetch timeout")
	fs.StringVar(&config.RedisURL, "redis", config.RedisURL, "Redis URL for the asset cache")
	fs.DurationVar(&config.AssetCacheTTL, "cache-ttl", config.AssetCacheTTL, "asset cache TTL (0 disables)")
	kafkaBrokers := fs.String("kafka", strings.Join(config.KafkaBrokers, ","), "comma separated Kafka brokers")
	fs.StringVar(&config.KafkaTopic, "kafka-topic", config.KafkaTopic, "Kafka topic for execution events")
	fs.StringVar(&config.S3RootUser, "s3-user", config.S3RootUser, "S3 access key")
	fs.StringVar(&config.S3RootPassword, "s3-password", config.S3RootPassword, "S3 secret key")
	fs.StringVar(&config.S3Region, "s3-region", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "s3-endpoint", config.S3BaseEndpoint, "S3 base endpoint")
	fs.Float64Var(&config.RateLimitRPS, "rps", config.RateLimitRPS, "script endpoint requests per second (0 disables)")
	fs.IntVar(&config.RateLimitBurst, "burst", config.RateLimitBurst, "script endpoint burst")

	if err := fs.Parse(flagx.FilterArgs(args, serverFlags)); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidity) * time.Minute
	config.KafkaBrokers = splitList(*kafkaBrokers)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
