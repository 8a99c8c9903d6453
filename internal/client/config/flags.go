package config

import (
	"flag"

	"github.com/dmitrijs2005/scriptguard/internal/flagx"
)

var clientFlags = []string{"-a", "-token", "-timeout"}

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-a string          address and port of the admin gRPC endpoint
//	-token string      admin access token
//	-timeout duration  per-call deadline
func parseFlags(cfg *Config, args []string) {
	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	fs.StringVar(&cfg.AccessToken, "token", cfg.AccessToken, "admin access token")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "per-call timeout")

	if err := fs.Parse(flagx.FilterArgs(args, clientFlags)); err != nil {
		panic(err)
	}
}

// Positional returns args with every known flag and its value removed,
// leaving the command and its operands.
func Positional(args []string) []string {
	known := append([]string{"-c", "-config"}, clientFlags...)
	drop := make(map[int]bool)
	kept := flagx.FilterArgs(args, known)

	j := 0
	for i := 0; i < len(args) && j < len(kept); i++ {
		if args[i] == kept[j] {
			drop[i] = true
			j++
		}
	}

	out := make([]string, 0, len(args)-len(kept))
	for i, a := range args {
		if !drop[i] {
			out = append(out, a)
		}
	}
	return out
}
