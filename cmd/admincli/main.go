// Command admincli calls one method of the scriptguard admin API and prints
// the JSON response.
//
//	admincli [-a host:port] [-token JWT] Method ['{"field": "value"}']
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/scriptguard/internal/client/client"
	"github.com/dmitrijs2005/scriptguard/internal/client/config"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg := config.LoadConfig()

	pos := config.Positional(args)
	if len(pos) == 0 || len(pos) > 2 {
		return fmt.Errorf("usage: admincli [-a addr] [-token jwt] Method [json]")
	}

	req := map[string]any{}
	if len(pos) == 2 {
		if err := json.Unmarshal([]byte(pos[1]), &req); err != nil {
			return fmt.Errorf("request body: %w", err)
		}
	}

	c, err := client.NewAdminClient(cfg.ServerEndpointAddr, cfg.AccessToken)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	out, err := c.Call(ctx, pos[0], req)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
