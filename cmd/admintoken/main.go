// Command admintoken registers an admin and prints a signed access token
// for the gRPC admin API.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/dmitrijs2005/scriptguard/internal/flagx"
	"github.com/dmitrijs2005/scriptguard/internal/logging"
	"github.com/dmitrijs2005/scriptguard/internal/server"
	"github.com/dmitrijs2005/scriptguard/internal/server/auth"
	"github.com/dmitrijs2005/scriptguard/internal/server/config"
	"github.com/dmitrijs2005/scriptguard/internal/server/models"
	"github.com/dmitrijs2005/scriptguard/internal/server/services"
)

func main() {
	var admin models.Admin

	fs := flag.NewFlagSet("admintoken", flag.ExitOnError)
	fs.StringVar(&admin.ID, "admin-id", "", "admin principal id (required)")
	fs.StringVar(&admin.Name, "name", "", "admin display name")
	fs.StringVar(&admin.Email, "email", "", "admin email")
	_ = fs.Parse(flagx.FilterArgs(os.Args[1:], []string{"-admin-id", "-name", "-email"}))

	if admin.ID == "" {
		fs.Usage()
		os.Exit(2)
	}

	ctx := context.Background()
	cfg := config.LoadConfig()

	db, rm, err := server.OpenDatabase(ctx, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer db.Close()

	svc := services.NewAdminService(db, rm, logging.New(os.Stderr, cfg.Environment, cfg.LogLevel))
	if err := svc.EnsureAdmin(ctx, &admin); err != nil {
		log.Fatalf("ensure admin: %v", err)
	}

	token, err := auth.GenerateToken(admin.ID, []byte(cfg.SecretKey), cfg.AccessTokenValidityDuration)
	if err != nil {
		log.Fatalf("generate token: %v", err)
	}
	fmt.Println(token)
}
