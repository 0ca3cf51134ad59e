package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/noaesperanza/imre/internal/auth"
	"github.com/noaesperanza/imre/internal/config"
	"github.com/noaesperanza/imre/internal/sqlite"
)

// runAdmin handles the credential subcommands:
//
//	create-api-key -tenant T [-actor A] [-description D]
//	issue-token -tenant T -subject S [-ttl 24h]
func runAdmin(cfg config.Config, command string, args []string) error {
	switch command {
	case "create-api-key":
		return createAPIKey(cfg, args)
	case "issue-token":
		return issueToken(cfg, args)
	default:
		return fmt.Errorf("unknown command (want create-api-key or issue-token)")
	}
}

func createAPIKey(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("create-api-key", flag.ContinueOnError)
	tenant := fs.String("tenant", "", "tenant the key belongs to")
	actor := fs.String("actor", "", "actor the key acts as (optional)")
	description := fs.String("description", "", "free-form note")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *tenant == "" {
		return errors.New("-tenant is required")
	}

	db, err := openDB(cfg.DB.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return fmt.Errorf("generating key: %w", err)
	}
	token := "imre_" + hex.EncodeToString(raw)

	err = sqlite.NewAPIKeyRepository(db).Create(context.Background(), &auth.APIKey{
		Hash:        auth.HashToken(token),
		TenantID:    *tenant,
		ActorRef:    *actor,
		Description: *description,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, token)
	return nil
}

func issueToken(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("issue-token", flag.ContinueOnError)
	tenant := fs.String("tenant", "", "tenant claim")
	subject := fs.String("subject", "", "acting user (sub claim)")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if cfg.Auth.JWTSecret == "" {
		return errors.New("IMRE_JWT_SECRET is not set")
	}
	if *tenant == "" || *subject == "" {
		return errors.New("-tenant and -subject are required")
	}

	token, err := auth.NewJWTResolver(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer).
		Issue(auth.Identity{TenantID: *tenant, ActorRef: *subject}, *ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, token)
	return nil
}
