package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/kushwahaamar-dev/truth/internal/shared/auth"
	"github.com/kushwahaamar-dev/truth/internal/shared/config"
)

// Emite um token de caller para o market-service usando CALLER_TOKEN_SECRET
// e CALLER_TOKEN_TTL do ambiente (ou do .env).
//
//	caller-token -caller alice
func main() {
	caller := flag.String("caller", "", "caller id (sub do token)")
	flag.Parse()

	cfg := config.Load()
	if cfg.CallerTokenSecret == "" {
		fmt.Fprintln(os.Stderr, "CALLER_TOKEN_SECRET is required")
		os.Exit(1)
	}

	tok, err := auth.NewVerifier(cfg.CallerTokenSecret, cfg.CallerTokenTTL).Issue(*caller)
	if err != nil {
		fmt.Fprintln(os.Stderr, "issue token:", err)
		os.Exit(1)
	}
	fmt.Println(tok)
}
