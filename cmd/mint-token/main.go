// Command mint-token signs a bearer token with the TOKEN_* configuration so the
// API can be exercised locally. The API itself never issues tokens.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/upb/tradedesk/auth"
	"github.com/upb/tradedesk/config"
)

type options struct {
	subject         string
	roles           string
	migrationStatus string
	ttl             time.Duration
	printClaims     bool
}

func main() {
	var opts options
	flag.StringVar(&opts.subject, "sub", "", "Subject (user id) to embed in the token")
	flag.StringVar(&opts.roles, "roles", auth.RoleTrader, "Comma-separated roles, e.g. trader,admin")
	flag.StringVar(&opts.migrationStatus, "migration-status", "", "Optional migration_status claim")
	flag.DurationVar(&opts.ttl, "ttl", 0, "Token lifetime (default TOKEN_LIFETIME)")
	flag.BoolVar(&opts.printClaims, "claims", false, "Also print the embedded claims as JSON to stderr")
	flag.Parse()

	if err := run(config.LoadTokenConfig(), opts, os.Stdout, os.Stderr); err != nil {
		flag.Usage()
		log.Fatal(err)
	}
}

func run(cfg config.TokenConfig, opts options, out, errOut io.Writer) error {
	if opts.subject == "" {
		return errors.New("-sub is required")
	}
	if !cfg.HasTokenSecret() {
		return errors.New("TOKEN_SECRET is not set")
	}

	lifetime := cfg.Lifetime
	if opts.ttl > 0 {
		lifetime = opts.ttl
	}

	codec, err := auth.NewCodec([]byte(cfg.Secret))
	if err != nil {
		return err
	}
	issuer, err := auth.NewIssuer(codec, cfg.Issuer, cfg.Audience, lifetime)
	if err != nil {
		return err
	}

	token, claims, err := issuer.Issue(opts.subject, parseRoles(opts.roles), opts.migrationStatus)
	if err != nil {
		return fmt.Errorf("failed to issue token: %w", err)
	}

	if opts.printClaims {
		enc := json.NewEncoder(errOut)
		enc.SetIndent("", "  ")
		if err := enc.Encode(claims); err != nil {
			return fmt.Errorf("failed to print claims: %w", err)
		}
	}

	_, err = fmt.Fprintln(out, token)
	return err
}

func parseRoles(raw string) []string {
	var roles []string
	for _, r := range strings.Split(raw, ",") {
		if r = strings.TrimSpace(r); r != "" {
			roles = append(roles, r)
		}
	}
	return roles
}
