// Command mktoken mints an access token for a user id. Operators hand these
// out to users who should sign in with a stable identity (for example, ids
// that are on the admin allow-list).
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"example.com/feedboard/internal/auth"
	"example.com/feedboard/internal/config"
)

func main() {
	userID := flag.String("user", "", "user id to embed in the token (required)")
	ttl := flag.Duration("ttl", 30*24*time.Hour, "token lifetime")
	flag.Parse()

	if *userID == "" {
		fmt.Fprintln(os.Stderr, "mktoken: -user is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "mktoken: %v\n", err)
		os.Exit(1)
	}

	token, err := auth.IssueAccessToken(auth.Config{
		Secret: cfg.JWTSecret,
		Issuer: cfg.JWTIssuer,
	}, *userID, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mktoken: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(token)
}
