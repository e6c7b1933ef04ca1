package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	matchingservice "github.com/SaiDhiren-Musaloji/uber-like-matching-system/cmd/matching_service"
	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/cli"
	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/general/config"
)

func main() {
	// dev helper: `token --actor=<id> --role=<rider|driver>` mints a JWT and exits
	if len(os.Args) > 1 && os.Args[1] == "token" {
		runTokenCommand(os.Args[2:])
		return
	}

	configPath := flag.String("config", "config/config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// context cancelled on SIGINT/SIGTERM for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := matchingservice.Run(ctx, *configPath); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	// tiny delay to let deferred logs flush on very fast exits
	select {
	case <-ctx.Done():
	case <-time.After(10 * time.Millisecond):
	}
}

func runTokenCommand(args []string) {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	actorID := fs.String("actor", "", "actor id to embed as the token subject")
	role := fs.String("role", "rider", "actor role: rider or driver")
	configPath := fs.String("config", "config/config.yaml", "path to the YAML configuration file")

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(2)
	}
	if *actorID == "" {
		fmt.Fprintln(os.Stderr, "Error: --actor is required")
		fs.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadFromFile(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	token, claims, err := cli.GenerateActorToken(cfg.JWT.SecretKey, *actorID, *role)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "expires: %s\n", claims.ExpiresAt.Time.UTC().Format(time.RFC3339))
}
