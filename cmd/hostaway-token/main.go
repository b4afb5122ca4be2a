// Command hostaway-token reports whether a Hostaway API token is available
// for a city. The token itself is never printed.
//
// Usage:
//
//	hostaway-token london [paris ...]
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/theflex/pms-backend/config"
	"github.com/theflex/pms-backend/internal/observability"
	"github.com/theflex/pms-backend/internal/syncbridge"
	"github.com/theflex/pms-backend/services/hostaway"
	"github.com/theflex/pms-backend/services/tokenmanagement"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	cfg, err := config.New(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hostaway-token: %v\n", err)
		os.Exit(1)
	}

	logger, err := observability.NewLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hostaway-token: %v\n", err)
		os.Exit(1)
	}

	var tokens hostaway.TokenService = tokenmanagement.Unconfigured{}
	if cfg.TokenService.URL != "" {
		tokens = tokenmanagement.NewClient(cfg.TokenService, cfg.Supabase.ServiceRoleKey)
	}
	svc := hostaway.NewService(tokens, cfg.Hostaway.TokensBlob,
		syncbridge.New(cfg.TokenService.Timeout, cfg.TokenService.MaxWorkers), logger)

	code := run(ctx, svc, os.Args[1:], os.Stdout)
	_ = logger.Sync()
	stop()
	os.Exit(code)
}

// resolver is the part of hostaway.Service the command needs
type resolver interface {
	TokenForCity(ctx context.Context, city string) (string, bool)
	AvailableKeys() []string
}

// run prints one line per city and returns the exit code: 0 when every city
// has a token, 1 when any is missing, 2 on usage errors.
func run(ctx context.Context, svc resolver, cities []string, out io.Writer) int {
	if len(cities) == 0 {
		fmt.Fprintln(out, "usage: hostaway-token <city> [city ...]")
		fmt.Fprintf(out, "available keys: %v\n", svc.AvailableKeys())
		return 2
	}

	code := 0
	for _, city := range cities {
		// ctx carries no async scope, so the bridge runs the lookup directly
		token, ok := svc.TokenForCity(ctx, city)
		if !ok {
			fmt.Fprintf(out, "%s\tmissing\n", hostaway.CityKey(city))
			code = 1
			continue
		}
		fmt.Fprintf(out, "%s\tavailable\tlength=%d\n", hostaway.CityKey(city), len(token))
	}
	return code
}
