// Command beamline-worker is the process entry point: it parses flags/env,
// wires the scheduler/worker/pool hierarchy to an ingress bus, serves the
// admin HTTP surface, and shuts down gracefully on SIGINT/SIGTERM.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:  "beamline-worker",
		Usage: "multi-tenant block execution worker",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "path to YAML config file"},
			&cli.StringFlag{Name: "event-bus", Value: "gochannel", Sources: cli.EnvVars("EVENT_BUS_TYPE")},
			&cli.StringFlag{Name: "admin-addr", Value: ":8080", Sources: cli.EnvVars("ADMIN_ADDR")},
			&cli.StringFlag{Name: "sql-dsn", Sources: cli.EnvVars("SQL_DSN")},
			&cli.StringFlag{Name: "rbac-policy", Sources: cli.EnvVars("RBAC_POLICY_PATH")},
			&cli.StringFlag{Name: "otlp-endpoint", Sources: cli.EnvVars("OTLP_ENDPOINT")},
		},
		Action: run,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Run(ctx, os.Args); err != nil {
		slog.Error("beamline-worker exited with error", "error", err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	deps, err := buildDependencies(ctx, cmd)
	if err != nil {
		return fmt.Errorf("beamline-worker: build dependencies: %w", err)
	}
	defer deps.Close()

	deps.Logger.Info("beamline-worker starting", "event_bus", cmd.String("event-bus"), "admin_addr", cmd.String("admin-addr"))

	return serve(ctx, deps, cmd.String("admin-addr"))
}
