// Command beacon dispatches emergency notifications from the command line.
//
// Usage:
//
//	beacon contacts --user-id 7f0c... --type medical_emergency --lat 40.71 --lng -74.00
//	beacon responders --type fire --lat 40.71 --lng -74.00 --description "Kitchen fire"
//	beacon check
//	beacon install-trigger
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/beaconalert/beacon/internal/app"
	"github.com/beaconalert/beacon/internal/config"
	"github.com/beaconalert/beacon/internal/db"
	"github.com/beaconalert/beacon/internal/notify"
)

// Logs go to stderr so the JSON report on stdout stays machine-readable.
var logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:           "beacon",
		Short:         "Emergency notification dispatcher",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(notifyCmd(notify.StrategyContacts, "Alert the reporter's personal emergency contacts"))
	root.AddCommand(notifyCmd(notify.StrategyResponders, "Alert every responder and admin account"))
	root.AddCommand(checkCmd())
	root.AddCommand(installTriggerCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// contacts / responders commands
// --------------------------------------------------------------------------

func notifyCmd(strategy notify.Strategy, short string) *cobra.Command {
	var req notify.Request
	cmd := &cobra.Command{
		Use:   string(strategy),
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.EmergencyID == "" {
				req.EmergencyID = uuid.NewString()
			}
			return run(func(ctx context.Context, cfg *config.Config, a *app.App) error {
				if req.ReporterName == "" && req.UserID != "" && a.Store != nil {
					name, err := a.Store.ReporterName(ctx, req.UserID)
					if err != nil {
						logger.Warn("Failed to look up reporter name", "error", err)
					}
					req.ReporterName = name
				}

				rep, err := a.Service.Notify(ctx, strategy, req)
				if err != nil {
					return err
				}
				return printJSON(rep)
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&req.EmergencyID, "emergency-id", "", "Emergency report ID (random when empty)")
	f.StringVar(&req.EmergencyType, "type", "", "Emergency type, e.g. medical_emergency")
	f.Float64Var(&req.Latitude, "lat", 0, "Latitude")
	f.Float64Var(&req.Longitude, "lng", 0, "Longitude")
	f.StringVar(&req.Description, "description", "", "Free-text description")
	f.StringVar(&req.UserID, "user-id", "", "Reporting user ID")
	f.StringVar(&req.ReporterName, "reporter", "", "Reporter display name")
	_ = cmd.MarkFlagRequired("type")
	if strategy == notify.StrategyContacts {
		_ = cmd.MarkFlagRequired("user-id")
	}
	return cmd
}

// --------------------------------------------------------------------------
// check command
// --------------------------------------------------------------------------

type checkResult struct {
	notify.Capabilities
	Ready bool   `json:"ready"`
	Error string `json:"error,omitempty"`
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Print which stores and channels each strategy can use",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, cfg *config.Config, a *app.App) error {
				var out []checkResult
				for _, s := range []notify.Strategy{notify.StrategyContacts, notify.StrategyResponders} {
					caps, err := a.Service.Capabilities(s)
					r := checkResult{Capabilities: caps, Ready: err == nil}
					if err != nil {
						r.Error = err.Error()
					}
					out = append(out, r)
				}
				return printJSON(out)
			})
		},
	}
}

// --------------------------------------------------------------------------
// install-trigger command
// --------------------------------------------------------------------------

func installTriggerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "install-trigger",
		Short: "Install the trigger that publishes new emergency reports on " + db.EmergencyChannel,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, cfg *config.Config, a *app.App) error {
				if a.Pool == nil {
					return fmt.Errorf("DATABASE_URL is required")
				}
				if err := a.Pool.InstallEmergencyTrigger(ctx); err != nil {
					return err
				}
				logger.Info("Emergency trigger installed", "channel", db.EmergencyChannel)
				return nil
			})
		},
	}
}

// --------------------------------------------------------------------------
// helpers
// --------------------------------------------------------------------------

func run(fn func(ctx context.Context, cfg *config.Config, a *app.App) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, cfg, a)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
