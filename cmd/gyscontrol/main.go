package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"

	"gyscontrol/internal/config"
	"gyscontrol/internal/erp"
	"gyscontrol/internal/logging"
	"gyscontrol/internal/pipeline"
	"gyscontrol/internal/storage"
)

type app struct {
	cfg config.Config
	db  *storage.DB
	gw  pipeline.Gateway
}

func main() {
	a := &app{}
	root := &cobra.Command{
		Use:           "gyscontrol",
		Short:         "Reconcile equipment lists against the catalog and project quotations",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			a.close()
		},
	}
	root.AddCommand(
		newCatalogSyncCommand(a),
		newQuotedListCommand(a),
		newPlanCommand(a),
		newImportCommand(a),
		newRunsCommand(a),
	)

	if err := root.ExecuteContext(context.Background()); err != nil {
		a.close()
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func (a *app) open(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	logging.SetDefault(logger)
	cmd.SetContext(logging.WithLogger(cmd.Context(), &logger))

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	a.db = db

	switch strings.ToLower(strings.TrimSpace(cfg.Gateway)) {
	case "", "sqlite":
		a.gw = db
	case "http":
		if err := cfg.Require("ERP_API_TOKEN", cfg.ERPAPIToken); err != nil {
			return err
		}
		a.gw = erp.NewClient(cfg)
	default:
		return errors.Errorf("unsupported gateway: %s", cfg.Gateway)
	}
	return nil
}

func (a *app) close() {
	if a.db != nil {
		_ = a.db.Close()
		a.db = nil
	}
}
