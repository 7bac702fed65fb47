package main

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/estate-archive/internal/common"
)

// app is the state shared by subcommands once the root pre-run finished.
type app struct {
	cfg    *common.Config
	logger *slog.Logger

	envFile string
	dbURL   string
	rules   string
	reg     string
	workers int
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "estate-archive",
		Short:         "Classify, match and route OCR'd real-estate documents",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.envFile, "env-file", ".env", "optional dotenv file loaded before reading the environment")
	pf.StringVar(&a.dbURL, "db", "", "sqlite path or postgres DSN (overrides DB_URL)")
	pf.StringVar(&a.rules, "rules", "", "rule set YAML (overrides RULES_FILE; empty uses the embedded default)")
	pf.StringVar(&a.reg, "registry", "", "registry .csv/.xlsx (overrides REGISTRY_FILE; empty loads the property_registry table)")
	pf.IntVar(&a.workers, "workers", 0, "worker count (overrides WORKERS)")

	root.AddCommand(
		newBatchCmd(a),
		newWatchCmd(a),
		newServeCmd(a),
		newRulesCmd(a),
		newRegistryCmd(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	cfg := common.LoadConfig()
	if a.dbURL != "" {
		cfg.Database.DSN = a.dbURL
	}
	if a.rules != "" {
		cfg.Pipeline.RulesFile = a.rules
	}
	if a.reg != "" {
		cfg.Pipeline.RegistryFile = a.reg
	}
	if a.workers > 0 {
		cfg.Pipeline.Workers = a.workers
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	a.logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(a.logger)
	a.logger.Debug("configuration loaded", "command", cmd.Name(), "db_postgres", isPostgres(cfg.Database.DSN))
	return nil
}
