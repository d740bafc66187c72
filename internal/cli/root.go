// Copyright (c) 2025 the vmlink authors
// vmlink - remote VM operations over chat
// This source code is licensed under the MIT license found in the LICENSE file.

// Package cli wires configuration, the store and the chat components into
// the vmlink command tree.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"vmlink/internal/bot"
	"vmlink/internal/config"
	"vmlink/internal/db"
	"vmlink/internal/i18n"
	"vmlink/internal/linker"
	"vmlink/internal/logging"
	"vmlink/internal/runner"
)

// version is set at build time using -ldflags, e.g.:
// go build -ldflags "-X vmlink/internal/cli.version=1.2.3"
var version = "dev"

var cfgFile string

// NewRootCmd creates and configures a new root cobra command. It is a
// factory so tests can build isolated instances.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vmlink",
		Short: "vmlink runs remote VM commands on behalf of chat users.",
		Long: `vmlink stores per-user SSH credentials and executes a small set of
remote operations (connection check, directory listing, text file read)
over fresh per-command sessions. Users register as issuers or subscribers;
issuers hand out one-time codes that subscribers redeem to link up.

Running without a subcommand starts the console chat loop.`,
		SilenceUsage: true,
		RunE:         runServe,
	}

	cmd.Version = version

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file")
	cmd.PersistentFlags().String("database.type", "sqlite", "Database type: sqlite, postgres, mysql")
	cmd.PersistentFlags().String("database.dsn", "vmlink.db", "Database connection string (DSN)")
	cmd.PersistentFlags().String("language", "en", `Message language ("en", "ru")`)
	cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")

	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newAuditCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// loadConfig resolves configuration and applies the ambient settings
// (logging level, message language) every subcommand relies on. On a first
// run with no config file anywhere, the resolved defaults are persisted to
// the user config path so subsequent runs have a file to inspect and edit.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, used, err := config.Load(cmd, cfgFile)
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	if used == "" {
		if writeErr := config.WriteFile(&cfg, false); writeErr != nil {
			// The app runs fine on defaults; don't fail startup over this.
			logging.Warnf("could not write default config file: %v", writeErr)
		} else {
			logging.Infof("wrote default config to the user config path")
		}
	}
	if cfg.Debug {
		logging.SetDebug(true)
		db.SetDebug(true)
	}
	i18n.Init(cfg.Language)
	return cfg, nil
}

// openStore opens and migrates the configured database.
func openStore(cfg config.Config) (db.Store, error) {
	store, err := db.NewStoreFromDSN(cfg.Database.Type, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database (%s): %w", cfg.Database.Type, err)
	}
	return store, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	lk := linker.New(store)
	rn := runner.New(store, store)
	transport := &bot.ConsoleTransport{Out: os.Stdout}
	handler := bot.NewHandler(store, lk, rn, transport)
	dispatcher := bot.NewDispatcher(handler)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Infof("vmlink: console chat loop started (db: %s)", cfg.Database.Type)
	updates := bot.ReadUpdates(os.Stdin, 1)
	dispatcher.Run(ctx, updates)
	logging.Infof("vmlink: shutting down")
	return nil
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			// Opening the store runs all pending migrations.
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()
			fmt.Println("migrations applied")
			return nil
		},
	}
}

func newAuditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "Print the audit log, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.GetAllAuditLogEntries()
			if err != nil {
				return fmt.Errorf("read audit log: %w", err)
			}
			for _, e := range entries {
				fmt.Printf("%s\t%d\t%s\t%s\n", e.Timestamp, e.UserID, e.Action, e.Details)
			}
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("vmlink %s\n", version)
		},
	}
}
