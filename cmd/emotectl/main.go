package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/zentra/emotebank/config"
	"github.com/zentra/emotebank/internal/store"
	"github.com/zentra/emotebank/pkg/database"
)

var verbose bool

// rootCmd is the emote operator CLI
var rootCmd = &cobra.Command{
	Use:   "emotectl",
	Short: "Inspect and maintain the emote bank",
	Long: `Operator tooling for the emote bank.

Available commands:
  resolve - Resolve an emote name within a guild, pack or user scope
  similar - Resolve an emote id, substituting a copy of the same image if needed
  scores  - Show popularity for a guild or a single emote
  bump    - Record emote usages directly, bypassing the queue
  decay   - Run one decay pass over every score`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := zerolog.WarnLevel
		if verbose {
			level = zerolog.DebugLevel
		}
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log resolver and counter decisions")

	rootCmd.AddCommand(resolveCmd, similarCmd, scoresCmd, bumpCmd, decayCmd)
}

// openRecords connects the record store. Tests replace it.
var openRecords = func(ctx context.Context) (store.RecordStore, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	pool, err := database.NewPostgresPool(cfg.Database.URL)
	if err != nil {
		return nil, nil, err
	}
	return store.NewPostgresStore(pool, cfg.Database.QueryTimeout), database.Close, nil
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
