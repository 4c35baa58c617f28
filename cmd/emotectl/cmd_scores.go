package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/spf13/cobra"

	"github.com/zentra/emotebank/internal/models"
	"github.com/zentra/emotebank/internal/services/popularity"
	"github.com/zentra/emotebank/internal/store"
	"github.com/zentra/emotebank/pkg/database"
)

// scoresCmd shows popularity
var scoresCmd = &cobra.Command{
	Use:   "scores",
	Short: "Show emote popularity",
	Long: `Show emote popularity (0-255).

  --guild ID    every emote of the guild, most popular first
  --emote ID    one emote, plus its warm copies with --hash`,
	Args: cobra.NoArgs,
	RunE: runScores,
}

// bumpCmd records usages without going through the queue
var bumpCmd = &cobra.Command{
	Use:   "bump GUILD_ID EMOTE_ID",
	Short: "Record emote usages directly",
	Args:  cobra.ExactArgs(2),
	RunE:  runBump,
}

// decayCmd runs a single decay pass
var decayCmd = &cobra.Command{
	Use:   "decay",
	Short: "Lower every warm guild-owned score by one",
	Long: `Run one decay pass immediately. This does not take the scheduler lock,
so running it next to the daemon decays the same tick twice.

With --dry-run the pass runs in a transaction that is rolled back and
only the affected row count is reported.`,
	Args: cobra.NoArgs,
	RunE: runDecay,
}

var errDryRun = errors.New("dry run")

func init() {
	scoresCmd.Flags().Int64("guild", 0, "list scores for this guild")
	scoresCmd.Flags().Int64("emote", 0, "show the score of this emote")
	scoresCmd.Flags().Bool("hash", false, "with --emote, include copies sharing its image")
	scoresCmd.MarkFlagsMutuallyExclusive("guild", "emote")
	scoresCmd.MarkFlagsOneRequired("guild", "emote")

	bumpCmd.Flags().Int("count", 1, "number of usages to record")

	decayCmd.Flags().Bool("dry-run", false, "report how many rows would change without changing them")
}

func parseID(kind, raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", kind, raw)
	}
	return id, nil
}

func runScores(cmd *cobra.Command, args []string) error {
	guildID, _ := cmd.Flags().GetInt64("guild")
	emoteID, _ := cmd.Flags().GetInt64("emote")
	withHash, _ := cmd.Flags().GetBool("hash")

	records, closeFn, err := openRecords(cmd.Context())
	if err != nil {
		return err
	}
	defer closeFn()
	counter := popularity.NewCounter(records)

	if guildID != 0 {
		scores, err := counter.GuildScores(cmd.Context(), guildID)
		if err != nil {
			return err
		}
		return writeJSON(cmd, scores)
	}

	score, err := counter.Score(cmd.Context(), emoteID)
	if err != nil {
		return err
	}
	out := map[string]any{"emoteId": emoteID, "popularity": score}
	if withHash {
		copies, err := counter.HashScores(cmd.Context(), emoteID)
		if err != nil {
			return err
		}
		out["copies"] = copies
	}
	return writeJSON(cmd, out)
}

func runBump(cmd *cobra.Command, args []string) error {
	guildID, err := parseID("guild", args[0])
	if err != nil {
		return err
	}
	emoteID, err := parseID("emote", args[1])
	if err != nil {
		return err
	}
	count, _ := cmd.Flags().GetInt("count")
	if count < 1 {
		return errors.New("--count must be at least 1")
	}

	records, closeFn, err := openRecords(cmd.Context())
	if err != nil {
		return err
	}
	defer closeFn()
	counter := popularity.NewCounter(records)

	usages := make([]models.Usage, count)
	for i := range usages {
		usages[i] = models.Usage{GuildID: guildID, EmoteID: emoteID}
	}
	if err := counter.BumpBatch(cmd.Context(), usages); err != nil {
		return err
	}

	score, err := counter.Score(cmd.Context(), emoteID)
	if err != nil {
		return err
	}
	return writeJSON(cmd, models.EmoteScore{EmoteID: emoteID, Popularity: score})
}

func runDecay(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	records, closeFn, err := openRecords(cmd.Context())
	if err != nil {
		return err
	}
	defer closeFn()

	var rows int64
	if dryRun {
		pg, ok := records.(*store.PostgresStore)
		if !ok || database.Pool == nil {
			return errors.New("--dry-run needs a PostgreSQL connection")
		}
		err = database.WithTransaction(cmd.Context(), func(ctx context.Context, tx pgx.Tx) error {
			rows, err = popularity.NewCounter(pg.WithTx(tx)).DecayAll(ctx)
			if err != nil {
				return err
			}
			return errDryRun
		})
		if !errors.Is(err, errDryRun) {
			return err
		}
	} else {
		rows, err = popularity.NewCounter(records).DecayAll(cmd.Context())
		if err != nil {
			return err
		}
	}

	return writeJSON(cmd, map[string]any{"decayed": rows, "dryRun": dryRun})
}
