package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/zentra/emotebank/internal/models"
	"github.com/zentra/emotebank/internal/services/emote"
)

// resolveCmd resolves a name within one scope
var resolveCmd = &cobra.Command{
	Use:   "resolve NAME",
	Short: "Resolve an emote name within a scope",
	Long: `Resolve an emote name exactly as the service does.

Pick one scope:
  --guild ID              the guild's own emotes
  --pack NAME             the guild behind a named pack
  --user ID [--packs]     guilds the user is in, or packs they joined`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

// similarCmd resolves an emote id
var similarCmd = &cobra.Command{
	Use:   "similar ID",
	Short: "Resolve an emote id, substituting a usable copy of the same image",
	Args:  cobra.ExactArgs(1),
	RunE:  runSimilar,
}

func init() {
	resolveCmd.Flags().Int64("guild", 0, "resolve within this guild")
	resolveCmd.Flags().String("pack", "", "resolve within this pack")
	resolveCmd.Flags().Int64("user", 0, "resolve within this user's guilds")
	resolveCmd.Flags().Bool("packs", false, "with --user, use the packs the user joined")

	similarCmd.Flags().Bool("require-guild", true, "only substitute copies still owned by a guild")
}

func scopeFromFlags(cmd *cobra.Command) (models.Scope, error) {
	guildID, _ := cmd.Flags().GetInt64("guild")
	pack, _ := cmd.Flags().GetString("pack")
	userID, _ := cmd.Flags().GetInt64("user")
	packs, _ := cmd.Flags().GetBool("packs")

	set := 0
	for _, changed := range []bool{cmd.Flags().Changed("guild"), cmd.Flags().Changed("pack"), cmd.Flags().Changed("user")} {
		if changed {
			set++
		}
	}
	if set != 1 {
		return models.Scope{}, errors.New("exactly one of --guild, --pack or --user is required")
	}
	if packs && !cmd.Flags().Changed("user") {
		return models.Scope{}, errors.New("--packs requires --user")
	}

	var scope models.Scope
	switch {
	case cmd.Flags().Changed("guild"):
		scope = models.GuildScope(guildID)
	case cmd.Flags().Changed("pack"):
		scope = models.PackScope(pack)
	case packs:
		scope = models.UserPacksScope(userID)
	default:
		scope = models.MutualScope(userID)
	}
	return scope, scope.Validate()
}

func runResolve(cmd *cobra.Command, args []string) error {
	scope, err := scopeFromFlags(cmd)
	if err != nil {
		return err
	}

	records, closeFn, err := openRecords(cmd.Context())
	if err != nil {
		return err
	}
	defer closeFn()

	e, err := emote.NewResolver(records).Resolve(cmd.Context(), scope, args[0])
	if err != nil {
		return fmt.Errorf("resolve %q in %s: %w", args[0], scope, err)
	}
	return writeJSON(cmd, e)
}

func runSimilar(cmd *cobra.Command, args []string) error {
	emoteID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || emoteID <= 0 {
		return fmt.Errorf("invalid emote id %q", args[0])
	}
	requireGuild, _ := cmd.Flags().GetBool("require-guild")

	records, closeFn, err := openRecords(cmd.Context())
	if err != nil {
		return err
	}
	defer closeFn()

	e, err := emote.NewResolver(records).ResolveSimilar(cmd.Context(), emoteID, requireGuild)
	if err != nil {
		return fmt.Errorf("similar to %d: %w", emoteID, err)
	}
	return writeJSON(cmd, e)
}
