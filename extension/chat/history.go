// history.go implements "ipfa history" for browsing stored conversations.

package chat

import (
	"fmt"
	"time"

	"github.com/jpl-au/ipfa/cmd"
	"github.com/jpl-au/ipfa/extension"
	"github.com/jpl-au/ipfa/internal/duration"
	"github.com/jpl-au/ipfa/internal/format"
	"github.com/jpl-au/ipfa/internal/history"
	"github.com/jpl-au/ipfa/internal/log"
	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "history",
		Short: "List, show and delete chat conversations",
		Long: `Browse conversations stored by "ipfa chat".

  ipfa history                 # recent conversations
  ipfa history show 3f2a       # transcript (id or unique prefix)
  ipfa history show 3f2a --full
  ipfa history rm 3f2a
  ipfa history prune --older-than 30d`,
		Args: cobra.NoArgs,
		RunE: runHistoryList,
	}
	c.Flags().IntP(extension.FlagLimit, "n", 20, "Number of conversations")

	ls := &cobra.Command{
		Use:   "ls",
		Short: "List recent conversations",
		Args:  cobra.NoArgs,
		RunE:  runHistoryList,
	}
	ls.Flags().IntP(extension.FlagLimit, "n", 20, "Number of conversations")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a conversation transcript",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistoryShow,
	}
	show.Flags().Bool(extension.FlagFull, false, "Show tool results in full")

	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a conversation",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistoryRm,
	}

	prune := &cobra.Command{
		Use:   "prune",
		Short: "Delete conversations not used within a period",
		Args:  cobra.NoArgs,
		RunE:  runHistoryPrune,
	}
	prune.Flags().String(extension.FlagOlderThan, "", "Retention period (12h, 7d, 4w, 3m)")
	_ = prune.MarkFlagRequired(extension.FlagOlderThan)

	c.AddCommand(ls, show, rm, prune)
	return c
}

func openHistory() (*history.Store, error) {
	s, err := history.Open(history.DefaultPath())
	if err != nil {
		return nil, fmt.Errorf("opening chat history: %w", err)
	}
	return s, nil
}

func runHistoryList(c *cobra.Command, _ []string) error {
	limit, _ := c.Flags().GetInt(extension.FlagLimit)
	if limit < 1 {
		return cmd.PrintJSONError(fmt.Errorf("--%s must be at least 1", extension.FlagLimit))
	}
	s, err := openHistory()
	if err != nil {
		return cmd.PrintJSONError(err)
	}
	defer s.Close()

	convs, err := s.Conversations(c.Context(), limit)
	log.Event("chat:history", "list").Author(cmd.Author()).Rows(len(convs)).Write(err)
	if err != nil {
		return cmd.PrintJSONError(err)
	}
	if cmd.JSON() {
		return cmd.PrintJSON(convs)
	}
	return format.Conversations(cmd.Out(), convs)
}

func runHistoryShow(c *cobra.Command, args []string) error {
	full, _ := c.Flags().GetBool(extension.FlagFull)
	s, err := openHistory()
	if err != nil {
		return cmd.PrintJSONError(err)
	}
	defer s.Close()

	ctx := c.Context()
	l := log.Event("chat:history", "show").Author(cmd.Author()).Detail("id", args[0])
	conv, err := s.Get(ctx, args[0])
	if err != nil {
		l.Write(err)
		return cmd.PrintJSONError(fmt.Errorf("history show %q: %w", args[0], err))
	}
	msgs, err := s.Messages(ctx, conv.ID)
	l.Rows(len(msgs)).Write(err)
	if err != nil {
		return cmd.PrintJSONError(err)
	}
	if cmd.JSON() {
		return cmd.PrintJSON(map[string]any{"conversation": conv, "messages": msgs})
	}
	return format.Transcript(cmd.Out(), conv, msgs, full)
}

func runHistoryRm(c *cobra.Command, args []string) error {
	s, err := openHistory()
	if err != nil {
		return cmd.PrintJSONError(err)
	}
	defer s.Close()

	id, err := s.Delete(c.Context(), args[0])
	log.Event("chat:history", "delete").Author(cmd.Author()).Detail("id", args[0]).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("history rm %q: %w", args[0], err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(map[string]string{"deleted": id})
	}
	fmt.Fprintf(cmd.Out(), "deleted %s\n", id)
	return nil
}

func runHistoryPrune(c *cobra.Command, _ []string) error {
	period, _ := c.Flags().GetString(extension.FlagOlderThan)
	before, err := duration.Before(time.Now(), period)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("--%s: %w", extension.FlagOlderThan, err))
	}
	s, err := openHistory()
	if err != nil {
		return cmd.PrintJSONError(err)
	}
	defer s.Close()

	n, err := s.Prune(c.Context(), before)
	log.Event("chat:history", "prune").Author(cmd.Author()).Detail("older_than", period).Rows(int(n)).Write(err)
	if err != nil {
		return cmd.PrintJSONError(err)
	}
	if cmd.JSON() {
		return cmd.PrintJSON(map[string]int64{"deleted": n})
	}
	fmt.Fprintf(cmd.Out(), "deleted %d conversation(s)\n", n)
	return nil
}
