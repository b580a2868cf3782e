package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/halcyonchat/halcyon/internal/compress"
	"github.com/halcyonchat/halcyon/internal/config"
	"github.com/halcyonchat/halcyon/internal/history"
	"github.com/halcyonchat/halcyon/internal/persona"
	"github.com/halcyonchat/halcyon/internal/schema"
	"github.com/halcyonchat/halcyon/internal/shared/stringutils"
)

var historyBot string

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect persisted conversation history",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List history files for a bot",
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the loaded tiers for a bot's active persona pair",
	RunE:  runHistoryShow,
}

func init() {
	historyCmd.PersistentFlags().StringVarP(&historyBot, "bot", "b", "", "Bot name (default from config)")
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
}

func historySetup() (*config.Config, *history.Store, string, error) {
	cfg, err := config.Load("")
	if err != nil {
		return nil, nil, "", fmt.Errorf("load config: %w", err)
	}
	bot := historyBot
	if bot == "" {
		bot = cfg.DefaultBot
	}
	store, err := history.NewStore(cfg.HistoriesDir())
	if err != nil {
		return nil, nil, "", err
	}
	return cfg, store, bot, nil
}

func runHistoryList(_ *cobra.Command, _ []string) error {
	_, store, bot, err := historySetup()
	if err != nil {
		return err
	}

	files, err := store.ListFiles(bot)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Printf("No history files for %s.\n", bot)
		return nil
	}
	for _, f := range files {
		fmt.Println(f)
	}
	return nil
}

func runHistoryShow(_ *cobra.Command, _ []string) error {
	cfg, store, bot, err := historySetup()
	if err != nil {
		return err
	}

	bc := cfg.Bot(bot)
	key := schema.SessionKey{Bot: bot, Persona: persona.PairID(bc.User, bc.Char)}
	s := store.Load(key, cfg.MemoryParamsFor(bot), compress.NewService())

	tier0, tier1, tier2 := s.Snapshot()
	fmt.Printf("Session %s: %d turns, %d summaries, %d mega-summaries\n\n",
		key, len(tier0), len(tier1), len(tier2))

	for _, m := range tier2 {
		fmt.Printf("[mega #%d] %s\n", m.Seq, stringutils.Ellipsize(m.Text, 200))
		if len(m.Keywords) > 0 {
			fmt.Printf("  keywords: %v\n", m.Keywords)
		}
	}
	for _, sum := range tier1 {
		fmt.Printf("[summary #%d] (%s) %s\n", sum.Seq, sum.Speaker, stringutils.Ellipsize(sum.Text, 200))
	}
	for _, t := range tier0 {
		fmt.Printf("[turn #%d] %s: %s\n", t.Seq, t.Speaker, stringutils.Ellipsize(t.DisplayText(), 200))
	}
	return nil
}
