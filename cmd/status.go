package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/halcyonchat/halcyon/internal/config"
	"github.com/halcyonchat/halcyon/internal/providers"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show halcyon status",
	RunE:  runStatus,
}

func runStatus(_ *cobra.Command, _ []string) error {
	cfgPath := config.ConfigPath()

	fmt.Printf("%s halcyon Status\n\n", logo)

	_, statErr := os.Stat(cfgPath)
	cfgMark := "✗"
	if statErr == nil {
		cfgMark = "✓"
	}
	fmt.Printf("Config:    %s %s\n", cfgPath, cfgMark)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("  (could not load config: %v)\n", err)
		return nil
	}

	_, dataErr := os.Stat(cfg.DataPath())
	dataMark := "✗"
	if dataErr == nil {
		dataMark = "✓"
	}
	fmt.Printf("Data dir:  %s %s\n", cfg.DataPath(), dataMark)
	fmt.Printf("Default:   %s (service %s)\n\n", cfg.DefaultBot, cfg.Defaults.Service)

	fmt.Println("Services:")
	for _, name := range providers.Names() {
		sc, ok := cfg.Services[name]
		switch {
		case ok && sc.APIKey != "":
			fmt.Printf("  %-12s ✓\n", name)
		default:
			fmt.Printf("  %-12s (not set)\n", name)
		}
	}

	fmt.Println("\nBots:")
	for name, bc := range cfg.Bots {
		params := cfg.MemoryParamsFor(name)
		fmt.Printf("  %-12s char=%s user=%s tiers=%d/%d/%d\n",
			name, bc.Char, bc.User, params.N0, params.N1, params.MaxMegaSummaries)
	}
	return nil
}
