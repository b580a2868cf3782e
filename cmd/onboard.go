package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/halcyonchat/halcyon/internal/config"
)

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Initialize configuration and data directories",
	RunE:  runOnboard,
}

func runOnboard(_ *cobra.Command, _ []string) error {
	cfgPath := config.ConfigPath()

	if _, err := os.Stat(cfgPath); err == nil {
		fmt.Printf("Config already exists at %s\n", cfgPath)
		fmt.Printf("Press Enter to refresh (keep existing values) or Ctrl+C to cancel: ")
		fmt.Scanln()
		existing, loadErr := config.Load(cfgPath)
		if loadErr != nil {
			def := config.DefaultConfig()
			existing = &def
		}
		if err := config.Save(existing, cfgPath); err != nil {
			return err
		}
		fmt.Printf("✓ Config refreshed at %s\n", cfgPath)
	} else {
		cfg := config.DefaultConfig()
		if err := config.Save(&cfg, cfgPath); err != nil {
			return err
		}
		fmt.Printf("✓ Created config at %s\n", cfgPath)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	for _, dir := range []string{cfg.HistoriesDir(), filepath.Join(cfg.PersonasDir(), "chars"), filepath.Join(cfg.PersonasDir(), "users")} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	fmt.Printf("✓ Data directory at %s\n", cfg.DataPath())

	createPersonaTemplates(cfg.PersonasDir())

	fmt.Printf("\n%s halcyon is ready!\n\n", logo)
	fmt.Println("Next steps:")
	fmt.Printf("  1. Add an API key under \"services\" in %s\n", cfgPath)
	fmt.Printf("  2. Chat: halcyon chat -m \"Hello!\"\n")
	return nil
}

func createPersonaTemplates(dir string) {
	templates := map[string]string{
		filepath.Join("chars", "halcyon.yaml"): `name: Halcyon
description: >
  {{char}} is a calm, attentive assistant who remembers what {{user}} has
  told them and keeps answers concise.
style: Friendly and plain-spoken. No filler.
`,
		filepath.Join("users", "default.yaml"): `name: Friend
description: ""
`,
	}

	for rel, content := range templates {
		p := filepath.Join(dir, rel)
		if _, err := os.Stat(p); os.IsNotExist(err) {
			_ = os.WriteFile(p, []byte(content), 0o644)
			fmt.Printf("  Created personas/%s\n", rel)
		}
	}
}
