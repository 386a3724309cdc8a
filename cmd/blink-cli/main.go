// Command blink-cli talks to a running blink server and checks menu matching
// offline against the local catalog.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"blink/internal/config"
)

func main() {
	cfg := config.LoadCLIConfig()

	rootCmd := &cobra.Command{
		Use:   "blink-cli",
		Short: "Blink turn orchestrator client",
		Long: `blink-cli drives the Blink ordering assistant from a terminal.

  blink-cli turn "two cheeseburgers"   send one utterance to the server
  blink-cli chat                       interactive session
  blink-cli session <id>               show a live session
  blink-cli validate "chicken"         match mentions against the local menu
  blink-cli menu                       list the local menu`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "blink server base URL")
	rootCmd.PersistentFlags().StringVar(&cfg.CatalogPath, "catalog", cfg.CatalogPath, "menu catalog YAML")

	rootCmd.AddCommand(
		turnCmd(&cfg),
		chatCmd(&cfg),
		sessionCmd(&cfg),
		validateCmd(&cfg),
		menuCmd(&cfg),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
