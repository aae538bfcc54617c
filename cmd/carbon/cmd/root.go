package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/carbonarchive/carbon/internal/config"
)

// cfg is the resolved configuration shared by every subcommand, loaded once
// in the root command's PersistentPreRunE. Mirrors the global rootCmd
// flag/config wiring in cmd/arx/main.go, minus its DI container: carbon's
// dependencies (config, storage backend, string dictionary) are concrete
// types, not runtime-injected interfaces.
var cfg *config.Config

var cfgPath string
var maskFlag uint32
var storageCacheFlag string
var storageFallbackFlag string

var rootCmd = &cobra.Command{
	Use:   "carbon",
	Short: "Inspect and convert columnar archives",
	Long: `carbon ingests a JSON document, builds a columnar archive in
memory, and runs a traversal-based operation against it: listing keys,
printing values, counting occurrences, converting back to JSON, or
reporting statistics.`,
	SilenceUsage: true,
	PersistentPreRunE: func(c *cobra.Command, args []string) error {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if maskFlag != 0 {
			loaded.Archive.DefaultMask = maskFlag
		}
		cfg = loaded
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to a YAML or JSON config file")
	rootCmd.PersistentFlags().Uint32Var(&maskFlag, "mask", 0, "override the default property-iterator visit mask (0 keeps the config default)")
	rootCmd.PersistentFlags().StringVar(&storageCacheFlag, "storage-cache", "", "local directory to use as a read-through cache in front of the configured storage backend")
	rootCmd.PersistentFlags().StringVar(&storageFallbackFlag, "storage-fallback", "", "local directory to fall back to when the configured storage backend can't serve a key")

	rootCmd.AddCommand(showKeysCmd)
	rootCmd.AddCommand(showValuesCmd)
	rootCmd.AddCommand(countValuesCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(statCmd)
	rootCmd.AddCommand(watchCmd)
}
