package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/satriahrh/synapse/config"
	"github.com/satriahrh/synapse/utils/log"
)

var (
	configPath string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "synapse",
	Short: "Research assistant backend: arXiv discovery, PDF reading and Gemini chat",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return err
		}
		return log.Configure(cfg.Debug)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		log.Sync()
	},
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("CONFIG_PATH"), "YAML config file (environment wins over file values)")

	searchCmd.Flags().IntVar(&searchStart, "start", 0, "Result offset")
	searchCmd.Flags().IntVarP(&searchMax, "max", "n", 10, "Maximum results")
	searchCmd.Flags().StringVar(&searchSortBy, "sort-by", "submittedDate", "relevance, lastUpdatedDate or submittedDate")
	searchCmd.Flags().StringVar(&searchSortOrder, "sort-order", "descending", "ascending or descending")

	extractCmd.Flags().IntVar(&extractLimit, "limit", 0, "Truncate to this many characters (0 uses the configured limit)")

	watchCmd.Flags().StringVar(&watchURL, "url", "ws://localhost:8080/ws", "Feed endpoint")
	watchCmd.Flags().StringVar(&watchToken, "token", os.Getenv("SYNAPSE_TOKEN"), "Access token (or set SYNAPSE_TOKEN)")

	rootCmd.AddCommand(serveCmd, searchCmd, randomCmd, extractCmd, watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
