package commands

import (
	"procmap/internal/backend"
	"procmap/internal/config"
	"procmap/internal/logging"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// Version, Commit, and BuildDate are set at build time via ldflags.
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"

	verbose bool
	cfg     *config.AppConfig

	client backend.Client
)

var rootCmd = &cobra.Command{
	Use:   "procmap",
	Short: "procmap renders process-mining analyses as diagrams",
	Long: `A client for the process-mining backend. It styles process maps, handover
networks and outcome analyses, renders them as Mermaid, Graphviz DOT or a
standalone HTML viewer, and serves them to assistants over MCP.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.Init(verbose)

		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}

		client = backend.NewClient(cfg.Backend)

		log.Debug().
			Str("version", Version).
			Str("commit", Commit).
			Str("buildDate", BuildDate).
			Str("backend", cfg.Backend.BaseURL).
			Msg("procmap starting")
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.AddCommand(serveCmd, analysesCmd, renderCmd, previewCmd, formatCmd)
}
