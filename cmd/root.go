package cmd

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/teemow/sendersweep/internal/logging"
)

var (
	debugMode bool
	logFormat string
)

// rootCmd represents the base command for the sendersweep application
var rootCmd = &cobra.Command{
	Use:   "sendersweep",
	Short: "Finds the senders filling your Gmail inbox and how to unsubscribe from them",
	Long: `sendersweep scans the Promotions and Updates categories of a Gmail mailbox,
ranks senders by how many emails they sent and finds their unsubscribe links.

It can run as:
  - A standalone CLI tool (default)
  - An MCP (Model Context Protocol) server for AI assistants`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		if v := os.Getenv("LOG_FORMAT"); v != "" && !cmd.Flags().Changed("log-format") {
			logFormat = v
		}
		slog.SetDefault(logging.New(os.Stderr, logFormat, debugMode))
		return nil
	},
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "sendersweep version %s\n" .Version}}`)

	// If no subcommand is provided, run the scan command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "scan")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", logging.FormatText, "Log format: text or json. Can also use LOG_FORMAT env var.")

	rootCmd.AddCommand(newScanCmd())
	rootCmd.AddCommand(newLinksCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
	rootCmd.AddCommand(newVersionCmd())
}
