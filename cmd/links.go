package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/teemow/sendersweep/internal/google"
	"github.com/teemow/sendersweep/internal/scan"
)

func newLinksCmd() *cobra.Command {
	var (
		account     string
		configFile  string
		maxMessages int64
		output      string
	)

	cmd := &cobra.Command{
		Use:   "links SENDER [SENDER...]",
		Short: "Find unsubscribe links for one or more senders",
		Long: `Inspect the most recent emails of each sender and print the unsubscribe links
found in the List-Unsubscribe header, or in the email body when the header is
missing. Senders without any link are listed with an empty result.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := scan.LoadConfig(configFile)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("max-messages") {
				cfg.LinkLookupMessages = maxMessages
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			client, err := newGmailClient(ctx, account)
			if err != nil {
				return err
			}

			lookups := make([]*scan.LinkLookup, 0, len(args))
			for _, sender := range args {
				res, err := scan.FindUnsubscribeLinks(ctx, client, sender, cfg.LinkLookupMessages, slog.Default(), nil)
				if err != nil {
					return fmt.Errorf("failed to find unsubscribe links for %s: %w", sender, err)
				}
				lookups = append(lookups, res)
			}

			w := cmd.OutOrStdout()
			switch output {
			case outputJSON:
				return writeJSON(w, lookups)
			case outputTable:
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "SENDER\tONE-CLICK\tSOURCE\tLINKS")
				for _, l := range lookups {
					source := l.Tier
					if source == "" {
						source = "-"
					}
					fmt.Fprintf(tw, "%s\t%t\t%s\t%s\n", l.Sender, l.OneClick, source, strings.Join(l.Links, " "))
				}
				return tw.Flush()
			default:
				return fmt.Errorf("unsupported output format %q (supported: table, json)", output)
			}
		},
	}

	cmd.Flags().StringVar(&account, "account", google.DefaultAccount, "Google account name to use")
	cmd.Flags().StringVar(&configFile, "config", "", "YAML file with scan settings")
	cmd.Flags().Int64Var(&maxMessages, "max-messages", scan.DefaultLinkLookupMessages, "Number of recent emails to inspect per sender")
	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "Output format: table or json")

	return cmd
}
