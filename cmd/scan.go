package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/teemow/sendersweep/internal/gmail"
	"github.com/teemow/sendersweep/internal/google"
	"github.com/teemow/sendersweep/internal/scan"
)

// Output formats of the scan and links commands.
const (
	outputTable = "table"
	outputJSON  = "json"
)

type scanOptions struct {
	account     string
	configFile  string
	queries     []string
	fetchCap    int
	listCap     int
	concurrency int
	rateMode    string
	limit       int
	output      string
}

func newScanCmd() *cobra.Command {
	var opts scanOptions

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Rank the senders of promotional and update emails",
		Long: `Scan the Promotions and Updates categories of your Gmail mailbox and list
senders ranked by how many emails they sent, with their unread count, the date
of their latest email and whether they advertise a List-Unsubscribe header.

Settings are read from the built-in defaults, the optional --config YAML file,
SCAN_* environment variables and finally the flags, in that order.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := scanConfigFromFlags(cmd, opts)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			client, err := newGmailClient(ctx, opts.account)
			if err != nil {
				return err
			}

			scanner, err := scan.NewScanner(cfg, slog.Default(), nil)
			if err != nil {
				return err
			}
			report, err := scanner.Scan(ctx, client, opts.account)
			if err != nil {
				return fmt.Errorf("scan failed: %w", err)
			}

			return writeReport(cmd.OutOrStdout(), report, opts.limit, opts.output)
		},
	}

	addScanFlags(cmd, &opts)

	return cmd
}

func addScanFlags(cmd *cobra.Command, opts *scanOptions) {
	cmd.Flags().StringVar(&opts.account, "account", google.DefaultAccount, "Google account name to use")
	cmd.Flags().StringVar(&opts.configFile, "config", "", "YAML file with scan settings")
	cmd.Flags().StringArrayVar(&opts.queries, "query", nil, "Gmail search query to scan, repeatable (default: Promotions and Updates categories)")
	cmd.Flags().IntVar(&opts.fetchCap, "fetch-cap", scan.DefaultFetchCap, "Maximum number of messages whose metadata is fetched")
	cmd.Flags().IntVar(&opts.listCap, "list-cap", scan.DefaultListCap, "Stop listing once this many message IDs were collected")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", scan.DefaultConcurrency, "Number of messages fetched in parallel")
	cmd.Flags().StringVar(&opts.rateMode, "rate-mode", scan.RateModeFixed, "Request pacing: fixed or adaptive")
	cmd.Flags().IntVar(&opts.limit, "limit", 0, "Maximum number of senders to print, 0 for all")
	cmd.Flags().StringVarP(&opts.output, "output", "o", outputTable, "Output format: table or json")
}

// scanConfigFromFlags layers explicitly set flags over the file and
// environment configuration.
func scanConfigFromFlags(cmd *cobra.Command, opts scanOptions) (scan.Config, error) {
	cfg, err := scan.LoadConfig(opts.configFile)
	if err != nil {
		return scan.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("query") {
		cfg.Queries = opts.queries
	}
	if flags.Changed("fetch-cap") {
		cfg.FetchCap = opts.fetchCap
	}
	if flags.Changed("list-cap") {
		cfg.ListCap = opts.listCap
	}
	if flags.Changed("concurrency") {
		cfg.Concurrency = opts.concurrency
	}
	if flags.Changed("rate-mode") {
		cfg.RateMode = strings.ToLower(opts.rateMode)
	}

	if err := cfg.Validate(); err != nil {
		return scan.Config{}, fmt.Errorf("invalid scan configuration: %w", err)
	}
	return cfg, nil
}

// newGmailClient creates a Gmail client from the token stored for account.
func newGmailClient(ctx context.Context, account string) (*gmail.Client, error) {
	if !google.HasTokenForAccount(account) {
		return nil, fmt.Errorf("%s", google.GetAuthenticationErrorMessage(account))
	}
	client, err := gmail.NewClientForAccount(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail client for account %s: %w", account, err)
	}
	return client, nil
}

func writeReport(w io.Writer, report *scan.Report, limit int, format string) error {
	senders := report.Senders
	if limit > 0 && len(senders) > limit {
		senders = senders[:limit]
	}

	switch format {
	case outputJSON:
		out := *report
		out.Senders = senders
		return writeJSON(w, out)
	case outputTable:
		s := report.Summary
		fmt.Fprintf(w, "Scan %s: %d emails (%d unread) from %d senders, %d of %d messages fetched, %d skipped\n\n",
			s.ScanID, s.TotalEmails, s.TotalUnread, s.UniqueSenders, s.FetchedMessages, s.CollectedMessages, s.SkippedMessages)

		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "SENDER\tNAME\tEMAILS\tUNREAD\tLATEST\tUNSUBSCRIBE")
		for _, r := range senders {
			latest := "-"
			if r.MostRecentDate != nil {
				latest = r.MostRecentDate.Format("2006-01-02")
			}
			unsub := "no"
			if r.HasUnsubscribeSignal {
				unsub = "yes"
			}
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\n", r.Email, r.Name, r.TotalCount, r.UnreadCount, latest, unsub)
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unsupported output format %q (supported: table, json)", format)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
