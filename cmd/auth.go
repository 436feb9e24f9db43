package cmd

import (
	"bufio"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teemow/sendersweep/internal/gmail"
	"github.com/teemow/sendersweep/internal/google"
)

func newAuthCmd() *cobra.Command {
	var (
		account string
		code    string
	)

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize read-only access to a Gmail account",
		Long: `Print the Google consent URL, read the authorization code shown after
granting access and store the resulting token for the account.

Requires GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET to be set, for example in a
.env file in the working directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if code == "" {
				url, err := google.GetAuthURL()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Open this URL in your browser and grant access:\n\n%s\n\nAuthorization code: ", url)

				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("failed to read authorization code: %w", err)
				}
				code = strings.TrimSpace(line)
			}
			if code == "" {
				return fmt.Errorf("authorization code is required")
			}

			if err := google.SaveTokenForAccount(cmd.Context(), account, code); err != nil {
				return err
			}

			client, err := gmail.NewClientForAccount(cmd.Context(), account)
			if err != nil {
				return err
			}
			email, err := client.EmailAddress(cmd.Context())
			if err != nil {
				slog.Warn("Token saved but the mailbox could not be read", "account", account, "error", err)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Account %q is authorized for %s\n", account, email)
			return nil
		},
	}

	cmd.Flags().StringVar(&account, "account", google.DefaultAccount, "Google account name to store the token under")
	cmd.Flags().StringVar(&code, "code", "", "Authorization code, skips the interactive prompt")

	return cmd
}
