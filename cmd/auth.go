package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/humorloos/feierabend/internal/google"
)

func newAuthCmd() *cobra.Command {
	var account string

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Store an OAuth token for a Google account",
		Long: `Run the out-of-band OAuth flow and store the resulting token for later
use by the serve and watch commands.

Requires GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET in the environment.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("account") {
				if a := os.Getenv("FEIERABEND_ACCOUNT"); a != "" {
					account = a
				}
			}

			if google.HasTokenForAccount(account) {
				fmt.Printf("A token for account %q already exists and will be replaced.\n", account)
			}

			fmt.Println("Open the following URL in your browser and authorize the application:")
			fmt.Println()
			fmt.Println("  " + google.GetAuthURL())
			fmt.Println()
			fmt.Print("Paste the authorization code here: ")

			code, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil {
				return fmt.Errorf("failed to read authorization code: %w", err)
			}
			code = strings.TrimSpace(code)
			if code == "" {
				return fmt.Errorf("no authorization code provided")
			}

			if err := google.SaveToken(cmd.Context(), account, code); err != nil {
				return err
			}

			fmt.Printf("Token stored for account %q.\n", account)
			return nil
		},
	}

	cmd.Flags().StringVar(&account, "account", "default", "Name to store the token under. Can also use FEIERABEND_ACCOUNT env var.")

	return cmd
}
