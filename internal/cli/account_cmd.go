package cli

import (
	"fmt"

	"github.com/alexanderramin/quitplan/internal/cli/formatter"
	"github.com/spf13/cobra"
)

func newAccountCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage reminder delivery accounts",
	}
	cmd.AddCommand(newAccountSetTokenCmd(app))
	return cmd
}

func newAccountSetTokenCmd(app *App) *cobra.Command {
	var clear bool

	cmd := &cobra.Command{
		Use:   "set-token MEMBER_ID [TOKEN]",
		Short: "Set or clear a member's push token",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			token := ""
			switch {
			case clear && len(args) == 2:
				return fmt.Errorf("--clear does not take a token")
			case !clear && len(args) < 2:
				return fmt.Errorf("a token is required unless --clear is given")
			case len(args) == 2:
				token = args[1]
			}

			acct, err := app.Accounts.SetPushToken(cmd.Context(), args[0], token)
			if err != nil {
				return err
			}
			if acct.HasTarget() {
				fmt.Fprintf(cmd.OutOrStdout(), "Push token set for member %s (account %s)\n", acct.MemberID, formatter.TruncID(acct.ID))
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Push token cleared for member %s\n", acct.MemberID)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&clear, "clear", false, "Remove the push token")
	return cmd
}
