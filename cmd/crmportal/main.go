package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/pancarangroup/crmportal/internal/app"
)

// portal is built once in the root PersistentPreRunE and shared by every
// subcommand.
var portal *app.Application

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "crmportal",
		Short:         "Pancaran CRM invoice portal client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// A missing .env file is fine; the environment may already be set.
			_ = godotenv.Load()

			var err error
			portal, err = app.New(app.LoadConfig())
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if portal == nil {
				return nil
			}
			return portal.Close()
		},
	}

	cmd.AddCommand(
		newLoginCmd(),
		newLogoutCmd(),
		newWhoamiCmd(),
		newCheckCmd(),
		newSwitchRoleCmd(),
		newInvoicesCmd(),
		newFilesCmd(),
		newUsersCmd(),
		newTenantsCmd(),
	)

	return cmd
}
