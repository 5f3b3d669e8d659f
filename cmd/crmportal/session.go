package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newLoginCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Authenticate and store a portal session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				fmt.Fprint(cmd.OutOrStdout(), "Password: ")
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil {
					return fmt.Errorf("failed to read password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}

			result, err := portal.Auth.Login(cmd.Context(), args[0], password)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n",
				result.Profile.Username, result.Profile.RoleName)
			return nil
		},
	}

	cmd.Flags().StringVarP(&password, "password", "p", "", "password (prompted when omitted)")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the stored portal session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := portal.Auth.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the stored session profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := portal.Auth.StoredUser(cmd.Context())
			if err != nil {
				return err
			}
			if snap.Profile == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "Username:\t%s\n", snap.Profile.Username)
			fmt.Fprintf(w, "Name:\t%s\n", snap.Profile.Name)
			fmt.Fprintf(w, "Email:\t%s\n", snap.Profile.Email)
			fmt.Fprintf(w, "Tenant:\t%s (%s)\n", snap.Profile.Tenant, snap.TenantType)
			fmt.Fprintf(w, "Role:\t%s (%s)\n", snap.Profile.RoleName, snap.Profile.RoleID)
			for _, role := range snap.Profile.Roles {
				fmt.Fprintf(w, "Available role:\t%s (%s)\n", role.Name, role.ID)
			}
			fmt.Fprintf(w, "Features:\t%s\n", strings.Join(snap.FeatureRoles, ", "))
			return w.Flush()
		},
	}
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the stored session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := portal.Auth.CheckSession(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Session is valid")
			return nil
		},
	}
}

func newSwitchRoleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "switch-role <role-id>",
		Short: "Switch the active role of the current session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := portal.Auth.SwitchRole(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Switched to role %s\n", result.Profile.RoleName)
			return nil
		},
	}
}

// exitIfLoggedOut is a convenience hook for commands that need a session but
// should fail with a friendly message instead of an auth error.
func exitIfLoggedOut(cmd *cobra.Command) error {
	if portal.Auth.IsAuthenticated(cmd.Context()) {
		return nil
	}
	fmt.Fprintln(os.Stderr, "Not logged in; run `crmportal login <username>` first")
	return fmt.Errorf("no stored session")
}
