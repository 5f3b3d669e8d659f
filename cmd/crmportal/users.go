package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pancarangroup/crmportal/pkg/crmsdk"
)

func newUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Administer portal users",
	}

	cmd.AddCommand(newUsersShowCmd(), newUsersUpdateCmd(), newUsersPermissionsCmd())
	return cmd
}

func newUsersShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <user-id>",
		Short: "Show the admin view of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := exitIfLoggedOut(cmd); err != nil {
				return err
			}

			user, err := portal.Users.FetchUser(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "Username:\t%s\n", user.Username)
			fmt.Fprintf(w, "Name:\t%s\n", user.Name)
			fmt.Fprintf(w, "Email:\t%s\n", user.Email)
			fmt.Fprintf(w, "Status:\t%s\n", user.Status)
			fmt.Fprintf(w, "Tenant:\t%s\n", user.Tenant)
			fmt.Fprintf(w, "Default role:\t%s\n", user.DefaultRole)
			return w.Flush()
		},
	}
}

func newUsersUpdateCmd() *cobra.Command {
	var update crmsdk.AdminUserUpdate

	cmd := &cobra.Command{
		Use:   "update <user-id>",
		Short: "Update a user's mutable fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := exitIfLoggedOut(cmd); err != nil {
				return err
			}

			user, err := portal.Users.UpdateUser(cmd.Context(), args[0], update)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", user.Username)
			return nil
		},
	}

	cmd.Flags().StringVar(&update.Name, "name", "", "display name")
	cmd.Flags().StringVar(&update.Email, "email", "", "email address")
	cmd.Flags().StringVar(&update.Status, "status", "", "account status")
	cmd.Flags().StringVar(&update.DefaultRole, "default-role", "", "default role id")
	return cmd
}

func newUsersPermissionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "permissions <user-id> <role-type>",
		Short: "Show a user's feature and data permissions",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := exitIfLoggedOut(cmd); err != nil {
				return err
			}

			domains, err := portal.Users.FetchFeaturePermissions(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "DOMAIN\tFEATURE\tENABLED")
			for _, domain := range domains {
				for _, feature := range domain.AvailableFeatures {
					fmt.Fprintf(w, "%s\t%s\t%t\n", domain.Name, feature.Name, feature.Enabled)
				}
			}
			if err := w.Flush(); err != nil {
				return err
			}

			perms, err := portal.Users.FetchDataPermissions(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			selected := make(map[string]bool, len(perms.SelectedCustomers))
			for _, id := range perms.SelectedCustomers {
				selected[id] = true
			}
			for _, customer := range perms.Customers {
				marker := " "
				if selected[customer.ID] {
					marker = "*"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Customer: [%s] %s (%s)\n", marker, customer.Name, customer.ID)
			}
			return nil
		},
	}
}

func newTenantsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tenants",
		Short: "List all tenants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := exitIfLoggedOut(cmd); err != nil {
				return err
			}

			tenants, err := portal.Users.FetchTenants(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tTYPE")
			for _, tenant := range tenants {
				fmt.Fprintf(w, "%s\t%s\t%s\n", tenant.ID, tenant.Name, strings.ToUpper(tenant.Type))
			}
			return w.Flush()
		},
	}
}
