package main

import (
	"fmt"
	"net/url"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pancarangroup/crmportal/pkg/crmsdk"
)

func newInvoicesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invoices",
		Short: "Work with invoices",
	}

	cmd.AddCommand(
		newInvoicesListCmd(),
		newInvoicesShowCmd(),
		newInvoicesConfirmCmd(),
		newInvoicesReviseCmd(),
	)

	return cmd
}

func newInvoicesListCmd() *cobra.Command {
	var (
		status string
		page   int
		size   int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List invoices by status bucket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := exitIfLoggedOut(cmd); err != nil {
				return err
			}

			query := url.Values{}
			if page > 0 {
				query.Set("page", strconv.Itoa(page))
			}
			if size > 0 {
				query.Set("size", strconv.Itoa(size))
			}

			var (
				result *crmsdk.InvoicePage
				err    error
			)
			switch status {
			case "waiting-confirm":
				result, err = portal.Invoices.ListWaitingConfirm(cmd.Context(), query)
			case "revision":
				result, err = portal.Invoices.ListRevision(cmd.Context(), query)
			case "outstanding":
				result, err = portal.Invoices.ListOutstandingPayments(cmd.Context(), query)
			case "paid-off":
				result, err = portal.Invoices.ListPaidOff(cmd.Context(), query)
			default:
				return fmt.Errorf("unknown status %q (waiting-confirm, revision, outstanding, paid-off)", status)
			}
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNUMBER\tCUSTOMER\tAMOUNT\tDUE\tSTATUS")
			for _, inv := range result.Items {
				fmt.Fprintf(w, "%s\t%s\t%s\t%.2f %s\t%s\t%s\n",
					inv.ID, inv.InvoiceNumber, inv.CustomerName,
					inv.Amount, inv.Currency, inv.DueDate, inv.Status)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d of %d invoices (page %d)\n",
				len(result.Items), result.Total, result.Page)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "waiting-confirm", "status bucket to list")
	cmd.Flags().IntVar(&page, "page", 0, "page number")
	cmd.Flags().IntVar(&size, "size", 0, "page size")
	return cmd
}

func newInvoicesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <invoice-id>",
		Short: "Show one invoice",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := exitIfLoggedOut(cmd); err != nil {
				return err
			}

			inv, err := portal.Invoices.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "Number:\t%s\n", inv.InvoiceNumber)
			fmt.Fprintf(w, "Customer:\t%s\n", inv.CustomerName)
			fmt.Fprintf(w, "Amount:\t%.2f %s\n", inv.Amount, inv.Currency)
			fmt.Fprintf(w, "Issued:\t%s\n", inv.IssuedDate)
			fmt.Fprintf(w, "Due:\t%s\n", inv.DueDate)
			fmt.Fprintf(w, "Status:\t%s\n", inv.Status)
			if inv.Note != "" {
				fmt.Fprintf(w, "Note:\t%s\n", inv.Note)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if len(inv.Attachments) > 0 {
				files, err := portal.Files.ListFiles(cmd.Context(), inv.Attachments)
				if err != nil {
					return err
				}
				for _, file := range files {
					fmt.Fprintf(cmd.OutOrStdout(), "Attachment: %s (%s)\n", file.FileName, file.Path)
				}
			}
			return nil
		},
	}
}

func newInvoicesConfirmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "confirm <invoice-id>",
		Short: "Accept an invoice",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := exitIfLoggedOut(cmd); err != nil {
				return err
			}
			if err := portal.Invoices.Confirm(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Invoice %s confirmed\n", args[0])
			return nil
		},
	}
}

func newInvoicesReviseCmd() *cobra.Command {
	var note string

	cmd := &cobra.Command{
		Use:   "revise <invoice-id>",
		Short: "Send an invoice back for revision",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := exitIfLoggedOut(cmd); err != nil {
				return err
			}
			if err := portal.Invoices.Revise(cmd.Context(), args[0], note); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Invoice %s sent back for revision\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&note, "note", "", "revision note")
	return cmd
}
