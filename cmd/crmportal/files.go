package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pancarangroup/crmportal/pkg/crmsdk"
)

func newFilesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "files",
		Short: "Work with stored file attachments",
	}

	cmd.AddCommand(newFilesListCmd(), newFilesDownloadCmd())
	return cmd
}

func newFilesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <table-name> <record-id>",
		Short: "List the files attached to a record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := portal.Files.ListFiles(cmd.Context(), []crmsdk.Attachment{
				{TableName: args[0], RecordID: args[1]},
			})
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No files")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tPATH\tTYPE")
			for _, entry := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\n", entry.FileName, entry.Path, entry.MimeType)
			}
			return w.Flush()
		},
	}
}

func newFilesDownloadCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "download <path>",
		Short: "Download a stored file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := portal.Files.Download(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			target := out
			if target == "" {
				target = filepath.Base(file.FileName)
			}
			if err := os.WriteFile(target, file.Bytes, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", target, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes)\n", target, len(file.Bytes))
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default: the stored file name)")
	return cmd
}
