package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var deleteTokenFile string

var deleteCmd = &cobra.Command{
	Use:   "delete <sessionID> <occurrenceID>",
	Short: "Delete one occurrence of a session",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		client, err := connect(ctx, cmd, deleteTokenFile)
		if err != nil {
			return err
		}
		if err := client.DeleteOccurrence(ctx, args[0], args[1]); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "deleted occurrence %s of session %s\n", args[1], args[0])
		return nil
	},
}

func init() {
	deleteCmd.Flags().StringVarP(&deleteTokenFile, "token-file", "t", "", "file holding the auth token (prompted when empty)")
	rootCmd.AddCommand(deleteCmd)
}
