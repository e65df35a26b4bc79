package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/collabsched/core/session"
	"github.com/kilianp07/collabsched/infra/roster"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <classes.csv> <course.json>",
	Short: "Print the resolved session of every class without contacting the scheduler",
	Args:  cobra.ExactArgs(2),
	RunE:  resolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}

func resolve(cmd *cobra.Command, args []string) error {
	course, classes, err := loadLayers(args[0], args[1])
	if err != nil {
		return err
	}
	resolver, err := newResolver()
	if err != nil {
		return err
	}

	out := make([]session.Payload, 0, len(classes))
	failed := 0
	for i, row := range classes {
		if roster.Excluded(row) {
			continue
		}
		r, err := resolver.Resolve(course, row)
		if err != nil {
			failed++
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "row %d: %v\n", i+1, err)
			continue
		}
		out = append(out, session.NewPayload(r))
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d classes could not be resolved", failed)
	}
	return nil
}
