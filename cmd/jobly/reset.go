package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/jobly/internal/db"
)

func newResetCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset <id>",
		Short: "Put an application back in the queue",
		Long:  "Reset requeues an application given an application ID or job ID prefix, clearing its error.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, root)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			app, err := a.store.FindApplication(ctx, args[0])
			if err != nil {
				return err
			}
			if app == nil {
				return fmt.Errorf("no application matches %q", args[0])
			}
			if err := a.store.ResetApplication(ctx, app.ID); err != nil {
				if errors.Is(err, db.ErrActiveApplication) {
					return fmt.Errorf("job %s already has an application in progress", app.JobPostID)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Application %s reset to queued (was %s).\n", app.ID.String()[:8], app.Status)
			return nil
		},
	}
}
