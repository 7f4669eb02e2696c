package cmd

import (
	"fmt"

	"github.com/blacktop/cohostpost/internal/config"
	"github.com/blacktop/cohostpost/internal/logutil"
	"github.com/spf13/cobra"
)

func newLoginCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Check that the configured cohost credentials can log in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			svc, err := loadService(ctx, cmd)
			if err != nil {
				return err
			}
			if !svc.Enabled() {
				logutil.Infof("cohost posting disabled (set %s=true to enable)", config.EnvUse)
				return nil
			}

			if err := svc.Authenticate(ctx); err != nil {
				return fmt.Errorf("login: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "logged in as userId %d\n", svc.Session().UserID())
			return nil
		},
	}
}
