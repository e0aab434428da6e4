package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"actionsflow/internal/deploy"
)

func deployCmd() *cobra.Command {
	var skipEnrollment, skipDeviceCheck bool
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Create or update the post-login action and activate it",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := buildDeployManager()
			if err != nil {
				return err
			}
			ctx, cancel := opCtx()
			defer cancel()

			res := m.Deploy(ctx, deploy.Options{
				SkipEnrollment:  skipEnrollment,
				SkipDeviceCheck: skipDeviceCheck,
			})
			return printResult(res)
		},
	}
	cmd.Flags().BoolVar(&skipEnrollment, "skip-enrollment", false, "Pass through users not yet enrolled with the callback service")
	cmd.Flags().BoolVar(&skipDeviceCheck, "skip-device-check", false, "Skip the device posture callback")
	return cmd
}

func undeployCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "undeploy",
		Short: "Unbind and delete the post-login action",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := buildDeployManager()
			if err != nil {
				return err
			}
			ctx, cancel := opCtx()
			defer cancel()
			return printResult(m.Undeploy(ctx))
		},
	}
}

func actionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "actions",
		Short: "Inspect deployed actions",
	}
	cmd.AddCommand(actionsListCmd())
	cmd.AddCommand(actionsBundleCmd())
	return cmd
}

func actionsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tenant actions carrying the configured name prefix",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := buildDeployManager()
			if err != nil {
				return err
			}
			ctx, cancel := opCtx()
			defer cancel()

			actions, err := m.ListDeployed(ctx)
			if err != nil {
				return err
			}
			for _, a := range actions {
				fmt.Printf("%s\t%s\t%s\n", a.ID, a.Name, a.Status)
			}
			if len(actions) == 0 {
				fmt.Println("no deployed actions")
			}
			return nil
		},
	}
}

func actionsBundleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bundle <name>",
		Short: "Render an action bundle for manual installation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := buildDeployManager()
			if err != nil {
				return err
			}
			b, err := m.Bundle(args[0])
			if err != nil {
				return err
			}
			return json.NewEncoder(os.Stdout).Encode(b)
		},
	}
}

func testConnectionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test-connection",
		Short: "Fetch a token and perform one lightweight read",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := buildClient()
			if err != nil {
				return err
			}
			ctx, cancel := opCtx()
			defer cancel()

			res := client.TestConnection(ctx)
			if !res.Success {
				return fmt.Errorf("connection failed: %s", res.Error)
			}
			fmt.Println("ok: connected")
			return nil
		},
	}
}

func printResult(res deploy.Result) error {
	if !res.Success {
		return fmt.Errorf("operation failed: %s", res.Error)
	}
	if res.ActionID != "" {
		fmt.Println("ok:", res.ActionID)
	} else {
		fmt.Println("ok")
	}
	return nil
}

func opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}
