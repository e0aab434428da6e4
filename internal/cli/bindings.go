package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"actionsflow/internal/auth0"
)

func bindingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bindings",
		Short: "Manage the post-login trigger's ordered binding list",
	}
	cmd.AddCommand(bindingsListCmd())
	cmd.AddCommand(bindingsBindCmd())
	cmd.AddCommand(bindingsUnbindCmd())
	cmd.AddCommand(bindingsReorderCmd())
	return cmd
}

func bindingsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the current binding order",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := buildBindingManager()
			if err != nil {
				return err
			}
			ctx, cancel := opCtx()
			defer cancel()

			list, err := m.List(ctx)
			if err != nil {
				return err
			}
			printBindings(list)
			return nil
		},
	}
}

func bindingsBindCmd() *cobra.Command {
	var displayName string
	var position int
	cmd := &cobra.Command{
		Use:   "bind <action-id>",
		Short: "Insert an action into the binding list (no-op when already bound)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := buildBindingManager()
			if err != nil {
				return err
			}
			ctx, cancel := opCtx()
			defer cancel()

			list, err := m.Bind(ctx, args[0], displayName, position)
			if err != nil {
				return err
			}
			printBindings(list)
			return nil
		},
	}
	cmd.Flags().StringVar(&displayName, "name", "", "Display name for the new binding")
	cmd.Flags().IntVar(&position, "position", -1, "Insert position (negative appends)")
	return cmd
}

func bindingsUnbindCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unbind <action-id>",
		Short: "Remove an action from the binding list (no-op when absent)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := buildBindingManager()
			if err != nil {
				return err
			}
			ctx, cancel := opCtx()
			defer cancel()

			list, err := m.Unbind(ctx, args[0])
			if err != nil {
				return err
			}
			printBindings(list)
			return nil
		},
	}
}

func bindingsReorderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reorder <action-id>...",
		Short: "Set the binding list to exactly the given action order",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := buildBindingManager()
			if err != nil {
				return err
			}
			ctx, cancel := opCtx()
			defer cancel()

			list, err := m.Reorder(ctx, args)
			if err != nil {
				return err
			}
			printBindings(list)
			return nil
		},
	}
}

func printBindings(list []auth0.Binding) {
	if len(list) == 0 {
		fmt.Println("no bindings")
		return
	}
	for i, b := range list {
		name := b.DisplayName
		if name == "" {
			name = b.Action.Name
		}
		fmt.Printf("%d\t%s\t%s\n", i, b.Action.ID, name)
	}
}
