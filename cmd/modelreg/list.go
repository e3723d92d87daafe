package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"model-artifact-registry/internal/bootstrap"
)

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list [family]",
		Short: "List family/version keys in registration order",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			family := ""
			if len(args) == 1 {
				family = args[0]
			}
			return a.withRegistry(cmd.Context(), func(reg *bootstrap.Registry) error {
				for _, key := range reg.Service.List(cmd.Context(), family) {
					fmt.Fprintln(cmd.OutOrStdout(), key)
				}
				return nil
			})
		},
	}
}

func newFamiliesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "families",
		Short: "List model families",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withRegistry(cmd.Context(), func(reg *bootstrap.Registry) error {
				for _, name := range reg.Service.ListFamilies(cmd.Context()) {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			})
		},
	}
}
