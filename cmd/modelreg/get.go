package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"model-artifact-registry/internal/adapters/secondary/yamlstore"
	"model-artifact-registry/internal/bootstrap"
	"model-artifact-registry/internal/core/domain"
)

func newGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <family> [version]",
		Short: "Print one version record (version may be latest or best; default latest)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			family, selector := args[0], domain.SelectorLatest
			if len(args) == 2 {
				selector = args[1]
			}

			return a.withRegistry(cmd.Context(), func(reg *bootstrap.Registry) error {
				rec, ok := reg.Service.Get(cmd.Context(), family, selector)
				if !ok {
					return fmt.Errorf("model %s not found", domain.Key(family, selector))
				}

				single := domain.NewCatalog()
				single.Upsert(rec)
				out, err := yamlstore.Encode(single)
				if err != nil {
					return err
				}
				if _, err := cmd.OutOrStdout().Write(out); err != nil {
					return err
				}

				if !reg.Service.ArtifactPresent(rec) {
					color.New(color.FgYellow).Fprintf(cmd.ErrOrStderr(),
						"warning: artifact file %s is missing\n", reg.Artifacts.Resolve(rec.FilePath))
				}
				return nil
			})
		},
	}
}
