package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"model-artifact-registry/internal/bootstrap"
	"model-artifact-registry/internal/core/domain"
	"model-artifact-registry/internal/core/services"
)

func newRegisterCmd(a *app) *cobra.Command {
	var (
		ver          string
		framework    string
		metrics      []string
		architecture string
		inputShape   string
		dataset      string
		description  string
	)

	cmd := &cobra.Command{
		Use:   "register <family> <file>",
		Short: "Copy a model file into storage and record its metadata",
		Example: `  modelreg register resnet18 ./checkpoints/best.pt --metric top1_accuracy=0.697 --dataset ImageNet
  modelreg register chest_xray ./d121.pt --version baseline --input-shape 1,224,224`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsedMetrics, err := domain.ParseMetrics(metrics)
			if err != nil {
				return err
			}
			shape, err := domain.ParseInputShape(inputShape)
			if err != nil {
				return err
			}

			req := services.RegisterRequest{
				Family:       args[0],
				SourcePath:   args[1],
				Version:      ver,
				Framework:    framework,
				Metrics:      parsedMetrics,
				Architecture: architecture,
				InputShape:   shape,
				Dataset:      domain.StringPtr(dataset),
				Description:  domain.StringPtr(description),
			}

			return a.withRegistry(cmd.Context(), func(reg *bootstrap.Registry) error {
				key, err := reg.Service.Register(cmd.Context(), req)
				if err != nil {
					return err
				}
				color.New(color.FgGreen).Fprint(cmd.OutOrStdout(), "registered ")
				fmt.Fprintln(cmd.OutOrStdout(), key)
				return nil
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&ver, "version", "", "version identifier (default: next vN)")
	f.StringVar(&framework, "framework", "", "framework name (default pytorch)")
	f.StringArrayVar(&metrics, "metric", nil, "metric as name=value, repeatable")
	f.StringVar(&architecture, "architecture", "", "architecture name (default: the family name)")
	f.StringVar(&inputShape, "input-shape", "", "input dimensions, e.g. 3,224,224")
	f.StringVar(&dataset, "dataset", "", "training dataset")
	f.StringVar(&description, "description", "", "free-form description")
	return cmd
}
