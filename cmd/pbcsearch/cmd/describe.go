package cmd

import (
	"github.com/spf13/cobra"

	"github.com/angelala00/pbc-regulations-sub001/internal/output"
)

func newDescribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "describe",
		Short: "Show the queryable metadata fields and text scopes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, err := buildEngine(cmd.Context())
			if err != nil {
				return err
			}
			return output.New(cmd.OutOrStdout()).JSON(engine.DescribeSchema())
		},
	}
}
