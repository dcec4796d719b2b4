package cmd

import (
	"github.com/spf13/cobra"

	"github.com/angelala00/pbc-regulations-sub001/internal/output"
)

func newContentCmd() *cobra.Command {
	var articles []string
	var format string

	cmd := &cobra.Command{
		Use:   "content <doc_id>",
		Short: "Print a document's text, optionally sliced to articles",
		Long: `Print the extracted text of one document. With --article, only the
matching article sections are printed; an article may be addressed by
its full id or by its number.

Examples:
  pbcsearch content pbc-2021-003
  pbcsearch content pbc-2021-003 --article 12 --article 13`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := buildEngine(cmd.Context())
			if err != nil {
				return err
			}
			content, err := engine.DocumentText(args[0], articles)
			if err != nil {
				return err
			}

			out := output.New(cmd.OutOrStdout())
			if format == "json" {
				return out.JSON(content)
			}
			out.Line(content.Text)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&articles, "article", nil, "Article id or number (repeatable)")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")
	return cmd
}
