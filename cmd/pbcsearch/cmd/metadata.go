package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/angelala00/pbc-regulations-sub001/internal/metaquery"
	"github.com/angelala00/pbc-regulations-sub001/internal/output"
)

func newMetadataCmd() *cobra.Command {
	var queryJSON string

	cmd := &cobra.Command{
		Use:   "metadata",
		Short: "Run a metadata query over the document catalog",
		Long: `Evaluate a metadata DSL query: filters, group_by, aggregates,
order_by, and limit. The query is JSON, given via --query or stdin.

Examples:
  pbcsearch metadata --query '{"filters":[{"field":"year","op":">=","value":2020}]}'
  pbcsearch metadata --query '{"group_by":["issuer"],"aggregates":[{"func":"count","field":"*","as":"n"}]}'
  echo '{"select":["doc_id","title"],"limit":20}' | pbcsearch metadata`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMetadata(cmd, queryJSON)
		},
	}

	cmd.Flags().StringVarP(&queryJSON, "query", "q", "", "Query JSON (reads stdin when omitted)")
	return cmd
}

func runMetadata(cmd *cobra.Command, queryJSON string) error {
	if queryJSON == "" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read query from stdin: %w", err)
		}
		queryJSON = string(data)
	}

	var query metaquery.Query
	if err := json.Unmarshal([]byte(queryJSON), &query); err != nil {
		return fmt.Errorf("parse query JSON: %w", err)
	}

	engine, err := buildEngine(cmd.Context())
	if err != nil {
		return err
	}
	result, err := engine.QueryMetadata(query)
	if err != nil {
		return err
	}

	return output.New(cmd.OutOrStdout()).JSON(result)
}
