package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/angelala00/pbc-regulations-sub001/internal/metaquery"
	"github.com/angelala00/pbc-regulations-sub001/internal/output"
	"github.com/angelala00/pbc-regulations-sub001/internal/search"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	limit      int
	filters    []string
	format     string
	bm25Only   bool
	vectorOnly bool
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Hybrid search over the article corpus",
		Long: `Search articles with fused BM25 and embedding rankings.

Examples:
  pbcsearch search "反洗钱义务"
  pbcsearch search "罚款" --filter "level=部门规章" --limit 5
  pbcsearch search "支付机构" --bm25-only --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results")
	cmd.Flags().StringArrayVar(&opts.filters, "filter", nil,
		"Metadata filter, repeatable: field=value, field!=value, field~substring")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().BoolVar(&opts.bm25Only, "bm25-only", false, "Keyword signal only")
	cmd.Flags().BoolVar(&opts.vectorOnly, "vector-only", false, "Embedding signal only")

	return cmd
}

func runSearch(cmd *cobra.Command, query string, opts searchOptions) error {
	filters, err := parseFilterFlags(opts.filters)
	if err != nil {
		return err
	}

	engine, err := buildEngine(cmd.Context())
	if err != nil {
		return err
	}

	limit := opts.limit
	if limit <= 0 {
		limit = loadedConfig.Search.TopK
	}
	hits := engine.Search(cmd.Context(), query, search.Options{
		TopK:          limit,
		DisableBM25:   opts.vectorOnly,
		DisableVector: opts.bm25Only,
		Filters:       filters,
	})

	out := output.New(cmd.OutOrStdout())
	if opts.format == "json" {
		return out.JSON(hits)
	}
	out.Hits(hits)
	return nil
}

// parseFilterFlags converts field=value style flags into metadata filters.
func parseFilterFlags(raw []string) ([]metaquery.Filter, error) {
	var filters []metaquery.Filter
	for _, item := range raw {
		var op metaquery.FilterOp
		var sep string
		switch {
		case strings.Contains(item, "!="):
			op, sep = metaquery.OpNotEqual, "!="
		case strings.Contains(item, "~"):
			op, sep = metaquery.OpContains, "~"
		case strings.Contains(item, "="):
			op, sep = metaquery.OpEqual, "="
		default:
			return nil, fmt.Errorf("invalid filter %q: expected field=value, field!=value, or field~substring", item)
		}
		parts := strings.SplitN(item, sep, 2)
		field := strings.TrimSpace(parts[0])
		if field == "" {
			return nil, fmt.Errorf("invalid filter %q: empty field", item)
		}
		filters = append(filters, metaquery.Filter{
			Field: field,
			Op:    op,
			Value: strings.TrimSpace(parts[1]),
		})
	}
	return filters, nil
}
