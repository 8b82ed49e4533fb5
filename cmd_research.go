package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/satriahrh/synapse/adapters/arxiv"
	"github.com/satriahrh/synapse/adapters/pdf"
	"github.com/satriahrh/synapse/domain"
)

var (
	searchStart     int
	searchMax       int
	searchSortBy    string
	searchSortOrder string
	extractLimit    int
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search arXiv and print the papers as JSON",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := arxiv.NewClient(cfg.Research.FetchTimeout, arxiv.WithBaseURL(cfg.Research.ArxivURL))
		papers, err := client.Search(cmd.Context(), domain.SearchQuery{
			Query:      strings.Join(args, " "),
			Start:      searchStart,
			MaxResults: searchMax,
			SortBy:     searchSortBy,
			SortOrder:  searchSortOrder,
		})
		if err != nil {
			return err
		}
		return printJSON(cmd, papers)
	},
}

var randomCmd = &cobra.Command{
	Use:   "random",
	Short: "Print one paper from a random research topic",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client := arxiv.NewClient(cfg.Research.FetchTimeout, arxiv.WithBaseURL(cfg.Research.ArxivURL))
		paper, err := client.RandomPaper(cmd.Context())
		if err != nil {
			return err
		}
		if paper == nil {
			return domain.NotFoundError("Paper")
		}
		return printJSON(cmd, paper)
	},
}

var extractCmd = &cobra.Command{
	Use:   "extract <pdf-url>",
	Short: "Download a PDF and print its text",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := pdf.NewExtractor(cfg.Research.FetchTimeout).ExtractText(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		limit := extractLimit
		if limit <= 0 {
			limit = cfg.Research.ExtractLimit
		}
		if r := []rune(text); limit > 0 && len(r) > limit {
			text = string(r[:limit])
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
		return err
	},
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
