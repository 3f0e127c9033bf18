package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/scholia-ai/scholia/pkg/model"
)

var queryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Answer a natural-language question about the ingested papers",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		question := strings.Join(args, " ")
		res, err := a.Engine.Query(ctx, question)
		if err != nil {
			return err
		}

		fmt.Println(res.Answer)
		if len(res.Evidence) > 0 {
			fmt.Printf("\nEvidence (%s mode):\n", res.Mode)
			for _, ev := range res.Evidence {
				fmt.Printf("  - %s (%s)\n", ev.Title, ev.PaperID)
			}
		}
		return nil
	},
}

var similarK int

var similarCmd = &cobra.Command{
	Use:   "similar <paper-id>",
	Short: "List the papers most similar to the given one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		results, err := a.Engine.FindSimilarPapers(ctx, args[0], similarK)
		if err != nil {
			return err
		}

		for _, r := range results {
			title := r.PaperID
			if node, err := a.Store.GetNode(ctx, r.PaperID); err == nil {
				if t := node.Attr(model.AttrTitle); t != "" {
					title = t
				}
			}
			fmt.Printf("%.4f  %s\n", r.Score, title)
		}
		return nil
	},
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize <paper-id>",
	Short: "Generate and store a summary and keywords for a paper",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		res, err := a.Generator.Generate(ctx, args[0])
		if err != nil {
			return err
		}

		fmt.Println(res.Summary)
		if len(res.Keywords) > 0 {
			fmt.Printf("\nKeywords: %s\n", strings.Join(res.Keywords, ", "))
		}
		return nil
	},
}

var citeCmd = &cobra.Command{
	Use:   "cite <citing-id> <cited-id>",
	Short: "Record that one paper cites another",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		if err := a.Pipeline.AddCitation(ctx, args[0], args[1]); err != nil {
			return err
		}
		fmt.Println("Citation recorded.")
		return nil
	},
}

func init() {
	similarCmd.Flags().IntVar(&similarK, "k", 5, "number of similar papers to return")
}
