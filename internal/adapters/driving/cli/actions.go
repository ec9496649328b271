package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/lexgraph/internal/core/domain"
)

var (
	itemsLimit          int
	itemsJurisdiction   string
	itemsWork           string
	itemsAuthorityLevel int

	paragraphsTopK int
)

var itemsCmd = &cobra.Command{
	Use:   "items <query>",
	Short: "Search works and articles by title or number",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runItems,
}

var scopeCmd = &cobra.Command{
	Use:   "scope <expression>",
	Short: "Resolve an as-of expression to a date or interval",
	Long: `Resolve an as-of expression relative to today.

Accepted forms: YYYY-MM-DD, YYYY (the whole year), "current", "last year".`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScope,
}

var validVersionCmd = &cobra.Command{
	Use:   "valid-version <reference> <date>",
	Short: "Show the version of a work or component in force at a date",
	Long: `Show the expression in force at date for a reference.

A reference is kind:id with kind one of work, expression, article or
paragraph. A bare id is treated as a work id.`,
	Example: `  lexgraph valid-version work:mica 2024-06-01
  lexgraph valid-version article:mica-2024-A16 2025-01-15`,
	Args: cobra.ExactArgs(2),
	RunE: runValidVersion,
}

var paragraphsCmd = &cobra.Command{
	Use:   "paragraphs <expression-id> <query>",
	Short: "Retrieve the paragraphs of a version matching a query",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runParagraphs,
}

func init() {
	itemsCmd.Flags().IntVarP(&itemsLimit, "limit", "n", domain.DefaultSearchLimit, "maximum number of items")
	itemsCmd.Flags().StringVar(&itemsJurisdiction, "jurisdiction", "", "filter by jurisdiction")
	itemsCmd.Flags().StringVar(&itemsWork, "work", "", "filter by work id")
	itemsCmd.Flags().IntVar(&itemsAuthorityLevel, "authority-level", 0, "filter by authority level (0 = any)")

	paragraphsCmd.Flags().IntVarP(&paragraphsTopK, "top-k", "k", domain.DefaultTextUnitTopK, "maximum number of paragraphs")

	rootCmd.AddCommand(itemsCmd)
	rootCmd.AddCommand(scopeCmd)
	rootCmd.AddCommand(validVersionCmd)
	rootCmd.AddCommand(paragraphsCmd)
}

func runItems(cmd *cobra.Command, args []string) error {
	rt, err := runtimeFor(cmd)
	if err != nil {
		return err
	}

	filter := domain.CandidateFilter{Jurisdiction: itemsJurisdiction, WorkID: itemsWork}
	if cmd.Flags().Changed("authority-level") {
		level := itemsAuthorityLevel
		filter.AuthorityLevel = &level
	}

	items, err := rt.Actions.SearchItems(contextOf(cmd), strings.Join(args, " "), filter, itemsLimit)
	if err != nil {
		return fmt.Errorf("item search failed: %w", err)
	}
	if wantJSON(cmd) {
		return printJSON(cmd, nonNil(items))
	}

	if len(items) == 0 {
		cmd.Println("No items found.")
		return nil
	}
	for i, item := range items {
		cmd.Printf("  [%d] %s %s\n", i+1, item.Title, dimStyle.Render(fmt.Sprintf("(%s, score %d)", item.Reference, item.Score)))
	}
	return nil
}

func runScope(cmd *cobra.Command, args []string) error {
	rt, err := runtimeFor(cmd)
	if err != nil {
		return err
	}

	scope, err := rt.Actions.ResolveTemporalScope(strings.Join(args, " "))
	if err != nil {
		return err
	}
	if wantJSON(cmd) {
		return printJSON(cmd, scope.View())
	}

	view := scope.View()
	field(cmd, "Type", view.Type)
	if view.Date != "" {
		field(cmd, "Date", view.Date)
	} else {
		field(cmd, "Start", view.Start)
		field(cmd, "End", view.End)
	}
	return nil
}

// versionView is the printed form of a resolved version.
type versionView struct {
	ExpressionID string  `json:"expression_id"`
	WorkID       string  `json:"work_id"`
	ValidFrom    string  `json:"valid_from"`
	ValidTo      *string `json:"valid_to"`
}

func runValidVersion(cmd *cobra.Command, args []string) error {
	date, err := domain.ParseDate(args[1])
	if err != nil {
		return err
	}
	rt, err := runtimeFor(cmd)
	if err != nil {
		return err
	}

	v, err := rt.Actions.GetValidVersion(contextOf(cmd), args[0], date)
	if err != nil {
		return err
	}

	view := versionView{
		ExpressionID: v.ExpressionID,
		WorkID:       v.WorkID,
		ValidFrom:    v.ValidFrom.Format(domain.DateLayout),
	}
	if v.ValidTo != nil {
		to := v.ValidTo.Format(domain.DateLayout)
		view.ValidTo = &to
	}
	if wantJSON(cmd) {
		return printJSON(cmd, view)
	}

	validTo := "open-ended"
	if view.ValidTo != nil {
		validTo = *view.ValidTo
	}
	field(cmd, "Expression", titleStyle.Render(view.ExpressionID))
	field(cmd, "Work", view.WorkID)
	field(cmd, "Valid", fmt.Sprintf("%s to %s", view.ValidFrom, validTo))
	return nil
}

func runParagraphs(cmd *cobra.Command, args []string) error {
	rt, err := runtimeFor(cmd)
	if err != nil {
		return err
	}

	paragraphs, err := rt.Actions.SearchTextUnits(contextOf(cmd), args[0], strings.Join(args[1:], " "), paragraphsTopK)
	if err != nil {
		return fmt.Errorf("paragraph search failed: %w", err)
	}
	if wantJSON(cmd) {
		return printJSON(cmd, nonNil(paragraphs))
	}

	if len(paragraphs) == 0 {
		cmd.Println("No paragraphs found.")
		return nil
	}
	renderParagraphs(cmd, paragraphs)
	return nil
}

func renderParagraphs(cmd *cobra.Command, paragraphs []domain.RetrievedParagraph) {
	for i, p := range paragraphs {
		heading := fmt.Sprintf("Article %s(%s)", p.ArticleNumber, p.ParagraphNumber)
		if p.ArticleTitle != "" {
			heading += " " + p.ArticleTitle
		}
		cmd.Printf("  [%d] %s %s\n", i+1, labelStyle.Render(heading),
			dimStyle.Render(fmt.Sprintf("%s %s %.3f", p.ParagraphID, p.RetrievalMode, p.Score)))
		cmd.Printf("      %s\n", p.Text)
		if p.SourceURL != "" {
			cmd.Printf("      %s\n", dimStyle.Render(p.SourceURL))
		}
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
