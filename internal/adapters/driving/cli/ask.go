package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/lexgraph/internal/core/domain"
)

var (
	askAsOf         string
	askRole         string
	askJurisdiction string
	askTopK         int
	askItemLimit    int
	askOrchestrated bool
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a regulatory question",
	Long: `Answer a question from the version of the law in force at the as-of date.

The as-of date accepts YYYY-MM-DD, a bare year, "current" or "last year".
With --orchestrated the answer is verified against its citations and
retried with the next candidate item when verification fails.`,
	Example: `  lexgraph ask "What must a crypto-asset white paper contain?" --as-of 2025-01-15
  lexgraph ask "Which incidents must be reported?" --as-of current --orchestrated`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askAsOf, "as-of", "current", "date or expression the answer must be valid at")
	askCmd.Flags().StringVar(&askRole, "role", "", "role of the person asking")
	askCmd.Flags().StringVar(&askJurisdiction, "jurisdiction", "", "restrict candidate works to a jurisdiction")
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", domain.DefaultTopK, "paragraphs retrieved per attempt")
	askCmd.Flags().IntVar(&askItemLimit, "item-limit", domain.DefaultItemLimit, "candidate items considered")
	askCmd.Flags().BoolVar(&askOrchestrated, "orchestrated", false, "verify citations and retry across candidate items")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	rt, err := runtimeFor(cmd)
	if err != nil {
		return err
	}

	req := domain.AnswerRequest{
		Question:     strings.Join(args, " "),
		Role:         askRole,
		AsOfDate:     askAsOf,
		Jurisdiction: askJurisdiction,
		TopK:         askTopK,
		ItemLimit:    askItemLimit,
	}
	if err := req.Validate(); err != nil {
		return err
	}

	if askOrchestrated {
		ans, err := rt.Answers.AnswerOrchestrated(contextOf(cmd), req)
		if err != nil {
			return fmt.Errorf("answer failed: %w", err)
		}
		if wantJSON(cmd) {
			return printJSON(cmd, ans)
		}
		renderOrchestrated(cmd, ans)
		return nil
	}

	ans, err := rt.Answers.Answer(contextOf(cmd), req)
	if err != nil {
		return fmt.Errorf("answer failed: %w", err)
	}
	if wantJSON(cmd) {
		return printJSON(cmd, ans)
	}
	renderAnswer(cmd, ans)
	return nil
}

func renderAnswer(cmd *cobra.Command, ans *domain.Answer) {
	renderAnswerText(cmd, ans.Answer)
	if ans.ExpressionID != nil {
		field(cmd, "Version", *ans.ExpressionID)
	}
	renderCitations(cmd, ans.Citations)
	if len(ans.Sources) > 0 {
		cmd.Println()
		cmd.Println(titleStyle.Render("Sources"))
		renderParagraphs(cmd, ans.Sources)
	}
}

func renderOrchestrated(cmd *cobra.Command, ans *domain.OrchestratedAnswer) {
	renderAnswerText(cmd, ans.Answer)
	renderCitations(cmd, ans.Citations)

	v := ans.Verification
	cmd.Println()
	cmd.Println(titleStyle.Render("Verification"))
	if v.ResolvedDate != "" {
		field(cmd, "Resolved date", v.ResolvedDate)
	}
	field(cmd, "Attempts", fmt.Sprintf("%d", len(ans.RetrievedItems)))
	field(cmd, "Citations valid", yesNo(v.CitationsValid))
	field(cmd, "Faithfulness", fmt.Sprintf("%.2f", v.FaithfulnessScore))
	field(cmd, "Guardrail passed", yesNo(v.GuardrailPassed))
	if v.Reason != "" {
		field(cmd, "Reason", warnStyle.Render(v.Reason))
	}
	for _, item := range ans.RetrievedItems {
		version := "-"
		if item.ExpressionID != nil {
			version = *item.ExpressionID
		}
		cmd.Printf("  %s %s -> %s (%d paragraphs)\n",
			dimStyle.Render(fmt.Sprintf("#%d", item.Attempt)), item.Item.Reference, version, len(item.Paragraphs))
	}
}

func renderAnswerText(cmd *cobra.Command, text string) {
	if domain.IsInsufficient(text) || text == domain.RefusalMessage {
		cmd.Println(warnStyle.Render(text))
		return
	}
	cmd.Println(text)
	cmd.Println()
}

func renderCitations(cmd *cobra.Command, citations []string) {
	if len(citations) == 0 {
		return
	}
	rendered := make([]string, len(citations))
	for i, c := range citations {
		rendered[i] = citationStyle.Render(c)
	}
	field(cmd, "Citations", strings.Join(rendered, ", "))
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
