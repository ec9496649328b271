package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lexgraph/internal/core/domain"
)

func strPtr(s string) *string { return &s }

func TestAskCmd_RequiresQuestion(t *testing.T) {
	setupTestServices(t)

	_, err := execute(t, "", "ask")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg(s)")
}

func TestAskCmd_HasFlags(t *testing.T) {
	for name, def := range map[string]string{
		"as-of":        "current",
		"top-k":        "6",
		"item-limit":   "5",
		"orchestrated": "false",
	} {
		flag := askCmd.Flags().Lookup(name)
		require.NotNil(t, flag, name)
		assert.Equal(t, def, flag.DefValue, name)
	}
}

func TestAskCmd_BuildsRequest(t *testing.T) {
	env := setupTestServices(t)

	_, err := execute(t, "", "ask", "what", "is", "required?",
		"--as-of", "2025-01-15", "--role", "issuer", "--jurisdiction", "EU", "--top-k", "3", "--item-limit", "2")

	require.NoError(t, err)
	assert.Equal(t, domain.AnswerRequest{
		Question:     "what is required?",
		Role:         "issuer",
		AsOfDate:     "2025-01-15",
		Jurisdiction: "EU",
		TopK:         3,
		ItemLimit:    2,
	}, env.answers.lastRequest)
	assert.Equal(t, 1, env.boots)
	assert.Equal(t, 1, env.closed)
}

func TestAskCmd_RejectsOutOfRangeBudget(t *testing.T) {
	env := setupTestServices(t)

	_, err := execute(t, "", "ask", "question", "--top-k", "51")

	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Zero(t, env.answers.calls)
}

func TestAskCmd_PrintsJSONWhenPiped(t *testing.T) {
	env := setupTestServices(t)
	env.answers.answer = &domain.Answer{
		Answer:       "Issuers must be authorised [1].",
		ExpressionID: strPtr("mica-2024"),
		WorkID:       strPtr("mica"),
		Citations:    []string{"mica-2024-A16-P1"},
		Sources:      []domain.RetrievedParagraph{},
	}

	out, err := execute(t, "", "ask", "who must be authorised?")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "mica-2024", got["expression_id"])
	assert.Equal(t, []any{"mica-2024-A16-P1"}, got["citations"])
}

func TestAskCmd_RendersAnswer(t *testing.T) {
	forceTerminal(t)
	env := setupTestServices(t)
	env.answers.answer = &domain.Answer{
		Answer:       "Issuers must be authorised [1].",
		ExpressionID: strPtr("mica-2024"),
		Citations:    []string{"mica-2024-A16-P1"},
		Sources: []domain.RetrievedParagraph{{
			ParagraphID: "mica-2024-A16-P1", ParagraphNumber: "1", ArticleNumber: "16",
			ArticleTitle: "Authorisation of issuers", Text: "An issuer shall be authorised.",
			RetrievalMode: domain.RetrievalVector, Score: 0.93,
		}},
	}

	out, err := execute(t, "", "ask", "who must be authorised?")
	require.NoError(t, err)

	assert.Contains(t, out, "Issuers must be authorised [1].")
	assert.Contains(t, out, "mica-2024")
	assert.Contains(t, out, "Citations:")
	assert.Contains(t, out, "Article 16(1) Authorisation of issuers")
	assert.Contains(t, out, "An issuer shall be authorised.")
}

func TestAskCmd_Orchestrated(t *testing.T) {
	forceTerminal(t)
	env := setupTestServices(t)
	env.answers.orchestrated = &domain.OrchestratedAnswer{
		Answer:    domain.InsufficientMessage,
		Citations: []string{},
		PlanSteps: domain.PlanSteps(),
		RetrievedItems: []domain.RetrievedItem{{
			Attempt: 1,
			Item:    domain.CandidateItem{Reference: domain.Reference{Kind: domain.KindWork, ID: "mica"}, Title: "MiCA", Score: 3},
		}},
		Verification: domain.Verification{ResolvedDate: "2025-01-15", Reason: domain.ReasonNoParagraphs},
	}

	out, err := execute(t, "", "ask", "--orchestrated", "question")
	require.NoError(t, err)

	assert.Contains(t, out, domain.InsufficientMessage)
	assert.Contains(t, out, "Resolved date: 2025-01-15")
	assert.Contains(t, out, domain.ReasonNoParagraphs)
	assert.Contains(t, out, "#1 work:mica -> -")
}

func TestAskCmd_ServiceErrorIsReturned(t *testing.T) {
	env := setupTestServices(t)
	env.answers.err = domain.ErrConfiguration

	_, err := execute(t, "", "ask", "question")

	require.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Equal(t, 1, env.closed)
}
