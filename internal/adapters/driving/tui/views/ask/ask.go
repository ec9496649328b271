// Package ask provides the question and answer view for the TUI.
package ask

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/lexgraph/internal/adapters/driving/tui/components/sourcelist"
	"github.com/custodia-labs/lexgraph/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/lexgraph/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/lexgraph/internal/core/domain"
	"github.com/custodia-labs/lexgraph/internal/core/ports/driving"
)

// ErrNoAnswerService is reported when the view has nothing to ask.
var ErrNoAnswerService = errors.New("answer service not available")

// Focus is the part of the view receiving keys.
type Focus int

const (
	FocusQuestion Focus = iota
	FocusAsOf
	FocusSources
	FocusDetail
)

// View asks a question and shows the cited answer with its sources.
type View struct {
	styles  *styles.Styles
	answers driving.AnswerService
	ctx     context.Context

	question textinput.Model
	asOf     textinput.Model
	sources  *sourcelist.List
	detail   viewport.Model

	focus   Focus
	answer  *domain.Answer
	asked   domain.AnswerRequest
	loading bool
	err     error

	width  int
	height int
	ready  bool
}

// NewView creates an ask view backed by answers.
func NewView(s *styles.Styles, answers driving.AnswerService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}

	question := textinput.New()
	question.Placeholder = "What must a crypto-asset white paper contain?"
	question.Prompt = "? "
	question.CharLimit = 500
	question.Focus()

	asOf := textinput.New()
	asOf.Placeholder = "current"
	asOf.Prompt = "as of "
	asOf.CharLimit = 20

	return &View{
		styles:   s,
		answers:  answers,
		ctx:      context.Background(),
		question: question,
		asOf:     asOf,
		sources:  sourcelist.New(s),
		detail:   viewport.New(80, 10),
		width:    80,
		height:   24,
	}
}

// WithContext sets the context answers run under.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init starts the cursor blinking.
func (v *View) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages for the ask view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case messages.AnswerCompleted:
		v.handleAnswer(msg)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)
	}

	var cmd tea.Cmd
	switch v.focus {
	case FocusQuestion:
		v.question, cmd = v.question.Update(msg)
	case FocusAsOf:
		v.asOf, cmd = v.asOf.Update(msg)
	case FocusDetail:
		v.detail, cmd = v.detail.Update(msg)
	case FocusSources:
	}
	return v, cmd
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch v.focus {
	case FocusDetail:
		if msg.String() == "esc" {
			v.focus = FocusSources
			return v, nil
		}
		var cmd tea.Cmd
		v.detail, cmd = v.detail.Update(msg)
		return v, cmd

	case FocusSources:
		switch msg.String() {
		case "enter":
			if p := v.sources.SelectedSource(); p != nil {
				v.openDetail(p)
			}
		case "esc", "n", "/":
			v.setFocus(FocusQuestion)
		default:
			v.sources, _ = v.sources.Update(msg)
		}
		return v, nil
	}

	switch msg.String() {
	case "tab", "shift+tab":
		if v.focus == FocusQuestion {
			v.setFocus(FocusAsOf)
		} else {
			v.setFocus(FocusQuestion)
		}
		return v, nil
	case "enter":
		return v, v.submit()
	case "esc":
		if len(v.sources.Sources()) > 0 {
			v.setFocus(FocusSources)
		}
		return v, nil
	}

	var cmd tea.Cmd
	if v.focus == FocusAsOf {
		v.asOf, cmd = v.asOf.Update(msg)
	} else {
		v.question, cmd = v.question.Update(msg)
	}
	return v, cmd
}

func (v *View) setFocus(f Focus) {
	v.focus = f
	v.question.Blur()
	v.asOf.Blur()
	switch f {
	case FocusQuestion:
		v.question.Focus()
	case FocusAsOf:
		v.asOf.Focus()
	case FocusSources, FocusDetail:
	}
}

// submit validates the request and returns the command that answers it.
func (v *View) submit() tea.Cmd {
	if v.loading {
		return nil
	}
	asOf := strings.TrimSpace(v.asOf.Value())
	if asOf == "" {
		asOf = "current"
	}
	req := domain.AnswerRequest{Question: strings.TrimSpace(v.question.Value()), AsOfDate: asOf}.WithDefaults()
	if err := req.Validate(); err != nil {
		v.err = err
		return nil
	}

	v.asked = req
	v.loading = true
	v.err = nil
	answers, ctx := v.answers, v.ctx
	return func() tea.Msg {
		if answers == nil {
			return messages.AnswerCompleted{Err: ErrNoAnswerService}
		}
		ans, err := answers.Answer(ctx, req)
		return messages.AnswerCompleted{Answer: ans, Err: err}
	}
}

func (v *View) handleAnswer(msg messages.AnswerCompleted) {
	v.loading = false
	if msg.Err != nil {
		v.err = msg.Err
		return
	}
	v.err = nil
	v.answer = msg.Answer
	v.sources.SetSources(msg.Answer.Sources, msg.Answer.Citations)
	if len(msg.Answer.Sources) > 0 {
		v.setFocus(FocusSources)
	}
}

// openDetail shows the full paragraph with its provenance.
func (v *View) openDetail(p *domain.RetrievedParagraph) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", p.Text)
	fmt.Fprintf(&b, "Article     %s %s\n", p.ArticleNumber, p.ArticleTitle)
	fmt.Fprintf(&b, "Version     %s\n", p.ExpressionID)
	fmt.Fprintf(&b, "Retrieval   %s (score %.3f)\n", p.RetrievalMode, p.Score)
	if p.SourceURL != "" {
		fmt.Fprintf(&b, "Source      %s\n", p.SourceURL)
	}
	if p.PublishedDate != "" {
		fmt.Fprintf(&b, "Published   %s\n", p.PublishedDate)
	}
	if p.FileHash != "" {
		fmt.Fprintf(&b, "Hash        %s\n", p.FileHash)
	}

	v.detail.SetContent(lipgloss.NewStyle().Width(max(v.width-4, 20)).Render(b.String()))
	v.detail.GotoTop()
	v.focus = FocusDetail
}

// View renders the ask view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := []string{v.styles.Title.Render("lexgraph"), ""}
	sections = append(sections, v.renderInputs()...)

	if v.focus == FocusDetail {
		if p := v.sources.SelectedSource(); p != nil {
			sections = append(sections, "", v.styles.Subtitle.Render(p.ParagraphID), v.detail.View())
		}
		return lipgloss.JoinVertical(lipgloss.Left, append(sections, "", v.help())...)
	}

	switch {
	case v.loading:
		sections = append(sections, "", v.styles.Muted.Render("Answering..."))
	case v.err != nil:
		sections = append(sections, "", v.styles.Error.Render("Error: "+v.err.Error()))
	case v.answer != nil:
		sections = append(sections, "", v.renderAnswer(), "", v.sources.View())
	}

	sections = append(sections, "", v.help())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (v *View) renderInputs() []string {
	frame := func(focused bool) lipgloss.Style {
		if focused {
			return v.styles.Input.Width(max(v.width-4, 20))
		}
		return v.styles.Blurred.Width(max(v.width-4, 20))
	}
	return []string{
		frame(v.focus == FocusQuestion).Render(v.question.View()),
		frame(v.focus == FocusAsOf).Render(v.asOf.View()),
	}
}

func (v *View) renderAnswer() string {
	body := lipgloss.NewStyle().Width(max(v.width-2, 20))
	text := v.styles.Normal.Render(v.answer.Answer)
	if v.answer.Answer == domain.InsufficientMessage {
		text = v.styles.Warning.Render(v.answer.Answer)
	}

	lines := []string{body.Render(text)}
	if v.answer.ExpressionID != nil {
		lines = append(lines, v.styles.Muted.Render(fmt.Sprintf("Version %s as of %s", *v.answer.ExpressionID, v.asked.AsOfDate)))
	}
	if len(v.answer.Citations) > 0 {
		lines = append(lines, v.styles.Citation.Render("Cites "+strings.Join(v.answer.Citations, ", ")))
	}
	return strings.Join(lines, "\n")
}

func (v *View) help() string {
	var keys string
	switch v.focus {
	case FocusDetail:
		keys = "↑/↓ scroll • esc back"
	case FocusSources:
		keys = "↑/↓ select • enter open • n new question • ctrl+s settings • ctrl+c quit"
	default:
		keys = "enter ask • tab switch field • ctrl+s settings • ctrl+c quit"
	}
	return v.styles.Help.Render(keys)
}

// SetDimensions sizes the view and its components.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.question.Width = max(width-10, 10)
	v.asOf.Width = 20
	v.sources.SetDimensions(width, max(height-16, 4))
	v.detail.Width = max(width-2, 20)
	v.detail.Height = max(height-12, 3)
}

// Focus returns the part of the view receiving keys.
func (v *View) Focus() Focus {
	return v.focus
}

// Answer returns the last answer, nil before the first one.
func (v *View) Answer() *domain.Answer {
	return v.answer
}

// Loading reports whether an answer is pending.
func (v *View) Loading() bool {
	return v.loading
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}

// Sources returns the source list component.
func (v *View) Sources() *sourcelist.List {
	return v.sources
}

// SetQuestion replaces the question text.
func (v *View) SetQuestion(q string) {
	v.question.SetValue(q)
}

// SetAsOf replaces the as-of text.
func (v *View) SetAsOf(s string) {
	v.asOf.SetValue(s)
}

// InputFocused reports whether a text field has focus.
func (v *View) InputFocused() bool {
	return v.focus == FocusQuestion || v.focus == FocusAsOf
}
