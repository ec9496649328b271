// Package sourcelist renders the paragraphs behind an answer as a
// navigable list.
package sourcelist

import (
	"fmt"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/lexgraph/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/lexgraph/internal/core/domain"
)

// List displays retrieved paragraphs, marking the ones the answer cites.
type List struct {
	sources  []domain.RetrievedParagraph
	cited    []string
	selected int
	styles   *styles.Styles
	width    int
	height   int
}

// New creates an empty list.
func New(s *styles.Styles) *List {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &List{styles: s, width: 80, height: 10}
}

// Update handles list navigation keys.
func (l *List) Update(msg tea.Msg) (*List, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			l.MoveUp()
		case "down", "j":
			l.MoveDown()
		}
	}
	return l, nil
}

// View renders the list.
func (l *List) View() string {
	if len(l.sources) == 0 {
		return l.styles.Muted.Render("No sources")
	}

	lines := make([]string, 0, len(l.sources)*2+2)
	lines = append(lines, l.styles.Subtitle.Render(fmt.Sprintf("Sources (%d, %d cited)", len(l.sources), l.citedCount())), "")

	// Each entry takes two lines.
	visible := max((l.height-2)/2, 1)
	start := 0
	if l.selected >= visible {
		start = l.selected - visible + 1
	}
	end := min(start+visible, len(l.sources))

	for i := start; i < end; i++ {
		lines = append(lines, l.renderSource(i))
	}
	return strings.Join(lines, "\n")
}

func (l *List) renderSource(i int) string {
	p := l.sources[i]

	indicator := "  "
	if i == l.selected {
		indicator = "> "
	}
	marker := "  "
	if l.IsCited(p.ParagraphID) {
		marker = "● "
	}

	heading := fmt.Sprintf("Art. %s", p.ArticleNumber)
	if p.ArticleTitle != "" {
		heading += " " + p.ArticleTitle
	}
	label := fmt.Sprintf("%s%s%s  %s", indicator, marker, p.ParagraphID, truncate(heading, l.width-len(p.ParagraphID)-10))

	var head string
	switch {
	case i == l.selected:
		head = l.styles.Selected.Render(label)
	case l.IsCited(p.ParagraphID):
		head = l.styles.Citation.Render(label)
	default:
		head = l.styles.Normal.Render(label)
	}
	return head + "\n" + l.styles.Muted.Render("      "+truncate(p.Text, l.width-8))
}

// SetSources replaces the list contents and resets the selection.
func (l *List) SetSources(sources []domain.RetrievedParagraph, cited []string) {
	l.sources = sources
	l.cited = cited
	l.selected = 0
}

// Sources returns the listed paragraphs.
func (l *List) Sources() []domain.RetrievedParagraph {
	return l.sources
}

// IsCited reports whether the answer cites paragraphID.
func (l *List) IsCited(paragraphID string) bool {
	return slices.Contains(l.cited, paragraphID)
}

func (l *List) citedCount() int {
	n := 0
	for i := range l.sources {
		if l.IsCited(l.sources[i].ParagraphID) {
			n++
		}
	}
	return n
}

// Selected returns the selected index.
func (l *List) Selected() int {
	return l.selected
}

// SelectedSource returns the selected paragraph, or nil for an empty list.
func (l *List) SelectedSource() *domain.RetrievedParagraph {
	if l.selected < 0 || l.selected >= len(l.sources) {
		return nil
	}
	return &l.sources[l.selected]
}

// MoveUp moves the selection up.
func (l *List) MoveUp() {
	if l.selected > 0 {
		l.selected--
	}
}

// MoveDown moves the selection down.
func (l *List) MoveDown() {
	if l.selected < len(l.sources)-1 {
		l.selected++
	}
}

// SetDimensions sets the render area.
func (l *List) SetDimensions(width, height int) {
	l.width = width
	l.height = height
}

// truncate shortens s to n runes, marking the cut with "...".
func truncate(s string, n int) string {
	n = max(n, 10)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
