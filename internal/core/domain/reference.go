package domain

import (
	"fmt"
	"strings"
)

// ComponentKind identifies the entity kind a Reference points at.
type ComponentKind string

// Component kinds that can be resolved to an owning Expression.
const (
	KindWork       ComponentKind = "work"
	KindExpression ComponentKind = "expression"
	KindArticle    ComponentKind = "article"
	KindParagraph  ComponentKind = "paragraph"
)

// IsValid returns true if the kind is recognised.
func (k ComponentKind) IsValid() bool {
	switch k {
	case KindWork, KindExpression, KindArticle, KindParagraph:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (k ComponentKind) String() string {
	return string(k)
}

// AllComponentKinds returns every resolvable kind.
func AllComponentKinds() []ComponentKind {
	return []ComponentKind{KindWork, KindExpression, KindArticle, KindParagraph}
}

// Reference is an opaque kind-tagged pointer into the graph.
type Reference struct {
	Kind ComponentKind
	ID   string
}

// String renders the reference as "kind:id".
func (r Reference) String() string {
	return string(r.Kind) + ":" + r.ID
}

// ParseReference parses "kind:id", the legacy "urn:kind:id" form, or a bare
// id which is treated as a work id.
func ParseReference(s string) (Reference, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Reference{}, fmt.Errorf("%w: empty reference", ErrInvalidInput)
	}

	s = strings.TrimPrefix(s, "urn:")

	kind, id, ok := strings.Cut(s, ":")
	if !ok {
		return Reference{Kind: KindWork, ID: s}, nil
	}

	k := ComponentKind(strings.ToLower(kind))
	if !k.IsValid() {
		return Reference{}, fmt.Errorf("%w: unknown component kind %q", ErrInvalidInput, kind)
	}
	if id == "" {
		return Reference{}, fmt.Errorf("%w: reference %q has no id", ErrInvalidInput, s)
	}
	return Reference{Kind: k, ID: id}, nil
}
