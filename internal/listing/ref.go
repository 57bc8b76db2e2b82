package listing

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// RefKind tells how a brand or model reference is looked up
type RefKind int

const (
	RefNone RefKind = iota
	RefByID
	RefBySlug
)

var uuidPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// Ref is a brand or model reference given either as an id or as a slug
type Ref struct {
	Kind RefKind
	ID   uuid.UUID
	Slug string
}

// ParseRef classifies raw as an id when it is UUID-shaped, otherwise as a slug
func ParseRef(raw string) Ref {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Ref{Kind: RefNone}
	}
	if uuidPattern.MatchString(raw) {
		if id, err := uuid.Parse(raw); err == nil {
			return Ref{Kind: RefByID, ID: id}
		}
	}
	return Ref{Kind: RefBySlug, Slug: strings.ToLower(raw)}
}

// IsZero reports whether no reference was given
func (r Ref) IsZero() bool {
	return r.Kind == RefNone
}

func (r Ref) String() string {
	switch r.Kind {
	case RefByID:
		return r.ID.String()
	case RefBySlug:
		return r.Slug
	}
	return ""
}
