// Package parser implements the source-specific record extractors that turn
// reconstructed statement text into canonical trade records.
package parser

import (
	"fmt"

	"github.com/tradefeed/tradefeed/internal/layout"
	"github.com/tradefeed/tradefeed/internal/trade"
)

// Kind identifies one of the supported statement layouts.
type Kind string

const (
	KindCathayTW   Kind = "cathay-tw"
	KindCathayUS   Kind = "cathay-us"
	KindSchwabHTML Kind = "schwab-html"
	KindSchwabText Kind = "schwab-text"
)

// Document is one logical unit of input. PDF kinds carry positioned
// fragments per page; Schwab kinds carry the message body.
type Document struct {
	Kind  Kind
	Name  string
	Pages [][]layout.Fragment
	Body  string
}

// Parser is the contract shared by all three extractors: consume one
// document, emit zero or more canonical records in encounter order.
// Unrecognized lines are skipped, never fatal.
type Parser interface {
	Parse(doc *Document) ([]trade.Record, error)
}

// ForKind selects the extractor for a document kind.
func ForKind(k Kind) (Parser, error) {
	switch k {
	case KindCathayTW:
		return &CathayTW{}, nil
	case KindCathayUS:
		return &CathayUS{}, nil
	case KindSchwabHTML, KindSchwabText:
		return &Schwab{}, nil
	default:
		return nil, fmt.Errorf("unsupported document kind %q", k)
	}
}
