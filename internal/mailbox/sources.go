package mailbox

import (
	"fmt"

	"github.com/tradefeed/tradefeed/internal/parser"
)

// Source describes how one brokerage's documents arrive in the mailbox.
type Source struct {
	Kind parser.Kind
	// query is the Gmail search without the recency window.
	query string
	// FilenameContains filters which PDF attachments belong to this
	// source; empty for body-based sources.
	FilenameContains string
	// FromBody is set when records come from the message body rather
	// than attachments.
	FromBody bool
}

var sources = map[parser.Kind]Source{
	parser.KindCathayTW: {
		Kind:             parser.KindCathayTW,
		query:            "from:(e-notification@ebill1.cathaysec.com.tw) subject:(國泰綜合證券日對帳單) has:attachment",
		FilenameContains: "國泰證券日對帳單",
	},
	parser.KindCathayUS: {
		Kind:             parser.KindCathayUS,
		query:            "from:e-notification@ebill1.cathaysec.com.tw has:attachment 客戶買賣報告書",
		FilenameContains: "客戶買賣報告書",
	},
	parser.KindSchwabHTML: {
		Kind:     parser.KindSchwabHTML,
		query:    "from:(donotreply@mail.schwab.com) eConfirms",
		FromBody: true,
	},
	parser.KindSchwabText: {
		Kind:     parser.KindSchwabText,
		query:    "from:(donotreply@mail.schwab.com) eConfirms",
		FromBody: true,
	},
}

// SourceFor returns the mailbox source for a parser kind.
func SourceFor(kind parser.Kind) (Source, error) {
	s, ok := sources[kind]
	if !ok {
		return Source{}, fmt.Errorf("no mailbox source for kind %q", kind)
	}
	return s, nil
}

// Query returns the Gmail search for this source, windowed to the last
// newerThanDays days when positive.
func (s Source) Query(newerThanDays int) string {
	if newerThanDays > 0 {
		return fmt.Sprintf("%s newer_than:%dd", s.query, newerThanDays)
	}
	return s.query
}
