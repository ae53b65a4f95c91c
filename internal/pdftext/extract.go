// Package pdftext extracts positioned word fragments from PDF statements.
// It wraps the pdf library behind a recover() so a malformed document can
// never take down a batch, and assembles glyph runs into word fragments
// before the layout clusterer sees them.
package pdftext

import (
	"bytes"
	"fmt"
	"math"
	"sort"

	"github.com/ledongthuc/pdf"

	"github.com/tradefeed/tradefeed/internal/layout"
)

// defaultPageHeight is the US Letter height used when a page carries no
// readable MediaBox.
const defaultPageHeight = 792.0

// ExtractPages returns one fragment slice per page, in page order.
// Fragment tops are measured from the top of the page so downstream row
// clustering can treat smaller as higher. An empty password opens
// unencrypted documents.
func ExtractPages(data []byte, password string) (pages [][]layout.Fragment, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("panic during PDF extraction: %v", r)
		}
	}()

	reader, err := openReader(data, password)
	if err != nil {
		return nil, fmt.Errorf("open PDF reader: %w", err)
	}

	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, nil)
			continue
		}
		pages = append(pages, pageFragments(page))
	}
	return pages, nil
}

func openReader(data []byte, password string) (*pdf.Reader, error) {
	r := bytes.NewReader(data)
	size := int64(len(data))
	if password == "" {
		return pdf.NewReader(r, size)
	}
	// The password callback is polled until it returns an empty string,
	// which signals giving up rather than retrying forever.
	attempts := 0
	return pdf.NewReaderEncrypted(r, size, func() string {
		attempts++
		if attempts > 1 {
			return ""
		}
		return password
	})
}

// pageFragments assembles the page's glyph runs into word fragments.
func pageFragments(page pdf.Page) []layout.Fragment {
	content := page.Content()
	words := assembleWords(content.Text)

	height := pageHeight(page)
	frags := make([]layout.Fragment, 0, len(words))
	for _, w := range words {
		top := height - w.Y
		frags = append(frags, layout.Fragment{
			Text:   w.S,
			Top:    top,
			Bottom: top + w.FontSize,
			X0:     w.X,
		})
	}
	return frags
}

// assembleWords merges adjacent glyphs on the same baseline into words.
// Glyphs closer than a sixth of the font size continue the current word;
// anything wider starts a new fragment. Row reassembly is left to the
// layout clusterer, which joins fragments with single spaces.
func assembleWords(chars []pdf.Text) []pdf.Text {
	if len(chars) == 0 {
		return nil
	}

	// Nudge sub-pixel baseline jitter onto a shared Y before sorting.
	const nudge = 1.0
	sort.Sort(pdf.TextVertical(chars))
	old := -100000.0
	for i, c := range chars {
		if c.Y != old && math.Abs(old-c.Y) < nudge {
			chars[i].Y = old
		} else {
			old = c.Y
		}
	}
	sort.Sort(pdf.TextVertical(chars))

	var words []pdf.Text
	for i := 0; i < len(chars); {
		j := i + 1
		for j < len(chars) && chars[j].Y == chars[i].Y {
			j++
		}
		for k := i; k < j; {
			ck := chars[k]
			s := ck.S
			end := ck.X + ck.W
			charSpace := ck.FontSize / 6
			l := k + 1
			for l < j {
				cl := chars[l]
				if math.Abs(cl.FontSize-ck.FontSize) < 0.1 && cl.X <= end+charSpace {
					s += cl.S
					end = cl.X + cl.W
					l++
					continue
				}
				break
			}
			words = append(words, pdf.Text{
				Font:     ck.Font,
				FontSize: ck.FontSize,
				X:        ck.X,
				Y:        ck.Y,
				W:        end - ck.X,
				S:        s,
			})
			k = l
		}
		i = j
	}
	return words
}

// pageHeight reads the page MediaBox height, falling back to US Letter.
func pageHeight(page pdf.Page) float64 {
	box := page.V.Key("MediaBox")
	if box.IsNull() || box.Len() < 4 {
		return defaultPageHeight
	}
	y0 := box.Index(1).Float64()
	y1 := box.Index(3).Float64()
	if y1 <= y0 {
		return defaultPageHeight
	}
	return y1 - y0
}
