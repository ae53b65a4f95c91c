// Package pipeline runs batches of brokerage documents through source
// routing, text extraction, and trade parsing. Documents are processed
// concurrently but results always come back in input order, and one bad
// document never fails the batch.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/tradefeed/tradefeed/internal/parser"
	"github.com/tradefeed/tradefeed/internal/pdftext"
	"github.com/tradefeed/tradefeed/internal/trade"
)

// Input is one document to ingest.
type Input struct {
	Kind parser.Kind
	Name string
	Data []byte
	// Password opens encrypted PDFs; ignored for other kinds.
	Password string
}

// Result pairs the records extracted from one input with its failure,
// if any. Exactly one of Records and Err is meaningful.
type Result struct {
	Name    string
	Records []trade.Record
	Err     error
}

// Pipeline ingests document batches.
type Pipeline struct {
	// Workers caps concurrent document processing. Values below 1 are
	// treated as 1.
	Workers int
}

// New returns a pipeline with the given concurrency cap.
func New(workers int) *Pipeline {
	if workers < 1 {
		workers = 1
	}
	return &Pipeline{Workers: workers}
}

// Run processes every input and returns one result per input, in input
// order. Per-document failures are reported in the result slice, never
// as the batch error; the error return covers context cancellation only.
func (p *Pipeline) Run(ctx context.Context, inputs []Input) ([]Result, error) {
	batchID := uuid.New().String()[:8]
	log.Printf("[PIPELINE] batch %s: processing %d documents with %d workers", batchID, len(inputs), p.Workers)

	results := make([]Result, len(inputs))
	sem := make(chan struct{}, p.Workers)
	var wg sync.WaitGroup

	for i := range inputs {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return nil, err
		}
		select {
		case <-ctx.Done():
			wg.Wait()
			return nil, ctx.Err()
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()
			results[idx] = p.processOne(&inputs[idx])
		}(i)
	}
	wg.Wait()

	var ok, failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
		} else {
			ok += len(r.Records)
		}
	}
	log.Printf("[PIPELINE] batch %s: %d records extracted, %d documents failed", batchID, ok, failed)
	return results, nil
}

// Records flattens successful results into a single record list,
// preserving input order.
func Records(results []Result) []trade.Record {
	var out []trade.Record
	for _, r := range results {
		if r.Err == nil {
			out = append(out, r.Records...)
		}
	}
	return out
}

func (p *Pipeline) processOne(in *Input) (res Result) {
	res.Name = in.Name
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[PIPELINE] panic while parsing %s: %v", in.Name, r)
			res.Records = nil
			res.Err = &ParseError{
				Code:     ErrParserPanic,
				Message:  fmt.Sprintf("panic: %v", r),
				Document: in.Name,
			}
		}
	}()

	prs, err := parser.ForKind(in.Kind)
	if err != nil {
		res.Err = &ParseError{
			Code:     ErrUnknownSource,
			Message:  "no parser for source kind",
			Document: in.Name,
			Cause:    err,
		}
		return res
	}

	doc := &parser.Document{Kind: in.Kind, Name: in.Name}
	switch in.Kind {
	case parser.KindCathayTW, parser.KindCathayUS:
		pages, err := pdftext.ExtractPages(in.Data, in.Password)
		if err != nil {
			res.Err = &ParseError{
				Code:     ErrUnreadableDocument,
				Message:  "failed to extract PDF text",
				Document: in.Name,
				Cause:    err,
			}
			return res
		}
		doc.Pages = pages
	default:
		doc.Body = string(in.Data)
	}

	records, err := prs.Parse(doc)
	if err != nil {
		res.Err = &ParseError{
			Code:     ErrExtractionFailed,
			Message:  "parse failed",
			Document: in.Name,
			Cause:    err,
		}
		return res
	}

	res.Records = records
	return res
}
