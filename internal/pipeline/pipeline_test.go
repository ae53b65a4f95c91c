package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradefeed/tradefeed/internal/parser"
)

// confirmBody builds a minimal plain-text eConfirm yielding one record.
func confirmBody(sym string, qty, price, principal, total string) string {
	return "Symbol: " + sym + " Action: Purchase Trade Date: 09/08/2025 " +
		"Quantity Price Principal Total Amount " +
		qty + " " + price + " " + principal + " " + total +
		" Additional information"
}

func confirmInput(i int) Input {
	sym := fmt.Sprintf("SYM%d", i)
	qty := fmt.Sprintf("%d", 10+i)
	return Input{
		Kind: parser.KindSchwabText,
		Name: fmt.Sprintf("confirm-%d.txt", i),
		Data: []byte(confirmBody(sym, qty, "100.00", "1,000.00", "1,000.50")),
	}
}

func TestPipeline_ConcurrentMatchesSequential(t *testing.T) {
	var inputs []Input
	for i := 0; i < 8; i++ {
		inputs = append(inputs, confirmInput(i))
	}

	sequential, err := New(1).Run(context.Background(), inputs)
	require.NoError(t, err)
	concurrent, err := New(4).Run(context.Background(), inputs)
	require.NoError(t, err)

	require.Equal(t, sequential, concurrent)

	records := Records(concurrent)
	require.Len(t, records, 8)
	for i, rec := range records {
		assert.Equal(t, fmt.Sprintf("SYM%d", i), rec.Symbol)
		assert.Equal(t, float64(10+i), rec.Shares)
	}
}

func TestPipeline_BadDocumentDoesNotFailBatch(t *testing.T) {
	inputs := []Input{
		confirmInput(0),
		{Kind: parser.KindCathayTW, Name: "broken.pdf", Data: []byte("not a pdf")},
		confirmInput(2),
	}

	results, err := New(3).Run(context.Background(), inputs)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.NoError(t, results[0].Err)
	assert.NoError(t, results[2].Err)

	var perr *ParseError
	require.ErrorAs(t, results[1].Err, &perr)
	assert.Equal(t, ErrUnreadableDocument, perr.Code)
	assert.Equal(t, "broken.pdf", perr.Document)

	records := Records(results)
	require.Len(t, records, 2)
	assert.Equal(t, "SYM0", records[0].Symbol)
	assert.Equal(t, "SYM2", records[1].Symbol)
}

func TestPipeline_UnknownKind(t *testing.T) {
	inputs := []Input{{Kind: parser.Kind("fax"), Name: "doc.fax", Data: []byte("x")}}

	results, err := New(1).Run(context.Background(), inputs)
	require.NoError(t, err)
	require.Len(t, results, 1)

	var perr *ParseError
	require.ErrorAs(t, results[0].Err, &perr)
	assert.Equal(t, ErrUnknownSource, perr.Code)
}

func TestPipeline_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(2).Run(ctx, []Input{confirmInput(0)})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseError_Format(t *testing.T) {
	cause := errors.New("boom")
	err := &ParseError{
		Code:     ErrExtractionFailed,
		Message:  "parse failed",
		Document: "a.pdf",
		Cause:    cause,
	}

	assert.Equal(t, "[EXTRACTION_FAILED] parse failed (a.pdf): boom", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.False(t, err.IsRetryable())

	bare := &ParseError{Code: ErrNoTradesFound, Message: "no trades", Document: "b.txt"}
	assert.Equal(t, "[NO_TRADES_FOUND] no trades (b.txt)", bare.Error())
}
