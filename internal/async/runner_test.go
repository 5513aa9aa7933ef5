package async

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oladayo-ade/solarbill/constants"
	"github.com/oladayo-ade/solarbill/internal/gateway"
	"github.com/oladayo-ade/solarbill/internal/pipeline"
	"github.com/oladayo-ade/solarbill/internal/provider"
)

type fakeTextClient struct {
	raw string
}

func (f *fakeTextClient) ID() string { return "fake" }
func (f *fakeTextClient) Supports(c provider.Capability) bool {
	return c == provider.CapabilityTextJSON
}
func (f *fakeTextClient) Extract(_ context.Context, _ provider.Request) (string, error) {
	return f.raw, nil
}

func testRunner(t *testing.T, workers int) *Runner {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gw := gateway.New(logger, map[provider.Capability][]provider.Client{
		provider.CapabilityTextJSON: {&fakeTextClient{raw: `{"amount_due": "42.00"}`}},
	}, time.Second)
	proc := pipeline.NewProcessor(logger, pipeline.Config{ReviewThreshold: 70}, pipeline.Deps{Gateway: gw})
	return NewRunner(proc, workers, logger)
}

func makeDocs(n int) []pipeline.Document {
	docs := make([]pipeline.Document, 0, n)
	for i := 0; i < n; i++ {
		docs = append(docs, pipeline.Document{
			ID:         uuid.New(),
			SourcePath: fmt.Sprintf("bill-%d.txt", i),
			Text:       "bill text",
		})
	}
	return docs
}

func TestRunBatchProcessesEveryDocument(t *testing.T) {
	r := testRunner(t, 3)
	docs := makeDocs(7)

	results := r.RunBatch(context.Background(), docs)

	require.Len(t, results, 7)
	seen := map[uuid.UUID]bool{}
	for _, res := range results {
		assert.Equal(t, constants.StateComplete, res.State)
		assert.False(t, seen[res.ID], "duplicate result for %s", res.ID)
		seen[res.ID] = true
	}
}

func TestRunBatchEmitsNothingWhenCancelledUpFront(t *testing.T) {
	r := testRunner(t, 2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := r.RunBatch(ctx, makeDocs(5))

	assert.Empty(t, results)
}

func TestStreamClosesOutputAfterInputDrains(t *testing.T) {
	r := testRunner(t, 2)

	in := make(chan pipeline.Document)
	out := r.Stream(context.Background(), in)

	go func() {
		defer close(in)
		for _, d := range makeDocs(3) {
			in <- d
		}
	}()

	count := 0
	for range out {
		count++
	}
	assert.Equal(t, 3, count)
}
