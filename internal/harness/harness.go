package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/dataserver/internal/block"
	"github.com/roach88/dataserver/internal/checksum"
	"github.com/roach88/dataserver/internal/ingest"
	"github.com/roach88/dataserver/internal/query"
	"github.com/roach88/dataserver/internal/store"
	"github.com/roach88/dataserver/internal/testutil"
)

// Harness executes scenario steps against one store.
type Harness struct {
	store  *store.Store
	ingest *ingest.Service
	query  *query.Service
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation. A
// fixed clock and sequential IDs make the trace reproducible.
//
// The returned error is reserved for infrastructure failures (the store
// could not be opened or a store call failed); unmet expectations are
// recorded in Result.Errors.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	clock := testutil.NewFixedClock(testutil.FixedTime)
	h := &Harness{
		store: st,
		ingest: ingest.New(st,
			ingest.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
			ingest.WithClock(clock.Now),
			ingest.WithIDGenerator(testutil.NewSequentialIDGenerator("rec")),
		),
		query: query.New(st),
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	for i, assertion := range scenario.Assertions {
		if err := h.checkAssertion(ctx, assertion); err != nil {
			result.AddError(fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return result, nil
}

// executeStep runs one step, appends its trace event and checks its
// expectation. Only store failures are returned.
func (h *Harness) executeStep(ctx context.Context, index int, step Step, result *Result) error {
	event := TraceEvent{
		Step:      index,
		Op:        step.Op,
		Name:      step.Name,
		BlockType: step.BlockType,
	}

	var (
		err     error
		records []block.Record
	)
	switch step.Op {
	case OpSubmit:
		event.OK, err = h.ingest.Submit(ctx, envelopeFor(step))
	case OpRetype:
		event.OK, err = h.ingest.Retype(ctx, step.Name, block.BlockType(step.BlockType))
	case OpGetByType:
		records, err = h.query.GetByType(ctx, block.BlockType(step.BlockType))
		event.OK = len(records) > 0
	case OpGetByName:
		var (
			rec   block.Record
			found bool
		)
		rec, found, err = h.query.GetByName(ctx, block.NormalizeName(step.Name))
		if found {
			records = []block.Record{rec}
		}
		event.OK = found
	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}

	if err != nil && block.CodeOf(err) == "" {
		return err
	}
	event.Code = string(block.CodeOf(err))
	for _, rec := range records {
		event.Records = append(event.Records, rec.ID)
	}
	result.Trace = append(result.Trace, event)

	if step.Expect != nil {
		for _, msg := range checkExpect(step.Expect, event, records) {
			result.AddError(fmt.Sprintf("steps[%d] (%s): %s", index, step.Op, msg))
		}
	}
	return nil
}

// envelopeFor builds the envelope a submit step describes.
func envelopeFor(step Step) *block.Envelope {
	env := &block.Envelope{
		Body: block.Body{Content: step.Content},
	}
	if !step.OmitHeader {
		env.Header = &block.Header{
			Name:      step.Name,
			BlockType: block.BlockType(step.BlockType),
		}
	}
	if step.Checksum != nil {
		env.Checksum = *step.Checksum
	} else if sum, err := checksum.Digest(env.Body.Bytes()); err == nil {
		env.Checksum = sum
	}
	return env
}
