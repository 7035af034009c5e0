package harness

import (
	"context"
	"fmt"

	"github.com/roach88/dataserver/internal/block"
)

// checkExpect compares a step's outcome with its expectation and returns
// one message per mismatch.
func checkExpect(expect *Expect, event TraceEvent, records []block.Record) []string {
	var failures []string

	if expect.OK != nil && *expect.OK != event.OK {
		failures = append(failures, fmt.Sprintf("expected ok=%t, got ok=%t", *expect.OK, event.OK))
	}

	switch expect.Code {
	case "":
	case ExpectNoError:
		if event.Code != "" {
			failures = append(failures, fmt.Sprintf("expected no error, got %s", event.Code))
		}
	default:
		if expect.Code != event.Code {
			failures = append(failures, fmt.Sprintf("expected code %s, got %q", expect.Code, event.Code))
		}
	}

	if expect.Count != nil && *expect.Count != len(records) {
		failures = append(failures, fmt.Sprintf("expected %d records, got %d", *expect.Count, len(records)))
	}

	if expect.Content != nil || expect.BlockType != "" {
		if len(records) == 0 {
			failures = append(failures, "expected a record, got none")
			return failures
		}
		rec := records[len(records)-1]
		if expect.Content != nil && *expect.Content != rec.Body.Content {
			failures = append(failures, fmt.Sprintf("expected content %q, got %q", *expect.Content, rec.Body.Content))
		}
		if expect.BlockType != "" && expect.BlockType != string(rec.Header.BlockType) {
			failures = append(failures, fmt.Sprintf("expected block type %s, got %s", expect.BlockType, rec.Header.BlockType))
		}
	}
	return failures
}

// checkAssertion evaluates one final-state assertion.
func (h *Harness) checkAssertion(ctx context.Context, a Assertion) error {
	switch a.Type {
	case AssertStoreCount:
		n, err := h.store.Count(ctx)
		if err != nil {
			return err
		}
		if n != a.Count {
			return fmt.Errorf("store_count: expected %d records, got %d", a.Count, n)
		}

	case AssertTypeCount:
		records, err := h.query.GetByType(ctx, block.BlockType(a.BlockType))
		if err != nil {
			return err
		}
		if len(records) != a.Count {
			return fmt.Errorf("type_count: expected %d %s records, got %d", a.Count, a.BlockType, len(records))
		}

	case AssertNameResolves:
		rec, found, err := h.query.GetByName(ctx, block.NormalizeName(a.Name))
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("name_resolves: no record named %q", a.Name)
		}
		if a.BlockType != "" && string(rec.Header.BlockType) != a.BlockType {
			return fmt.Errorf("name_resolves: %q has block type %s, expected %s", a.Name, rec.Header.BlockType, a.BlockType)
		}
		if a.Content != nil && rec.Body.Content != *a.Content {
			return fmt.Errorf("name_resolves: %q has content %q, expected %q", a.Name, rec.Body.Content, *a.Content)
		}

	case AssertNameAbsent:
		_, found, err := h.query.GetByName(ctx, block.NormalizeName(a.Name))
		if err != nil {
			return err
		}
		if found {
			return fmt.Errorf("name_absent: found a record named %q", a.Name)
		}

	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
