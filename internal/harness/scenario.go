package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/dataserver/internal/block"
)

// Scenario defines an ingestion scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Steps run in order against one store.
	Steps []Step `yaml:"steps"`

	// Assertions validate the store after all steps.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is a single service call.
type Step struct {
	// Op is one of the Op* constants.
	Op string `yaml:"op"`

	Name      string `yaml:"name,omitempty"`
	BlockType string `yaml:"block_type,omitempty"`
	Content   string `yaml:"content,omitempty"`

	// Checksum overrides the computed digest for submit steps.
	Checksum *string `yaml:"checksum,omitempty"`

	// OmitHeader submits an envelope with no header.
	OmitHeader bool `yaml:"omit_header,omitempty"`

	// Expect, if present, is checked against the step's outcome.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect specifies a step's expected outcome. Unset fields are not checked.
type Expect struct {
	// OK is the boolean result of submit/retype, or whether a lookup found anything.
	OK *bool `yaml:"ok,omitempty"`

	// Code is the expected block error code. "none" requires no error.
	Code string `yaml:"code,omitempty"`

	// Count is the number of records a get_by_type returns.
	Count *int `yaml:"count,omitempty"`

	// Content and BlockType are checked against a get_by_name result.
	Content   *string `yaml:"content,omitempty"`
	BlockType string  `yaml:"block_type,omitempty"`
}

// Assertion validates the final store.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	Name      string  `yaml:"name,omitempty"`
	BlockType string  `yaml:"block_type,omitempty"`
	Content   *string `yaml:"content,omitempty"`
	Count     int     `yaml:"count,omitempty"`
}

// Step operations.
const (
	OpSubmit    = "submit"
	OpRetype    = "retype"
	OpGetByType = "get_by_type"
	OpGetByName = "get_by_name"
)

// Assertion type constants.
const (
	AssertStoreCount   = "store_count"
	AssertTypeCount    = "type_count"
	AssertNameResolves = "name_resolves"
	AssertNameAbsent   = "name_absent"
)

// ExpectNoError is the Expect.Code value requiring a step to succeed.
const ExpectNoError = "none"

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
// Block types are not checked here: scenarios may submit unknown types on
// purpose to exercise rejection.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		switch step.Op {
		case OpSubmit, OpGetByName:
		case OpRetype, OpGetByType:
			if step.BlockType == "" {
				return fmt.Errorf("steps[%d]: block_type is required for %s", i, step.Op)
			}
		case "":
			return fmt.Errorf("steps[%d]: op is required", i)
		default:
			return fmt.Errorf("steps[%d]: unknown op %q", i, step.Op)
		}
		if step.Expect != nil && step.Expect.Code != "" && step.Expect.Code != ExpectNoError {
			if !knownCode(block.ErrorCode(step.Expect.Code)) {
				return fmt.Errorf("steps[%d].expect: unknown code %q", i, step.Expect.Code)
			}
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertStoreCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertTypeCount:
		if a.BlockType == "" {
			return fmt.Errorf("assertions[%d]: block_type is required for type_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertNameResolves, AssertNameAbsent:
		if a.Name == "" {
			return fmt.Errorf("assertions[%d]: name is required for %s", index, a.Type)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

func knownCode(code block.ErrorCode) bool {
	switch code {
	case block.ErrCodeMalformedEnvelope, block.ErrCodeIntegrityMismatch,
		block.ErrCodeHashingUnavailable, block.ErrCodeNotFound:
		return true
	}
	return false
}
