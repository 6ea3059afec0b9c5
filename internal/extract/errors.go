package extract

import (
	"errors"
	"fmt"
)

// Outcome names the artifact class produced for a company in a run.
type Outcome string

const (
	// OutcomeEmpty means no chunk matched the ESG vocabulary; the model was not called.
	OutcomeEmpty Outcome = "empty"
	// OutcomeJSON means a structured extraction was recovered and written.
	OutcomeJSON Outcome = "json"
	// OutcomeServiceFailure means the completion call failed; the error text was written.
	OutcomeServiceFailure Outcome = "service_failure"
	// OutcomeInvalid means no structure could be recovered from the response.
	OutcomeInvalid Outcome = "invalid"
)

// Failed reports whether the outcome is a per-company terminal failure.
func (o Outcome) Failed() bool {
	return o == OutcomeServiceFailure || o == OutcomeInvalid
}

// CompanyError records why a company did not yield a structured extraction.
// It is reported in the run manifest and never aborts the run.
type CompanyError struct {
	Company string
	Outcome Outcome
	Err     error
}

func (e *CompanyError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Company, e.Outcome, e.Err)
}

func (e *CompanyError) Unwrap() error { return e.Err }

// errNoStructure is the cause attached to OutcomeInvalid.
var errNoStructure = errors.New("no structure recovered from model response")
