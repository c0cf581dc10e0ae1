package domain

import "time"

// Record is the persisted unit: one classified article per normalized URL.
// Records are created once by the ingestion pipeline and never mutated.
type Record struct {
	URL      string
	Date     time.Time
	Category Category
	Title    string
	Summary  string
	Body     string
}

// Classification is the structured metadata produced by the inference call.
type Classification struct {
	Title    string
	Category Category
	Summary  string
}

// Outcome is the transient per-candidate result of one pipeline pass.
type Outcome string

const (
	OutcomeCreated        Outcome = "created"
	OutcomeAlreadyPresent Outcome = "already-present"
	OutcomeFetchFailed    Outcome = "fetch-failed"
	OutcomeClassifyFailed Outcome = "classification-failed"
)
