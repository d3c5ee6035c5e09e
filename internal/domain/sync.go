package domain

import "time"

// SyncOutcome is the result of a single collection sync. It is returned,
// never persisted: callers use it to decide whether to notify, commit, or
// roll back. Best-effort paths report failure here instead of raising.
type SyncOutcome struct {
	Success         bool     `json:"success"`
	CollectionID    string   `json:"collection_id"`
	NewProperties   int      `json:"new_properties_count"`
	TotalProperties int      `json:"total_properties"`
	Errors          []string `json:"errors,omitempty"`
}

// FailedSync builds a failure outcome carrying one error message.
func FailedSync(collectionID, msg string) SyncOutcome {
	return SyncOutcome{
		Success:      false,
		CollectionID: collectionID,
		Errors:       []string{msg},
	}
}

// SyncRunReport aggregates one scheduler pass over many collections.
type SyncRunReport struct {
	StartedAt            time.Time `json:"started_at"`
	CompletedAt          time.Time `json:"completed_at"`
	CollectionsFound     int       `json:"collections_found"`
	CollectionsProcessed int       `json:"collections_processed"`
	CollectionsSkipped   int       `json:"collections_skipped"`
	TotalNewProperties   int       `json:"total_new_properties"`
	Errors               []string  `json:"errors,omitempty"`
	Success              bool      `json:"success"`
}

// Duration returns the wall-clock length of the run.
func (r *SyncRunReport) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}
