package storage

import "time"

// PassageRecord is the text of one indexed point, keyed by its vector point id.
type PassageRecord struct {
	ID        string // same as the Qdrant point ID
	Source    string // originating document name, e.g. "terms.txt"
	Content   string
	UpdatedAt time.Time
}
