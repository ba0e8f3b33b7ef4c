package consistency

import (
	"time"

	"github.com/mmdatafocus/proposals_backend/models"
)

// Direction of a one-way sync.
type Direction string

const (
	RelationalToDocument Direction = "relational_to_document"
	DocumentToRelational Direction = "document_to_relational"
)

type SyncOperation string

const (
	SyncOperationInsert SyncOperation = "insert"
	SyncOperationUpdate SyncOperation = "update"
)

// FieldDifference is one disagreeing shared field, both values rendered in
// their canonical comparison form.
type FieldDifference struct {
	Field           string `json:"field"`
	RelationalValue string `json:"relationalValue"`
	DocumentValue   string `json:"documentValue"`
}

// ConsistencyReport is the checker's output. Ephemeral, never persisted.
type ConsistencyReport struct {
	ProposalId         int               `json:"proposalId"`
	ExistsInRelational bool              `json:"existsInRelational"`
	ExistsInDocument   bool              `json:"existsInDocument"`
	FieldDifferences   []FieldDifference `json:"fieldDifferences"`
	Recommendations    []string          `json:"recommendations"`
}

// IsConsistent is true when both sides exist and agree on every shared field.
func (r *ConsistencyReport) IsConsistent() bool {
	return r.ExistsInRelational && r.ExistsInDocument && len(r.FieldDifferences) == 0
}

// SyncResult summarizes one directional sync.
type SyncResult struct {
	Operation     SyncOperation `json:"operation"`
	ProposalId    int           `json:"proposalId"`
	AffectedCount int64         `json:"affectedCount"`
	SyncedAt      time.Time     `json:"syncedAt"`
}

// BidirectionalResult is what an audit pass reports back.
type BidirectionalResult struct {
	ProposalId     int                    `json:"proposalId"`
	HasDifferences bool                   `json:"hasDifferences"`
	Report         *ConsistencyReport     `json:"report"`
	SyncResult     *SyncResult            `json:"syncResult,omitempty"`
	Resolutions    []models.ResolvedField `json:"resolutions,omitempty"`
}
