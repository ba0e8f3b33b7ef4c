package utils

import (
	"errors"
	"fmt"
)

// Engine error taxonomy. Adapter-level transient failures are retried locally;
// these surface to callers only once retries are exhausted or the failure is
// a business-level outcome that must never be retried automatically.
var (
	// ErrConnectionExhausted: document store unreachable after bounded retries.
	// Relational-only reads keep working in degraded mode.
	ErrConnectionExhausted = errors.New("document store connection exhausted")

	// ErrStorageUnavailable: blob bucket handle not ready; ingestion aborts
	// with no partial writes.
	ErrStorageUnavailable = errors.New("blob storage unavailable")

	// ErrIngestionVerificationFailed: the stream completed but the stored
	// descriptor could not be read back; the caller must not assume the file
	// exists.
	ErrIngestionVerificationFailed = errors.New("ingestion verification failed")

	// ErrIngestionTimeout: the whole ingestion exceeded its deadline; outcome
	// unknown, treat as failed.
	ErrIngestionTimeout = errors.New("ingestion timed out")

	ErrProposalNotFoundRelational = errors.New("proposal not found in relational store")
	ErrProposalNotFoundDocument   = errors.New("proposal not found in document store")
)

// StoreError carries the proposal id and the failing store through a sync
// attempt, so callers can tell which side broke and retry the whole call.
type StoreError struct {
	Store      string // "relational" or "document"
	Op         string
	ProposalId int
	Err        error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s store %s failed for proposal %d: %v", e.Store, e.Op, e.ProposalId, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func NewStoreError(store, op string, proposalId int, err error) *StoreError {
	return &StoreError{Store: store, Op: op, ProposalId: proposalId, Err: err}
}

// ConflictResolutionError: a write during conflict resolution failed; the
// proposal stays flagged inconsistent for the next audit pass.
type ConflictResolutionError struct {
	ProposalId int
	Err        error
}

func (e *ConflictResolutionError) Error() string {
	return fmt.Sprintf("conflict resolution failed for proposal %d: %v", e.ProposalId, e.Err)
}

func (e *ConflictResolutionError) Unwrap() error { return e.Err }
