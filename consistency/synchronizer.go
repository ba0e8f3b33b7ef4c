package consistency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/proposals_backend/config"
	"github.com/mmdatafocus/proposals_backend/docstore"
	"github.com/mmdatafocus/proposals_backend/models"
	"github.com/mmdatafocus/proposals_backend/utils"
	"github.com/sirupsen/logrus"
)

// Engine reconciles one proposal between the relational store (authoritative)
// and the document store (mirror). Safe to invoke concurrently for different
// proposal ids; concurrent calls for the same id are not serialized here, so
// callers that need that use WithProposalLock or the relational row lock.
type Engine struct {
	rel    RelationalStore
	doc    DocumentStore
	logger *logrus.Logger

	// invalidate drops the proposal's cached view after a write. Seam for
	// tests; production always uses the Redis-backed cache.
	invalidate func(proposalId int) error
}

func NewEngine(rel RelationalStore, doc DocumentStore, logger *logrus.Logger) *Engine {
	if logger == nil {
		logger = config.GetLogger()
	}
	return &Engine{rel: rel, doc: doc, logger: logger, invalidate: utils.InvalidateProposalCache}
}

// DefaultEngine wires gorm + Firestore, lazily connecting the document store.
func DefaultEngine(ctx context.Context) (*Engine, error) {
	h := docstore.Get()
	if h == nil {
		var err error
		h, err = docstore.ConnectWithRetry(ctx, docstore.DefaultMaxRetries)
		if err != nil {
			return nil, err
		}
	}
	return NewEngine(gormRelationalStore{}, &firestoreDocumentStore{handle: h}, config.GetLogger()), nil
}

// SyncDirectional copies the proposal from source to target. Idempotent with
// respect to the target: re-running with no intervening writes changes
// nothing (full-projection set keyed by the relational id, no duplicate
// inserts possible).
func (e *Engine) SyncDirectional(ctx context.Context, proposalId int, direction Direction) (*SyncResult, error) {
	var result *SyncResult
	var err error

	switch direction {
	case RelationalToDocument:
		result, err = e.syncToDocument(ctx, proposalId)
	case DocumentToRelational:
		result, err = e.syncToRelational(ctx, proposalId)
	default:
		return nil, fmt.Errorf("invalid sync direction: %s", direction)
	}
	if err != nil {
		return nil, err
	}

	if cacheErr := e.invalidate(proposalId); cacheErr != nil {
		config.LogError(e.logger, "synchronizer.go", "SyncDirectional", "invalidating cache", proposalId, cacheErr)
	}

	e.logger.WithFields(logrus.Fields{
		"module":     "consistency",
		"proposalId": proposalId,
		"direction":  direction,
		"operation":  result.Operation,
	}).Info("directional sync completed")
	return result, nil
}

func (e *Engine) syncToDocument(ctx context.Context, proposalId int) (*SyncResult, error) {
	record, err := e.rel.GetProposal(ctx, proposalId)
	if err != nil {
		if errors.Is(err, utils.ErrProposalNotFoundRelational) {
			return nil, err
		}
		return nil, utils.NewStoreError("relational", "read", proposalId, err)
	}

	operation := SyncOperationInsert
	if _, err := e.doc.GetDocument(ctx, proposalId); err == nil {
		operation = SyncOperationUpdate
	} else if !errors.Is(err, utils.ErrProposalNotFoundDocument) {
		return nil, utils.NewStoreError("document", "read", proposalId, err)
	}

	syncedAt := time.Now().UTC()
	doc := models.ProposalDocumentFromRecord(record, syncedAt)
	if err := e.doc.SetDocument(ctx, doc); err != nil {
		return nil, utils.NewStoreError("document", "write", proposalId, err)
	}

	return &SyncResult{
		Operation:     operation,
		ProposalId:    proposalId,
		AffectedCount: 1,
		SyncedAt:      syncedAt,
	}, nil
}

func (e *Engine) syncToRelational(ctx context.Context, proposalId int) (*SyncResult, error) {
	doc, err := e.doc.GetDocument(ctx, proposalId)
	if err != nil {
		if errors.Is(err, utils.ErrProposalNotFoundDocument) {
			return nil, err
		}
		return nil, utils.NewStoreError("document", "read", proposalId, err)
	}

	operation, affected, err := e.rel.UpsertFromDocument(ctx, doc)
	if err != nil {
		return nil, utils.NewStoreError("relational", "write", proposalId, err)
	}

	return &SyncResult{
		Operation:     operation,
		ProposalId:    proposalId,
		AffectedCount: affected,
		SyncedAt:      time.Now().UTC(),
	}, nil
}

// BidirectionalSync runs one reconciliation pass driven by the checker:
// nothing to do, copy toward the missing side, or resolve conflicts. Safe to
// repeat after any failure because every step re-reads current state.
func (e *Engine) BidirectionalSync(ctx context.Context, proposalId int) (*BidirectionalResult, error) {
	report, err := e.Check(ctx, proposalId)
	if err != nil {
		return nil, err
	}

	result := &BidirectionalResult{ProposalId: proposalId, Report: report}

	switch {
	case !report.ExistsInRelational && !report.ExistsInDocument:
		// Nothing to reconcile; the report already recommends creating both.
		return result, nil

	case report.ExistsInRelational && !report.ExistsInDocument:
		result.HasDifferences = true
		result.SyncResult, err = e.SyncDirectional(ctx, proposalId, RelationalToDocument)
		return result, err

	case !report.ExistsInRelational && report.ExistsInDocument:
		result.HasDifferences = true
		result.SyncResult, err = e.SyncDirectional(ctx, proposalId, DocumentToRelational)
		return result, err
	}

	if len(report.FieldDifferences) == 0 {
		return result, nil
	}

	result.HasDifferences = true
	record, err := e.rel.GetProposal(ctx, proposalId)
	if err != nil {
		return nil, utils.NewStoreError("relational", "read", proposalId, err)
	}
	doc, err := e.doc.GetDocument(ctx, proposalId)
	if err != nil {
		return nil, utils.NewStoreError("document", "read", proposalId, err)
	}
	result.Resolutions, err = e.ResolveConflicts(ctx, proposalId, record, doc)
	return result, err
}

// ResolveConflicts collapses every differing shared field to the relational
// value. The policy is deliberately fixed: relational wins, never the
// reverse, because the relational store is the declared source of truth.
// The full field list is persisted for audit and returned to the caller.
func (e *Engine) ResolveConflicts(ctx context.Context, proposalId int, record *models.Proposal, doc *models.ProposalDocument) ([]models.ResolvedField, error) {
	resolvedAt := time.Now().UTC()
	resolved := make([]models.ResolvedField, 0)
	updates := map[string]interface{}{}

	for _, f := range sharedFields {
		rv := f.FromRecord(record)
		dv := f.FromDocument(doc)
		if rv == dv {
			continue
		}
		updates[f.Name] = f.RecordValue(record)
		resolved = append(resolved, models.ResolvedField{Field: f.Name, OldValue: dv, NewValue: rv})
	}
	if len(resolved) == 0 {
		return resolved, nil
	}

	updates["lastSyncedFromRelational"] = resolvedAt
	updates["lastConflictResolution"] = resolvedAt

	if err := e.doc.UpdateDocumentFields(ctx, proposalId, updates); err != nil {
		return nil, &utils.ConflictResolutionError{ProposalId: proposalId, Err: err}
	}

	audit, err := models.NewSyncAudit(proposalId, resolvedAt, resolved, correlationIdFromContextOrNew(ctx))
	if err == nil {
		err = e.rel.RecordResolution(ctx, audit)
	}
	if err != nil {
		// The resolution itself succeeded; a failed audit write must not
		// undo that. Log and move on.
		config.LogError(e.logger, "synchronizer.go", "ResolveConflicts", "recording audit row", proposalId, err)
	}

	if cacheErr := e.invalidate(proposalId); cacheErr != nil {
		config.LogError(e.logger, "synchronizer.go", "ResolveConflicts", "invalidating cache", proposalId, cacheErr)
	}

	e.logger.WithFields(logrus.Fields{
		"module":     "consistency",
		"proposalId": proposalId,
		"fields":     len(resolved),
	}).Info("conflict resolution applied (relational wins)")
	return resolved, nil
}

func correlationIdFromContextOrNew(ctx context.Context) string {
	if ctx != nil {
		if v, ok := utils.GetCorrelationIdFromContext(ctx); ok && v != "" {
			return v
		}
	}
	return uuid.NewString()
}
