package consistency

import (
	"context"
	"errors"

	"github.com/mmdatafocus/proposals_backend/models"
	"github.com/mmdatafocus/proposals_backend/utils"
)

// Recommendation strings surfaced by the checker. Admin-facing endpoints
// pass them through verbatim.
const (
	RecommendCreateBoth            = "proposal missing from both stores; create in both stores"
	RecommendCreateDocument        = "create document projection from the relational record"
	RecommendCreateRelational      = "create relational record from the document projection (anomalous: relational is authoritative, this implies a prior partial failure)"
	RecommendResolveRelationalWins = "resolve field differences with the relational-wins policy"
	RecommendConsistent            = "consistent"
)

// Check reads both stores for the proposal and reports existence and
// field-level agreement. Read-only and side-effect-free; this is the sole
// input to the synchronizer's bidirectional mode.
func (e *Engine) Check(ctx context.Context, proposalId int) (*ConsistencyReport, error) {
	report := &ConsistencyReport{
		ProposalId:       proposalId,
		FieldDifferences: []FieldDifference{},
	}

	record, err := e.rel.GetProposal(ctx, proposalId)
	switch {
	case err == nil:
		report.ExistsInRelational = true
	case errors.Is(err, utils.ErrProposalNotFoundRelational):
		// existence question answered, not an error
	default:
		return nil, utils.NewStoreError("relational", "read", proposalId, err)
	}

	var doc *models.ProposalDocument
	doc, err = e.doc.GetDocument(ctx, proposalId)
	switch {
	case err == nil:
		report.ExistsInDocument = true
	case errors.Is(err, utils.ErrProposalNotFoundDocument):
	default:
		return nil, utils.NewStoreError("document", "read", proposalId, err)
	}

	switch {
	case !report.ExistsInRelational && !report.ExistsInDocument:
		report.Recommendations = []string{RecommendCreateBoth}
	case report.ExistsInRelational && !report.ExistsInDocument:
		report.Recommendations = []string{RecommendCreateDocument}
	case !report.ExistsInRelational && report.ExistsInDocument:
		report.Recommendations = []string{RecommendCreateRelational}
	default:
		report.FieldDifferences = diffSharedFields(record, doc)
		if report.FieldDifferences == nil {
			report.FieldDifferences = []FieldDifference{}
		}
		if len(report.FieldDifferences) == 0 {
			report.Recommendations = []string{RecommendConsistent}
		} else {
			report.Recommendations = []string{RecommendResolveRelationalWins}
		}
	}

	return report, nil
}

// CachedCheck serves hot read paths: report cache hit means zero store
// access. Every write path invalidates the key first, so a cached value is
// never older than the last write.
func (e *Engine) CachedCheck(ctx context.Context, proposalId int) (*ConsistencyReport, error) {
	return utils.GetOrCompute(utils.ProposalCacheKey(proposalId), utils.GetCacheLifespan(),
		func() (*ConsistencyReport, error) {
			return e.Check(ctx, proposalId)
		})
}
