package consistency

import (
	"context"
	"errors"

	"cloud.google.com/go/firestore"
	"github.com/go-sql-driver/mysql"
	"github.com/mmdatafocus/proposals_backend/config"
	"github.com/mmdatafocus/proposals_backend/docstore"
	"github.com/mmdatafocus/proposals_backend/models"
	"github.com/mmdatafocus/proposals_backend/utils"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// RelationalStore and DocumentStore are the engine's two sides. Production
// wiring is gorm + Firestore; tests swap in fakes.
type RelationalStore interface {
	// GetProposal returns utils.ErrProposalNotFoundRelational when missing.
	GetProposal(ctx context.Context, proposalId int) (*models.Proposal, error)

	// UpsertFromDocument repairs the anomalous document-only case.
	UpsertFromDocument(ctx context.Context, doc *models.ProposalDocument) (SyncOperation, int64, error)

	RecordResolution(ctx context.Context, audit *models.SyncAudit) error
}

type DocumentStore interface {
	// GetDocument returns utils.ErrProposalNotFoundDocument when missing.
	GetDocument(ctx context.Context, proposalId int) (*models.ProposalDocument, error)

	// SetDocument writes the full projection (insert or full overwrite).
	SetDocument(ctx context.Context, doc *models.ProposalDocument) error

	// UpdateDocumentFields applies a partial field update to an existing doc.
	UpdateDocumentFields(ctx context.Context, proposalId int, fields map[string]interface{}) error
}

type gormRelationalStore struct{}

func (gormRelationalStore) GetProposal(ctx context.Context, proposalId int) (*models.Proposal, error) {
	return models.GetProposal(ctx, proposalId)
}

func (gormRelationalStore) UpsertFromDocument(ctx context.Context, doc *models.ProposalDocument) (SyncOperation, int64, error) {
	record, err := doc.ToRecord()
	if err != nil {
		return "", 0, err
	}

	db := config.GetDB()
	var count int64
	if err := db.WithContext(ctx).Model(&models.Proposal{}).
		Where("id = ?", record.ID).Count(&count).Error; err != nil {
		return "", 0, err
	}

	if count == 0 {
		err := db.WithContext(ctx).Create(record).Error
		if err == nil {
			return SyncOperationInsert, 1, nil
		}
		var mysqlErr *mysql.MySQLError
		if !errors.As(err, &mysqlErr) || mysqlErr.Number != 1062 {
			return "", 0, err
		}
		// Lost a create race with a concurrent sync; fall through to update.
	}

	res := db.WithContext(ctx).Model(&models.Proposal{}).
		Where("id = ?", record.ID).
		Updates(map[string]interface{}{
			"OrganizationName": record.OrganizationName,
			"ContactName":      record.ContactName,
			"ContactEmail":     record.ContactEmail,
			"ContactPhone":     record.ContactPhone,
			"EventName":        record.EventName,
			"EventLocation":    record.EventLocation,
			"EventDate":        record.EventDate,
			"RequestedBudget":  record.RequestedBudget,
			"Status":           record.Status,
		})
	if res.Error != nil {
		return "", 0, res.Error
	}
	return SyncOperationUpdate, res.RowsAffected, nil
}

func (gormRelationalStore) RecordResolution(ctx context.Context, audit *models.SyncAudit) error {
	return audit.Store(config.GetDB(), ctx)
}

type firestoreDocumentStore struct {
	handle *docstore.Handle
}

func (s *firestoreDocumentStore) collection() *firestore.CollectionRef {
	return s.handle.Firestore.Collection(models.ProposalCollection)
}

func (s *firestoreDocumentStore) GetDocument(ctx context.Context, proposalId int) (*models.ProposalDocument, error) {
	snap, err := s.collection().Doc(models.ProposalDocID(proposalId)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, utils.ErrProposalNotFoundDocument
		}
		return nil, err
	}
	var doc models.ProposalDocument
	if err := snap.DataTo(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *firestoreDocumentStore) SetDocument(ctx context.Context, doc *models.ProposalDocument) error {
	_, err := s.collection().Doc(doc.DocID()).Set(ctx, doc)
	return err
}

func (s *firestoreDocumentStore) UpdateDocumentFields(ctx context.Context, proposalId int, fields map[string]interface{}) error {
	updates := make([]firestore.Update, 0, len(fields))
	for path, value := range fields {
		updates = append(updates, firestore.Update{Path: path, Value: value})
	}
	_, err := s.collection().Doc(models.ProposalDocID(proposalId)).Update(ctx, updates)
	return err
}

