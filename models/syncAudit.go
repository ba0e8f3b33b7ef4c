package models

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mmdatafocus/proposals_backend/config"
	"gorm.io/gorm"
)

// SyncAudit is the durable record of one conflict resolution: which proposal,
// when, and exactly which fields were collapsed to the relational value.
type SyncAudit struct {
	ID            int       `gorm:"primary_key" json:"id"`
	ProposalId    int       `gorm:"index" json:"proposal_id"`
	ResolvedAt    time.Time `json:"resolved_at"`
	FieldsJSON    []byte    `gorm:"type:json" json:"fields_json"`
	CorrelationId string    `json:"correlation_id"`
	CreatedAt     time.Time `json:"created_at"`
}

type ResolvedField struct {
	Field    string `json:"field"`
	OldValue string `json:"oldValue"`
	NewValue string `json:"newValue"`
}

func NewSyncAudit(proposalId int, resolvedAt time.Time, fields []ResolvedField, correlationId string) (*SyncAudit, error) {
	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	return &SyncAudit{
		ProposalId:    proposalId,
		ResolvedAt:    resolvedAt,
		FieldsJSON:    fieldsJSON,
		CorrelationId: correlationId,
	}, nil
}

func (a *SyncAudit) Store(tx *gorm.DB, ctx context.Context) error {
	return tx.WithContext(ctx).Create(&a).Error
}

func (a *SyncAudit) Fields() ([]ResolvedField, error) {
	var fields []ResolvedField
	if err := json.Unmarshal(a.FieldsJSON, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// ListSyncAudits returns the most recent resolutions for a proposal,
// consumed by admin-facing audit endpoints.
func ListSyncAudits(ctx context.Context, proposalId int, limit int) ([]*SyncAudit, error) {
	if limit <= 0 {
		limit = config.SearchLimit
	}
	var results []*SyncAudit
	db := config.GetDB()
	if err := db.WithContext(ctx).
		Where("proposal_id = ?", proposalId).
		Order("resolved_at DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
