package models

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mmdatafocus/proposals_backend/config"
	"github.com/mmdatafocus/proposals_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var validate = validator.New()

// Proposal is the authoritative record. Every field that also exists on the
// document mirror is owned here; the mirror may only diverge transiently.
type Proposal struct {
	ID               int             `gorm:"primary_key" json:"id"`
	OrganizationName string          `json:"organization_name"`
	ContactName      string          `json:"contact_name"`
	ContactEmail     string          `json:"contact_email"`
	ContactPhone     string          `json:"contact_phone"`
	EventName        string          `json:"event_name"`
	EventLocation    string          `json:"event_location"`
	EventDate        time.Time       `json:"event_date"`
	RequestedBudget  decimal.Decimal `gorm:"type:decimal(13,2)" json:"requested_budget"`
	Status           ProposalStatus  `json:"status"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

type NewProposal struct {
	OrganizationName string          `json:"organization_name" validate:"required"`
	ContactName      string          `json:"contact_name" validate:"required"`
	ContactEmail     string          `json:"contact_email" validate:"required,email"`
	ContactPhone     string          `json:"contact_phone"`
	EventName        string          `json:"event_name" validate:"required"`
	EventLocation    string          `json:"event_location"`
	EventDate        time.Time       `json:"event_date" validate:"required"`
	RequestedBudget  decimal.Decimal `json:"requested_budget"`
}

// for create
func (input *NewProposal) MapInput() (*Proposal, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	phone, err := utils.NormalizePhoneNumber(input.ContactPhone, utils.CountryCode)
	if err != nil {
		return nil, err
	}
	if input.RequestedBudget.IsNegative() {
		return nil, errors.New("requested budget cannot be negative")
	}
	return &Proposal{
		OrganizationName: input.OrganizationName,
		ContactName:      input.ContactName,
		ContactEmail:     input.ContactEmail,
		ContactPhone:     phone,
		EventName:        input.EventName,
		EventLocation:    input.EventLocation,
		EventDate:        input.EventDate,
		RequestedBudget:  input.RequestedBudget,
		Status:           ProposalStatusDraft,
	}, nil
}

// map for updating
// db.Model(m).Updates(...)
func (input *NewProposal) Fillable() (map[string]interface{}, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	phone, err := utils.NormalizePhoneNumber(input.ContactPhone, utils.CountryCode)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"OrganizationName": input.OrganizationName,
		"ContactName":      input.ContactName,
		"ContactEmail":     input.ContactEmail,
		"ContactPhone":     phone,
		"EventName":        input.EventName,
		"EventLocation":    input.EventLocation,
		"EventDate":        input.EventDate,
		"RequestedBudget":  input.RequestedBudget,
	}, nil
}

func (p *Proposal) Store(tx *gorm.DB, ctx context.Context) error {
	if err := tx.WithContext(ctx).Create(&p).Error; err != nil {
		return err
	}
	return utils.InvalidateProposalCache(p.ID)
}

func (p *Proposal) Update(tx *gorm.DB, ctx context.Context, fillable map[string]interface{}) error {
	if err := tx.WithContext(ctx).Model(&p).Updates(fillable).Error; err != nil {
		return err
	}
	return utils.InvalidateProposalCache(p.ID)
}

func (p *Proposal) UpdateStatus(tx *gorm.DB, ctx context.Context, status ProposalStatus) error {
	if !status.IsValid() {
		return errors.New("invalid proposal status")
	}
	if err := tx.WithContext(ctx).Model(&p).Update("Status", status).Error; err != nil {
		return err
	}
	return utils.InvalidateProposalCache(p.ID)
}

// may return ErrProposalNotFoundRelational
func GetProposal(ctx context.Context, id int) (*Proposal, error) {
	var result Proposal
	db := config.GetDB()
	if err := db.WithContext(ctx).First(&result, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrProposalNotFoundRelational
		}
		return nil, err
	}
	return &result, nil
}

// GetProposalForUpdate takes a row lock so conflict resolution can read the
// authoritative record without racing a concurrent status change. Must run
// inside the caller's transaction.
func GetProposalForUpdate(tx *gorm.DB, ctx context.Context, id int) (*Proposal, error) {
	var result Proposal
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&result, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrProposalNotFoundRelational
		}
		return nil, err
	}
	return &result, nil
}

// ListProposalIdsUpdatedSince drives the scheduled audit sweep.
func ListProposalIdsUpdatedSince(ctx context.Context, since time.Time, limit int) ([]int, error) {
	if limit <= 0 {
		limit = 200
	}
	var ids []int
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&Proposal{}).
		Where("updated_at >= ?", since).
		Order("updated_at ASC").
		Limit(limit).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
