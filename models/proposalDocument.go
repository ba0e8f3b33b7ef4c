package models

import (
	"fmt"
	"strconv"
	"time"

	"github.com/mmdatafocus/proposals_backend/utils"
	"github.com/shopspring/decimal"
)

// Firestore collections.
const (
	ProposalCollection       = "proposals"
	FileDescriptorCollection = "fileDescriptors"
)

// ProposalDocument is the denormalized Firestore projection of a Proposal.
// Written only by the synchronizer, never treated as the source of truth for
// fields that exist on the relational record.
type ProposalDocument struct {
	ProposalId       int       `firestore:"proposalId" json:"proposalId"`
	OrganizationName string    `firestore:"organizationName" json:"organizationName"`
	ContactName      string    `firestore:"contactName" json:"contactName"`
	ContactEmail     string    `firestore:"contactEmail" json:"contactEmail"`
	ContactPhone     string    `firestore:"contactPhone" json:"contactPhone"`
	EventName        string    `firestore:"eventName" json:"eventName"`
	EventLocation    string    `firestore:"eventLocation" json:"eventLocation"`
	EventDate        time.Time `firestore:"eventDate" json:"eventDate"`
	RequestedBudget  string    `firestore:"requestedBudget" json:"requestedBudget"`
	Status           string    `firestore:"status" json:"status"`
	CreatedAt        time.Time `firestore:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time `firestore:"updatedAt" json:"updatedAt"`

	// Operational markers, owned by the document side.
	LastSyncedFromRelational time.Time  `firestore:"lastSyncedFromRelational" json:"lastSyncedFromRelational"`
	LastConflictResolution   *time.Time `firestore:"lastConflictResolution,omitempty" json:"lastConflictResolution,omitempty"`
}

// DocID keys the mirror by the relational primary key.
func (d *ProposalDocument) DocID() string {
	return strconv.Itoa(d.ProposalId)
}

func ProposalDocID(proposalId int) string {
	return strconv.Itoa(proposalId)
}

// ProposalDocumentFromRecord builds the projection, stamping the sync marker.
func ProposalDocumentFromRecord(p *Proposal, syncedAt time.Time) *ProposalDocument {
	return &ProposalDocument{
		ProposalId:               p.ID,
		OrganizationName:         p.OrganizationName,
		ContactName:              p.ContactName,
		ContactEmail:             p.ContactEmail,
		ContactPhone:             p.ContactPhone,
		EventName:                p.EventName,
		EventLocation:            p.EventLocation,
		EventDate:                p.EventDate,
		RequestedBudget:          p.RequestedBudget.StringFixed(2),
		Status:                   string(p.Status),
		CreatedAt:                p.CreatedAt,
		UpdatedAt:                p.UpdatedAt,
		LastSyncedFromRelational: syncedAt,
	}
}

// ToRecord maps the mirror back into relational shape, for the anomalous
// document-exists/relational-missing repair direction. Firestore enforces no
// schema, so contact fields are validated before they repair the
// authoritative side.
func (d *ProposalDocument) ToRecord() (*Proposal, error) {
	if d.ContactEmail != "" && !utils.IsValidEmail(d.ContactEmail) {
		return nil, fmt.Errorf("document %d: invalid contact email %q", d.ProposalId, d.ContactEmail)
	}
	if d.ContactPhone != "" {
		if err := utils.ValidatePhoneNumber(d.ContactPhone, utils.CountryCode); err != nil {
			return nil, fmt.Errorf("document %d: invalid contact phone: %w", d.ProposalId, err)
		}
	}

	budget := decimal.Zero
	if d.RequestedBudget != "" {
		var err error
		budget, err = decimal.NewFromString(d.RequestedBudget)
		if err != nil {
			return nil, err
		}
	}
	return &Proposal{
		ID:               d.ProposalId,
		OrganizationName: d.OrganizationName,
		ContactName:      d.ContactName,
		ContactEmail:     d.ContactEmail,
		ContactPhone:     d.ContactPhone,
		EventName:        d.EventName,
		EventLocation:    d.EventLocation,
		EventDate:        d.EventDate,
		RequestedBudget:  budget,
		Status:           ProposalStatus(d.Status),
	}, nil
}
