package consistency

import (
	"time"

	"github.com/mmdatafocus/proposals_backend/models"
)

// sharedField is one field present in both schemas. The single table below
// drives the checker's diff, the directional sync and conflict resolution,
// so the three can never disagree about which fields are shared or how they
// compare.
type sharedField struct {
	// Name is the document-store field name, also used in reports.
	Name string

	// Canonical comparison forms. Two stores agree on a field iff these
	// strings are equal.
	FromRecord   func(*models.Proposal) string
	FromDocument func(*models.ProposalDocument) string

	// RecordValue is the typed value written to the document store when the
	// relational side wins.
	RecordValue func(*models.Proposal) interface{}
}

var sharedFields = []sharedField{
	{
		Name:         "organizationName",
		FromRecord:   func(p *models.Proposal) string { return p.OrganizationName },
		FromDocument: func(d *models.ProposalDocument) string { return d.OrganizationName },
		RecordValue:  func(p *models.Proposal) interface{} { return p.OrganizationName },
	},
	{
		Name:         "contactName",
		FromRecord:   func(p *models.Proposal) string { return p.ContactName },
		FromDocument: func(d *models.ProposalDocument) string { return d.ContactName },
		RecordValue:  func(p *models.Proposal) interface{} { return p.ContactName },
	},
	{
		Name:         "contactEmail",
		FromRecord:   func(p *models.Proposal) string { return p.ContactEmail },
		FromDocument: func(d *models.ProposalDocument) string { return d.ContactEmail },
		RecordValue:  func(p *models.Proposal) interface{} { return p.ContactEmail },
	},
	{
		Name:         "contactPhone",
		FromRecord:   func(p *models.Proposal) string { return p.ContactPhone },
		FromDocument: func(d *models.ProposalDocument) string { return d.ContactPhone },
		RecordValue:  func(p *models.Proposal) interface{} { return p.ContactPhone },
	},
	{
		Name:         "eventName",
		FromRecord:   func(p *models.Proposal) string { return p.EventName },
		FromDocument: func(d *models.ProposalDocument) string { return d.EventName },
		RecordValue:  func(p *models.Proposal) interface{} { return p.EventName },
	},
	{
		Name:         "eventLocation",
		FromRecord:   func(p *models.Proposal) string { return p.EventLocation },
		FromDocument: func(d *models.ProposalDocument) string { return d.EventLocation },
		RecordValue:  func(p *models.Proposal) interface{} { return p.EventLocation },
	},
	{
		Name:         "eventDate",
		FromRecord:   func(p *models.Proposal) string { return canonicalTime(p.EventDate) },
		FromDocument: func(d *models.ProposalDocument) string { return canonicalTime(d.EventDate) },
		RecordValue:  func(p *models.Proposal) interface{} { return p.EventDate.UTC() },
	},
	{
		Name:         "requestedBudget",
		FromRecord:   func(p *models.Proposal) string { return p.RequestedBudget.StringFixed(2) },
		FromDocument: func(d *models.ProposalDocument) string { return canonicalBudget(d.RequestedBudget) },
		RecordValue:  func(p *models.Proposal) interface{} { return p.RequestedBudget.StringFixed(2) },
	},
	{
		Name:         "status",
		FromRecord:   func(p *models.Proposal) string { return string(p.Status) },
		FromDocument: func(d *models.ProposalDocument) string { return d.Status },
		RecordValue:  func(p *models.Proposal) interface{} { return string(p.Status) },
	},
}

// MySQL DATETIME keeps second precision; truncate both sides so a mirror
// round-trip never reads as drift.
func canonicalTime(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(time.RFC3339)
}

func canonicalBudget(s string) string {
	if s == "" {
		return "0.00"
	}
	return s
}

// diffSharedFields returns every shared field on which the two sides
// disagree.
func diffSharedFields(p *models.Proposal, d *models.ProposalDocument) []FieldDifference {
	var diffs []FieldDifference
	for _, f := range sharedFields {
		rv := f.FromRecord(p)
		dv := f.FromDocument(d)
		if rv != dv {
			diffs = append(diffs, FieldDifference{Field: f.Name, RelationalValue: rv, DocumentValue: dv})
		}
	}
	return diffs
}
