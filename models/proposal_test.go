package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func validInput() NewProposal {
	return NewProposal{
		OrganizationName: "Robotics Club",
		ContactName:      "Aye Chan",
		ContactEmail:     "aye.chan@example.org",
		ContactPhone:     "09790000001",
		EventName:        "Annual Robotics Expo",
		EventLocation:    "Main Hall",
		EventDate:        time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC),
		RequestedBudget:  decimal.NewFromInt(1500),
	}
}

func TestNewProposal_MapInput(t *testing.T) {
	input := validInput()
	p, err := input.MapInput()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Status != ProposalStatusDraft {
		t.Fatalf("new proposals must start as draft, got %s", p.Status)
	}
	// Local MM mobile number normalized to E.164.
	if p.ContactPhone != "+959790000001" {
		t.Fatalf("phone not normalized: %s", p.ContactPhone)
	}
}

func TestNewProposal_MapInputRejectsInvalid(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*NewProposal)
	}{
		{"missing organization", func(in *NewProposal) { in.OrganizationName = "" }},
		{"bad email", func(in *NewProposal) { in.ContactEmail = "not-an-email" }},
		{"bad phone", func(in *NewProposal) { in.ContactPhone = "12" }},
		{"negative budget", func(in *NewProposal) { in.RequestedBudget = decimal.NewFromInt(-5) }},
		{"zero event date", func(in *NewProposal) { in.EventDate = time.Time{} }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := validInput()
			tc.mutate(&input)
			if _, err := input.MapInput(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestProposalStatus_IsValid(t *testing.T) {
	for _, s := range []ProposalStatus{ProposalStatusDraft, ProposalStatusPending, ProposalStatusApproved, ProposalStatusDenied, ProposalStatusRevisionRequested} {
		if !s.IsValid() {
			t.Fatalf("%s should be valid", s)
		}
	}
	if ProposalStatus("archived").IsValid() {
		t.Fatal("unknown status accepted")
	}
}

func TestProposalDocument_RoundTrip(t *testing.T) {
	p := &Proposal{
		ID:               21,
		OrganizationName: "Robotics Club",
		ContactName:      "Aye Chan",
		ContactEmail:     "aye.chan@example.org",
		ContactPhone:     "+959790000001",
		EventName:        "Annual Robotics Expo",
		EventLocation:    "Main Hall",
		EventDate:        time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC),
		RequestedBudget:  decimal.RequireFromString("1500.50"),
		Status:           ProposalStatusPending,
	}

	doc := ProposalDocumentFromRecord(p, time.Now().UTC())
	if doc.DocID() != "21" {
		t.Fatalf("unexpected doc id: %s", doc.DocID())
	}
	if doc.RequestedBudget != "1500.50" {
		t.Fatalf("budget not fixed to two decimals: %s", doc.RequestedBudget)
	}

	back, err := doc.ToRecord()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if back.ID != p.ID || back.Status != p.Status || !back.RequestedBudget.Equal(p.RequestedBudget) {
		t.Fatalf("round trip diverged: %+v", back)
	}
	if !back.EventDate.Equal(p.EventDate) {
		t.Fatalf("event date diverged: %v", back.EventDate)
	}
}

func TestProposalDocument_ToRecordRejectsBadBudget(t *testing.T) {
	doc := &ProposalDocument{ProposalId: 1, RequestedBudget: "lots"}
	if _, err := doc.ToRecord(); err == nil {
		t.Fatal("expected parse error")
	}
}

// Firestore documents carry no schema; a corrupted mirror must never repair
// the relational side with garbage contact fields.
func TestProposalDocument_ToRecordRejectsBadContactFields(t *testing.T) {
	doc := &ProposalDocument{ProposalId: 1, ContactEmail: "not-an-email"}
	if _, err := doc.ToRecord(); err == nil {
		t.Fatal("expected email validation error")
	}

	doc = &ProposalDocument{ProposalId: 1, ContactPhone: "12"}
	if _, err := doc.ToRecord(); err == nil {
		t.Fatal("expected phone validation error")
	}

	// Empty contact fields stay optional.
	doc = &ProposalDocument{ProposalId: 1, Status: "draft"}
	if _, err := doc.ToRecord(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSyncAudit_Fields(t *testing.T) {
	resolved := []ResolvedField{{Field: "status", OldValue: "pending", NewValue: "approved"}}
	audit, err := NewSyncAudit(9, time.Now().UTC(), resolved, "corr-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := audit.Fields()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0] != resolved[0] {
		t.Fatalf("fields did not round trip: %+v", got)
	}
}
