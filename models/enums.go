package models

// ProposalStatus is the review lifecycle of a proposal. The relational store
// owns this field; the document mirror only copies it.
type ProposalStatus string

const (
	ProposalStatusDraft             ProposalStatus = "draft"
	ProposalStatusPending           ProposalStatus = "pending"
	ProposalStatusApproved          ProposalStatus = "approved"
	ProposalStatusDenied            ProposalStatus = "denied"
	ProposalStatusRevisionRequested ProposalStatus = "revision_requested"
)

func (s ProposalStatus) IsValid() bool {
	switch s {
	case ProposalStatusDraft, ProposalStatusPending, ProposalStatusApproved,
		ProposalStatusDenied, ProposalStatusRevisionRequested:
		return true
	}
	return false
}

// FileType classifies an uploaded attachment.
type FileType string

const (
	FileTypeProposalDocument FileType = "proposalDocument"
	FileTypeBudgetSheet      FileType = "budgetSheet"
	FileTypeEventFlyer       FileType = "eventFlyer"
	FileTypeSupporting       FileType = "supporting"
)
