package models

import "time"

// FileMetadata is the descriptor's metadata bag. Explicit fields, not a
// loose map; unknown extra fields in stored documents are a validation
// warning, not silent pass-through.
type FileMetadata struct {
	ProposalId       *int      `firestore:"proposalId,omitempty" json:"proposalId,omitempty"`
	FileType         FileType  `firestore:"fileType" json:"fileType"`
	OrganizationName string    `firestore:"organizationName" json:"organizationName"`
	OriginalName     string    `firestore:"originalName" json:"originalName"`
	MimeType         string    `firestore:"mimeType" json:"mimeType"`
	FileSize         int64     `firestore:"fileSize" json:"fileSize"`
	UploadedAt       time.Time `firestore:"uploadedAt" json:"uploadedAt"`
}

// FileDescriptor describes one stored blob. Created exactly once per
// successful ingestion and immutable thereafter; a re-upload gets a fresh
// object key and a fresh descriptor id, it never mutates an old one.
type FileDescriptor struct {
	ID                 string       `firestore:"-" json:"id"` // Firestore doc id, store-assigned
	ObjectKey          string       `firestore:"objectKey" json:"objectKey"`
	ThumbnailObjectKey string       `firestore:"thumbnailObjectKey,omitempty" json:"thumbnailObjectKey,omitempty"`
	FileName           string       `firestore:"fileName" json:"fileName"` // human-readable, debugging aid only
	ContentType        string       `firestore:"contentType" json:"contentType"`
	Length             int64        `firestore:"length" json:"length"`
	Generation         int64        `firestore:"generation" json:"generation"` // GCS object generation
	UploadedAt         time.Time    `firestore:"uploadedAt" json:"uploadedAt"`
	Metadata           FileMetadata `firestore:"metadata" json:"metadata"`
}
