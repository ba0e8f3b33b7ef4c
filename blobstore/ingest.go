package blobstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/proposals_backend/config"
	"github.com/mmdatafocus/proposals_backend/docstore"
	"github.com/mmdatafocus/proposals_backend/models"
	"github.com/mmdatafocus/proposals_backend/utils"
	"github.com/sirupsen/logrus"
)

const (
	// Whole-ingestion deadline for batch multi-file callers.
	ingestTimeout = 60 * time.Second
	// Fallback for a stalled write stream.
	streamTimeout = 30 * time.Second
	// Post-write descriptor lookup; missing within this window means the
	// ingestion outcome is unknown and must be reported as failed.
	lookupTimeout = 5 * time.Second
)

var allowedMimeTypes = map[string]bool{
	"application/pdf":          true,
	"application/msword":       true,
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":       true,
	"image/jpeg": true,
	"image/png":  true,
}

// Upload is the raw file buffer handed over by the (out of scope) HTTP layer.
type Upload struct {
	OriginalName string
	MimeType     string
	Size         int64
	Data         []byte
}

// objectWriter / descriptorStore are the pipeline's two seams: the stream
// writer and the descriptor verifier are composed sequentially, each with its
// own timeout, instead of trusting a single completion callback.
type objectWriter interface {
	Write(ctx context.Context, key, contentType string, metadata map[string]string, data []byte) (generation int64, err error)
}

type descriptorStore interface {
	Create(ctx context.Context, fd *models.FileDescriptor) (id string, err error)
	Get(ctx context.Context, id string) (*models.FileDescriptor, error)
}

type Pipeline struct {
	objects     objectWriter
	descriptors descriptorStore
	logger      *logrus.Logger
}

func NewPipeline(h *docstore.Handle, logger *logrus.Logger) *Pipeline {
	return &Pipeline{
		objects:     &gcsObjects{client: h.Storage, bucket: h.Bucket},
		descriptors: &firestoreDescriptors{client: h.Firestore},
		logger:      logger,
	}
}

// DefaultPipeline lazily initializes the document store handle. When the
// store cannot be reached the ingestion fails loudly with
// ErrStorageUnavailable; uploads are never silently dropped.
func DefaultPipeline(ctx context.Context) (*Pipeline, error) {
	h := docstore.Get()
	if h == nil {
		var err error
		h, err = docstore.ConnectWithRetry(ctx, docstore.DefaultMaxRetries)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", utils.ErrStorageUnavailable, err)
		}
	}
	return NewPipeline(h, config.GetLogger()), nil
}

// Ingest streams the buffer into the bucket and verifies the stored
// descriptor before declaring success. All-or-nothing per file: any step
// failure aborts the whole ingestion and no partial descriptor is returned.
func Ingest(ctx context.Context, upload Upload, fileType models.FileType, organizationLabel string, proposalId *int) (*models.FileDescriptor, error) {
	p, err := DefaultPipeline(ctx)
	if err != nil {
		return nil, err
	}
	return p.Ingest(ctx, upload, fileType, organizationLabel, proposalId)
}

func (p *Pipeline) Ingest(ctx context.Context, upload Upload, fileType models.FileType, organizationLabel string, proposalId *int) (*models.FileDescriptor, error) {
	ctx, cancel := context.WithTimeout(ctx, ingestTimeout)
	defer cancel()

	fd, err := p.ingest(ctx, upload, fileType, organizationLabel, proposalId)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) &&
			!errors.Is(err, utils.ErrIngestionVerificationFailed) {
			return nil, fmt.Errorf("%w: %v", utils.ErrIngestionTimeout, err)
		}
		return nil, err
	}
	return fd, nil
}

func (p *Pipeline) ingest(ctx context.Context, upload Upload, fileType models.FileType, organizationLabel string, proposalId *int) (*models.FileDescriptor, error) {
	if len(upload.Data) == 0 {
		return nil, errors.New("empty file buffer")
	}

	mimeType := upload.MimeType
	if mimeType == "" {
		mimeType = http.DetectContentType(upload.Data)
	}
	// Office formats are zip containers; trust the extension for those.
	if mimeType == "application/zip" {
		if strings.HasSuffix(upload.OriginalName, ".docx") {
			mimeType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
		} else if strings.HasSuffix(upload.OriginalName, ".xlsx") {
			mimeType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		}
	}
	if !allowedMimeTypes[mimeType] {
		return nil, fmt.Errorf("unsupported file type: %s", mimeType)
	}

	// The readable name helps operators; the uuid key + the store-assigned
	// descriptor id are the identity. A retried upload under the same logical
	// name therefore never collides with an earlier attempt.
	fileName := ComposeObjectName(organizationLabel, fileType, filepath.Ext(upload.OriginalName))
	objectKey := fmt.Sprintf("proposals/%s_%s", uuid.NewString(), fileName)

	uploadedAt := time.Now().UTC()
	metadata := map[string]string{
		"originalName":     upload.OriginalName,
		"organizationName": organizationLabel,
		"fileType":         string(fileType),
		"uploadedAt":       uploadedAt.Format(time.RFC3339),
		"fileSize":         fmt.Sprint(int64(len(upload.Data))),
		"mimeType":         mimeType,
	}
	if proposalId != nil {
		metadata["proposalId"] = fmt.Sprint(*proposalId)
	}

	streamCtx, cancelStream := context.WithTimeout(ctx, streamTimeout)
	generation, err := p.objects.Write(streamCtx, objectKey, mimeType, metadata, upload.Data)
	cancelStream()
	if err != nil {
		return nil, fmt.Errorf("blob stream write: %w", err)
	}

	thumbnailKey := p.writeThumbnail(ctx, objectKey, mimeType, upload.Data)

	fd := &models.FileDescriptor{
		ObjectKey:          objectKey,
		ThumbnailObjectKey: thumbnailKey,
		FileName:           fileName,
		ContentType:        mimeType,
		Length:             int64(len(upload.Data)),
		Generation:         generation,
		UploadedAt:         uploadedAt,
		Metadata: models.FileMetadata{
			ProposalId:       proposalId,
			FileType:         fileType,
			OrganizationName: organizationLabel,
			OriginalName:     upload.OriginalName,
			MimeType:         mimeType,
			FileSize:         int64(len(upload.Data)),
			UploadedAt:       uploadedAt,
		},
	}

	id, err := p.descriptors.Create(ctx, fd)
	if err != nil {
		return nil, fmt.Errorf("descriptor write: %w", err)
	}

	// The stream's completion signal is not trusted to prove durability.
	// Re-read the descriptor by its assigned id; not found within the lookup
	// window means the outcome is unknown and the caller must not assume the
	// file exists.
	lookupCtx, cancelLookup := context.WithTimeout(ctx, lookupTimeout)
	stored, err := p.descriptors.Get(lookupCtx, id)
	cancelLookup()
	if err != nil || stored == nil {
		if err != nil {
			return nil, fmt.Errorf("%w: descriptor %s: %v", utils.ErrIngestionVerificationFailed, id, err)
		}
		return nil, fmt.Errorf("%w: descriptor %s not found after stream completion", utils.ErrIngestionVerificationFailed, id)
	}

	// Normalize: the queried descriptor combined with caller-supplied fields.
	stored.ID = id
	stored.Metadata.ProposalId = proposalId
	stored.Metadata.FileType = fileType
	stored.Metadata.OrganizationName = organizationLabel
	return stored, nil
}

// ComposeObjectName builds the deterministic, human-readable part of the
// object key: {organizationLabel}_{fileType}{ext}. Debugging aid only, never
// a uniqueness key.
func ComposeObjectName(organizationLabel string, fileType models.FileType, ext string) string {
	label := strings.TrimSpace(organizationLabel)
	label = strings.ReplaceAll(label, " ", "_")
	label = strings.ReplaceAll(label, "/", "_")
	if label == "" {
		label = "unknown"
	}
	return fmt.Sprintf("%s_%s%s", label, fileType, strings.ToLower(ext))
}
