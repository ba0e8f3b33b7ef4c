package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"strings"
	"testing"

	"github.com/mmdatafocus/proposals_backend/config"
	"github.com/mmdatafocus/proposals_backend/models"
	"github.com/mmdatafocus/proposals_backend/utils"
)

type fakeObjects struct {
	writes   map[string][]byte
	writeErr error
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{writes: map[string][]byte{}}
}

func (f *fakeObjects) Write(ctx context.Context, key, contentType string, metadata map[string]string, data []byte) (int64, error) {
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	f.writes[key] = data
	return int64(len(f.writes)), nil
}

type fakeDescriptors struct {
	created   map[string]*models.FileDescriptor
	nextId    int
	createErr error
	getErr    error
	// dropOnGet simulates a write acknowledged by the stream that never
	// became durable: Create succeeds but the re-read finds nothing.
	dropOnGet bool
}

func newFakeDescriptors() *fakeDescriptors {
	return &fakeDescriptors{created: map[string]*models.FileDescriptor{}}
}

func (f *fakeDescriptors) Create(ctx context.Context, fd *models.FileDescriptor) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.nextId++
	id := fmt.Sprintf("fd-%d", f.nextId)
	cp := *fd
	f.created[id] = &cp
	return id, nil
}

func (f *fakeDescriptors) Get(ctx context.Context, id string) (*models.FileDescriptor, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.dropOnGet {
		return nil, nil
	}
	fd, ok := f.created[id]
	if !ok {
		return nil, nil
	}
	cp := *fd
	return &cp, nil
}

func newTestPipeline() (*Pipeline, *fakeObjects, *fakeDescriptors) {
	fo := newFakeObjects()
	fd := newFakeDescriptors()
	return &Pipeline{objects: fo, descriptors: fd, logger: config.GetLogger()}, fo, fd
}

func pdfUpload(name string) Upload {
	data := []byte("%PDF-1.4 test payload")
	return Upload{OriginalName: name, MimeType: "application/pdf", Size: int64(len(data)), Data: data}
}

func TestIngest_Success(t *testing.T) {
	p, fo, _ := newTestPipeline()
	proposalId := 12

	fd, err := p.Ingest(context.Background(), pdfUpload("budget plan.pdf"), models.FileTypeProposalDocument, "Robotics Club", &proposalId)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fd.ID == "" {
		t.Fatal("descriptor id not set from the store-assigned id")
	}
	if !strings.HasPrefix(fd.ObjectKey, "proposals/") {
		t.Fatalf("unexpected object key: %s", fd.ObjectKey)
	}
	if fd.FileName != "Robotics_Club_proposalDocument.pdf" {
		t.Fatalf("unexpected file name: %s", fd.FileName)
	}
	if fd.Generation == 0 {
		t.Fatal("blob generation not recorded")
	}
	if fd.Metadata.ProposalId == nil || *fd.Metadata.ProposalId != 12 {
		t.Fatalf("proposal id not carried on metadata: %+v", fd.Metadata)
	}
	if len(fo.writes) != 1 {
		t.Fatalf("expected one object write, got %d", len(fo.writes))
	}
	if _, ok := fo.writes[fd.ObjectKey]; !ok {
		t.Fatalf("descriptor key %s does not match the written object", fd.ObjectKey)
	}
}

// All-or-nothing: when the post-write descriptor lookup comes back empty the
// ingestion must fail with the verification sentinel and return no descriptor.
func TestIngest_VerificationMissFailsLoudly(t *testing.T) {
	p, _, fd := newTestPipeline()
	fd.dropOnGet = true

	got, err := p.Ingest(context.Background(), pdfUpload("report.pdf"), models.FileTypeSupporting, "Chess Club", nil)
	if !errors.Is(err, utils.ErrIngestionVerificationFailed) {
		t.Fatalf("expected ErrIngestionVerificationFailed, got %v", err)
	}
	if got != nil {
		t.Fatalf("no descriptor may be returned on verification failure, got %+v", got)
	}
}

func TestIngest_VerificationErrorFailsLoudly(t *testing.T) {
	p, _, fd := newTestPipeline()
	fd.getErr = errors.New("unavailable")

	_, err := p.Ingest(context.Background(), pdfUpload("report.pdf"), models.FileTypeSupporting, "Chess Club", nil)
	if !errors.Is(err, utils.ErrIngestionVerificationFailed) {
		t.Fatalf("expected ErrIngestionVerificationFailed, got %v", err)
	}
}

func TestIngest_StreamFailureWritesNoDescriptor(t *testing.T) {
	p, _, fd := newTestPipeline()
	p.objects.(*fakeObjects).writeErr = errors.New("stream reset")

	_, err := p.Ingest(context.Background(), pdfUpload("report.pdf"), models.FileTypeSupporting, "Chess Club", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if len(fd.created) != 0 {
		t.Fatalf("descriptor written despite stream failure: %v", fd.created)
	}
}

func TestIngest_RejectsUnsupportedMime(t *testing.T) {
	p, fo, fd := newTestPipeline()
	up := Upload{OriginalName: "run.exe", MimeType: "application/octet-stream", Data: []byte("MZ....")}

	_, err := p.Ingest(context.Background(), up, models.FileTypeSupporting, "Chess Club", nil)
	if err == nil || !strings.Contains(err.Error(), "unsupported file type") {
		t.Fatalf("expected unsupported-type error, got %v", err)
	}
	if len(fo.writes) != 0 || len(fd.created) != 0 {
		t.Fatal("rejected upload must touch neither store")
	}
}

func TestIngest_OfficeZipContainerByExtension(t *testing.T) {
	p, _, _ := newTestPipeline()
	up := Upload{OriginalName: "budget.xlsx", MimeType: "application/zip", Data: []byte("PK\x03\x04fake")}

	fd, err := p.Ingest(context.Background(), up, models.FileTypeBudgetSheet, "Chess Club", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fd.ContentType != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Fatalf("unexpected content type: %s", fd.ContentType)
	}
}

// A retried upload under the same logical name must never reuse the earlier
// attempt's identity.
func TestIngest_FreshIdentityPerAttempt(t *testing.T) {
	p, fo, _ := newTestPipeline()

	first, err := p.Ingest(context.Background(), pdfUpload("flyer.pdf"), models.FileTypeEventFlyer, "Drama Club", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := p.Ingest(context.Background(), pdfUpload("flyer.pdf"), models.FileTypeEventFlyer, "Drama Club", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.ObjectKey == second.ObjectKey {
		t.Fatalf("object key reused across attempts: %s", first.ObjectKey)
	}
	if first.ID == second.ID {
		t.Fatalf("descriptor id reused across attempts: %s", first.ID)
	}
	if len(fo.writes) != 2 {
		t.Fatalf("expected two independent objects, got %d", len(fo.writes))
	}
}

func TestIngest_ImageGetsThumbnail(t *testing.T) {
	p, fo, _ := newTestPipeline()

	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 512, 384))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	up := Upload{OriginalName: "flyer.png", MimeType: "image/png", Data: buf.Bytes()}

	fd, err := p.Ingest(context.Background(), up, models.FileTypeEventFlyer, "Drama Club", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fd.ThumbnailObjectKey == "" {
		t.Fatal("expected a thumbnail key for an image upload")
	}
	if !strings.HasSuffix(fd.ThumbnailObjectKey, "_thumb.jpg") {
		t.Fatalf("unexpected thumbnail key: %s", fd.ThumbnailObjectKey)
	}
	if len(fo.writes) != 2 {
		t.Fatalf("expected original + thumbnail writes, got %d", len(fo.writes))
	}
}

func TestComposeObjectName(t *testing.T) {
	got := ComposeObjectName("Robotics Club", models.FileTypeProposalDocument, ".PDF")
	if got != "Robotics_Club_proposalDocument.pdf" {
		t.Fatalf("unexpected name: %s", got)
	}
	if got := ComposeObjectName("  ", models.FileTypeSupporting, ".pdf"); got != "unknown_supporting.pdf" {
		t.Fatalf("unexpected fallback name: %s", got)
	}
}
