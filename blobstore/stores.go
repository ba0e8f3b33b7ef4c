package blobstore

import (
	"context"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	"github.com/mmdatafocus/proposals_backend/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type gcsObjects struct {
	client *storage.Client
	bucket string
}

func (g *gcsObjects) Write(ctx context.Context, key, contentType string, metadata map[string]string, data []byte) (int64, error) {
	wc := g.client.Bucket(g.bucket).Object(key).NewWriter(ctx)
	wc.ContentType = contentType
	wc.Metadata = metadata

	if _, err := wc.Write(data); err != nil {
		return 0, err
	}
	if err := wc.Close(); err != nil {
		return 0, err
	}

	// Close succeeded, but re-check the stored object independently; the
	// writer's attrs are only as reliable as its completion callback.
	attrs, err := g.client.Bucket(g.bucket).Object(key).Attrs(ctx)
	if err != nil {
		return 0, err
	}
	return attrs.Generation, nil
}

type firestoreDescriptors struct {
	client *firestore.Client
}

func (s *firestoreDescriptors) Create(ctx context.Context, fd *models.FileDescriptor) (string, error) {
	ref, _, err := s.client.Collection(models.FileDescriptorCollection).Add(ctx, fd)
	if err != nil {
		return "", err
	}
	return ref.ID, nil
}

func (s *firestoreDescriptors) Get(ctx context.Context, id string) (*models.FileDescriptor, error) {
	snap, err := s.client.Collection(models.FileDescriptorCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, err
	}
	var fd models.FileDescriptor
	if err := snap.DataTo(&fd); err != nil {
		return nil, err
	}
	fd.ID = snap.Ref.ID
	return &fd, nil
}

// ListDescriptors returns all descriptors ingested for a proposal, consumed
// by route handlers building file-metadata responses. Append-only: a
// proposal references never fewer descriptors than were successfully
// ingested.
func (p *Pipeline) ListDescriptors(ctx context.Context, proposalId int) ([]*models.FileDescriptor, error) {
	fs, ok := p.descriptors.(*firestoreDescriptors)
	if !ok {
		return nil, nil
	}
	snaps, err := fs.client.Collection(models.FileDescriptorCollection).
		Where("metadata.proposalId", "==", proposalId).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	results := make([]*models.FileDescriptor, 0, len(snaps))
	for _, snap := range snaps {
		var fd models.FileDescriptor
		if err := snap.DataTo(&fd); err != nil {
			return nil, err
		}
		fd.ID = snap.Ref.ID
		results = append(results, &fd)
	}
	return results, nil
}
