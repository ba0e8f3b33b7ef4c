package docstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	"github.com/mmdatafocus/proposals_backend/config"
	"github.com/mmdatafocus/proposals_backend/utils"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const (
	DefaultMaxRetries = 3
	probeTimeout      = 10 * time.Second
)

// Handle bundles the document store (Firestore) and its blob subsystem
// (GCS bucket). Safe for concurrent use; one successful connect is memoized
// process-wide.
type Handle struct {
	Firestore *firestore.Client
	Storage   *storage.Client
	Bucket    string
}

var (
	handle   *Handle
	handleMu sync.Mutex
)

// Get returns the memoized handle, or nil when the store has never been
// reachable. Callers treating nil as degraded mode must log the disablement.
func Get() *Handle {
	handleMu.Lock()
	defer handleMu.Unlock()
	return handle
}

// ConnectWithRetry opens Firestore + GCS and verifies liveness with a bounded
// probe, retrying with capped exponential backoff up to maxRetries attempts
// (DefaultMaxRetries when <= 0). The first successful handle wins; later
// callers reuse it instead of reconnecting.
func ConnectWithRetry(ctx context.Context, maxRetries int) (*Handle, error) {
	handleMu.Lock()
	defer handleMu.Unlock()

	if handle != nil {
		return handle, nil
	}
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	logger := config.GetLogger()
	policy := utils.DefaultConnectPolicy()
	policy.MaxAttempts = maxRetries

	var (
		h       *Handle
		attempt int
	)
	err := policy.Do(ctx, func(ctx context.Context) error {
		attempt++
		opened, err := open(ctx)
		if err == nil {
			err = probe(ctx, opened)
		}
		if err != nil {
			if opened != nil {
				opened.close()
			}
			logger.WithFields(logrus.Fields{
				"module":  "docstore",
				"attempt": attempt,
			}).Warnf("document store connect failed: %v", err)
			return err
		}
		h = opened
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w after %d attempts: %v%s",
			utils.ErrConnectionExhausted, maxRetries, err, connectChecklist)
	}

	handle = h
	registerHealthObservers(h, logger)
	logger.WithFields(logrus.Fields{
		"module":  "docstore",
		"attempt": attempt,
		"bucket":  h.Bucket,
	}).Info("document store connected")
	return handle, nil
}

// connectChecklist gives operators somewhere to start when the store stays
// unreachable.
const connectChecklist = `
document store unreachable, check:
  - network reachability from this host to firestore.googleapis.com / storage.googleapis.com
  - credentials (GOOGLE_APPLICATION_CREDENTIALS / FIRESTORE_CREDENTIALS_JSON / GCS_CREDENTIALS_JSON)
  - firewall / VPC egress rules for the service account
  - FIRESTORE_PROJECT_ID and GCS_BUCKET values`

func open(ctx context.Context) (*Handle, error) {
	projectID := firestoreProjectID()
	if projectID == "" {
		return nil, errors.New("FIRESTORE_PROJECT_ID/GOOGLE_CLOUD_PROJECT not set")
	}
	bucket := strings.TrimSpace(os.Getenv("GCS_BUCKET"))
	if bucket == "" {
		return nil, errors.New("GCS_BUCKET is required")
	}

	fsClient, err := newFirestoreClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}
	gcsClient, err := newStorageClient(ctx)
	if err != nil {
		fsClient.Close()
		return nil, fmt.Errorf("storage client: %w", err)
	}
	return &Handle{Firestore: fsClient, Storage: gcsClient, Bucket: bucket}, nil
}

// probe is the liveness check: a bounded Firestore collection listing (the
// closest thing the client exposes to an administrative ping) plus a bucket
// metadata read.
func probe(ctx context.Context, h *Handle) error {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	if _, err := h.Firestore.Collections(probeCtx).Next(); err != nil && err != iterator.Done {
		return fmt.Errorf("firestore probe: %w", err)
	}
	if _, err := h.Storage.Bucket(h.Bucket).Attrs(probeCtx); err != nil {
		return fmt.Errorf("gcs bucket %q probe: %w", h.Bucket, err)
	}
	return nil
}

// registerHealthObservers is passive logging only; it never alters control
// flow. The cloud clients manage their own pools, so health is observed by
// periodically re-running the probe.
func registerHealthObservers(h *Handle, logger *logrus.Logger) {
	interval := time.Duration(config.IntFromEnv("DOCSTORE_HEALTH_INTERVAL_SECONDS", 300)) * time.Second
	if interval <= 0 {
		return
	}
	go func() {
		for {
			time.Sleep(interval)
			if err := probe(context.Background(), h); err != nil {
				logger.WithField("module", "docstore").Warnf("document store health probe failed: %v", err)
			}
		}
	}()
}

func firestoreProjectID() string {
	if v := os.Getenv("FIRESTORE_PROJECT_ID"); v != "" {
		return v
	}
	if v := os.Getenv("GOOGLE_CLOUD_PROJECT"); v != "" {
		return v
	}
	if v := os.Getenv("GCP_PROJECT"); v != "" {
		return v
	}
	return ""
}

func newFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if credJSON := os.Getenv("FIRESTORE_CREDENTIALS_JSON"); strings.TrimSpace(credJSON) != "" {
		return firestore.NewClient(ctx, projectID, option.WithCredentialsJSON([]byte(credJSON)))
	}
	return firestore.NewClient(ctx, projectID)
}

func newStorageClient(ctx context.Context) (*storage.Client, error) {
	// Prefer ADC (Cloud Run service account / GOOGLE_APPLICATION_CREDENTIALS).
	// If you need to provide explicit JSON (e.g. locally), set GCS_CREDENTIALS_JSON.
	if credJSON := os.Getenv("GCS_CREDENTIALS_JSON"); strings.TrimSpace(credJSON) != "" {
		return storage.NewClient(ctx, option.WithCredentialsJSON([]byte(credJSON)))
	}
	return storage.NewClient(ctx)
}

func (h *Handle) close() {
	if h.Firestore != nil {
		h.Firestore.Close()
	}
	if h.Storage != nil {
		h.Storage.Close()
	}
}
