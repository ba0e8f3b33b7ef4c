package consistency

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/proposals_backend/config"
	"github.com/mmdatafocus/proposals_backend/models"
	"github.com/mmdatafocus/proposals_backend/utils"
	"github.com/sirupsen/logrus"
)

// AuditPubSubPayload asks the audit worker to reconcile one proposal.
type AuditPubSubPayload struct {
	ProposalId    int    `json:"proposal_id"`
	CorrelationId string `json:"correlation_id"`
}

type PubSubPushEnvelope struct {
	Message struct {
		Data      []byte `json:"data"`
		MessageId string `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

func auditTopicName() string {
	topicName := strings.TrimSpace(os.Getenv("CONSISTENCY_AUDIT_TOPIC"))
	if topicName == "" {
		topicName = "consistency-audit"
	}
	return topicName
}

// PublishAuditRequest queues a consistency pass for the proposal. Best
// effort: write paths call this after commit, and a lost message is caught
// by the scheduled sweep.
func PublishAuditRequest(ctx context.Context, proposalId int) error {
	client, err := config.GetClient(ctx)
	if err != nil {
		return err
	}

	topicName := auditTopicName()
	topic := client.Topic(topicName)
	if envBoolDefault("CONSISTENCY_AUDIT_CREATE_TOPIC", false) {
		topic, err = config.CreateTopicIfNotExists(client, topicName)
		if err != nil {
			return err
		}
	}

	payload := AuditPubSubPayload{
		ProposalId:    proposalId,
		CorrelationId: correlationIdFromContextOrNew(ctx),
	}
	data, _ := json.Marshal(payload)
	res := topic.Publish(ctx, &pubsub.Message{Data: data})
	_, err = res.Get(ctx)
	return err
}

// PubSubPushHandler is the audit worker's push endpoint. Always 204: a bad
// envelope is dropped, a failed sync is logged and redelivered by the
// subscription's own retry policy via the sweep.
func PubSubPushHandler(e *Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Status(204)
			return
		}

		var envelope PubSubPushEnvelope
		if err := json.Unmarshal(body, &envelope); err != nil {
			c.Status(204)
			return
		}

		var payload AuditPubSubPayload
		if err := json.Unmarshal(envelope.Message.Data, &payload); err != nil {
			c.Status(204)
			return
		}
		if payload.ProposalId == 0 {
			c.Status(204)
			return
		}

		ctx := c.Request.Context()
		if payload.CorrelationId != "" {
			ctx = utils.SetCorrelationIdInContext(ctx, payload.CorrelationId)
		}

		err = WithProposalLock(ctx, payload.ProposalId, func(ctx context.Context) error {
			_, syncErr := e.BidirectionalSync(ctx, payload.ProposalId)
			return syncErr
		})
		if err != nil {
			config.LogError(e.logger, "pubsub.go", "PubSubPushHandler", "audit sync", payload, err)
		}
		c.Status(204)
	}
}

const (
	sweepCheckpointKey = "ConsistencyAudit:lastSweepAt"
	sweepCheckpointTTL = 24 * time.Hour
)

// RunScheduledSweep is the ticker entrypoint. It resumes from the stored
// checkpoint so a restart does not re-reconcile the whole lookback window;
// Redis being down just widens the window back to the full lookback.
func (e *Engine) RunScheduledSweep(ctx context.Context, lookback time.Duration, limit int) (int, error) {
	start := time.Now().UTC()
	synced, err := e.RunAuditSweep(ctx, sweepSince(start, lookback), limit)
	if err == nil {
		storeSweepCheckpoint(e.logger, start)
	}
	return synced, err
}

func sweepSince(now time.Time, lookback time.Duration) time.Time {
	floor := now.Add(-lookback)
	val, ok, err := config.GetRedisValue(sweepCheckpointKey)
	if err != nil || !ok {
		return floor
	}
	return parseSweepCheckpoint(val, floor)
}

func parseSweepCheckpoint(val string, fallback time.Time) time.Time {
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return fallback
	}
	return t
}

func storeSweepCheckpoint(logger *logrus.Logger, t time.Time) {
	if err := config.SetRedisValue(sweepCheckpointKey, t.Format(time.RFC3339), sweepCheckpointTTL); err != nil {
		logger.Warnf("could not store sweep checkpoint: %v", err)
	}
}

// RunAuditSweep reconciles every proposal updated since the given time.
// Scheduled (or admin-triggered) safety net behind the push path; failures
// are logged per proposal and do not stop the sweep.
func (e *Engine) RunAuditSweep(ctx context.Context, since time.Time, limit int) (int, error) {
	ids, err := models.ListProposalIdsUpdatedSince(ctx, since, limit)
	if err != nil {
		return 0, err
	}

	synced := 0
	for _, id := range ids {
		err := WithProposalLock(ctx, id, func(ctx context.Context) error {
			_, syncErr := e.BidirectionalSync(ctx, id)
			return syncErr
		})
		if err != nil {
			config.LogError(e.logger, "pubsub.go", "RunAuditSweep", "sweeping proposal", id, err)
			continue
		}
		synced++
	}

	e.logger.WithFields(logrus.Fields{
		"module": "consistency",
		"since":  since,
		"total":  len(ids),
		"synced": synced,
	}).Info("audit sweep completed")
	return synced, nil
}

func envBoolDefault(key string, def bool) bool {
	val := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch val {
	case "true", "1", "yes", "y", "on":
		return true
	case "false", "0", "no", "n", "off":
		return false
	default:
		return def
	}
}
