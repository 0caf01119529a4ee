package webhook

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/darkneiss/ai-pr-sentinel-sub000/common/logger"
	"github.com/darkneiss/ai-pr-sentinel-sub000/common/metrics"
	"github.com/darkneiss/ai-pr-sentinel-sub000/internal/delivery"
	"github.com/darkneiss/ai-pr-sentinel-sub000/internal/http/dto"
	"github.com/darkneiss/ai-pr-sentinel-sub000/internal/mapper"
	"github.com/darkneiss/ai-pr-sentinel-sub000/internal/service"
	"github.com/darkneiss/ai-pr-sentinel-sub000/internal/signature"
)

var deliveryIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

// DefaultMaxBodyBytes matches GitHub's webhook payload cap.
const DefaultMaxBodyBytes int64 = 25 << 20

// Options control how strictly deliveries are admitted.
type Options struct {
	RequireDeliveryID bool
	// MaxBodyBytes caps the payload read before verification; 0 means DefaultMaxBodyBytes.
	MaxBodyBytes int64
	// Now overrides the receive timestamp (tests).
	Now func() time.Time
}

// Handler runs one provider's webhook flow: verify, deduplicate, map, triage.
type Handler struct {
	provider          string
	signatureHeader   string
	verifier          signature.Verifier
	mapper            mapper.EventMapper
	dedup             *delivery.Deduplicator
	triage            service.IssueTriageService
	requireDeliveryID bool
	maxBodyBytes      int64
	now               func() time.Time
}

func newHandler(provider, signatureHeader string, verifier signature.Verifier, m mapper.EventMapper, dedup *delivery.Deduplicator, triage service.IssueTriageService, opts Options) *Handler {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	maxBodyBytes := opts.MaxBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return &Handler{
		provider:          provider,
		signatureHeader:   signatureHeader,
		verifier:          verifier,
		mapper:            m,
		dedup:             dedup,
		triage:            triage,
		requireDeliveryID: opts.RequireDeliveryID,
		maxBodyBytes:      maxBodyBytes,
		now:               now,
	}
}

func (h *Handler) HandleEvent(c *gin.Context) {
	ctx := logger.WithLogFields(c.Request.Context(), logger.LogFields{
		Provider:  logger.Ptr(h.provider),
		Component: "sentinel.http.webhook",
	})
	receivedAt := h.now()

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			slog.WarnContext(ctx, "webhook payload too large", "limit_bytes", tooLarge.Limit)
			h.reject(c, http.StatusRequestEntityTooLarge, metrics.DeliveryBadRequest, "payload too large")
			return
		}
		h.reject(c, http.StatusBadRequest, metrics.DeliveryBadRequest, "failed to read request body")
		return
	}

	if h.verifier != nil && h.verifier.Enabled() {
		if err := h.verifier.Verify(body, c.GetHeader(h.signatureHeader)); err != nil {
			slog.WarnContext(ctx, "webhook signature rejected", "error", err)
			h.reject(c, http.StatusUnauthorized, metrics.DeliveryInvalidSignature, "invalid signature")
			return
		}
	}

	headers := mapper.HeadersFrom(c.Request.Header)
	deliveryID := h.mapper.DeliveryID(headers)
	switch {
	case deliveryID == "" && h.requireDeliveryID:
		h.reject(c, http.StatusBadRequest, metrics.DeliveryBadRequest, "missing delivery id")
		return
	case deliveryID != "" && !deliveryIDPattern.MatchString(deliveryID):
		h.reject(c, http.StatusBadRequest, metrics.DeliveryBadRequest, "malformed delivery id")
		return
	}

	if deliveryID != "" {
		ctx = logger.WithLogFields(ctx, logger.LogFields{DeliveryID: logger.Ptr(deliveryID)})

		registration, err := h.dedup.RegisterIfFirstSeen(ctx, h.provider, deliveryID, receivedAt)
		if err != nil {
			slog.ErrorContext(ctx, "failed to register webhook delivery", "error", err)
			h.reject(c, http.StatusInternalServerError, metrics.DeliveryFailed, "failed to register delivery")
			return
		}
		if registration == delivery.Duplicate {
			metrics.WebhookDeliveries.WithLabelValues(h.provider, metrics.DeliveryDuplicate).Inc()
			c.JSON(http.StatusOK, dto.WebhookResponse{Status: dto.WebhookStatusDuplicate})
			return
		}
	}

	event, err := h.mapper.Map(ctx, body, headers)
	if err != nil {
		if errors.Is(err, mapper.ErrUnsupportedEvent) {
			slog.InfoContext(ctx, "webhook event ignored", "reason", err.Error())
			metrics.WebhookDeliveries.WithLabelValues(h.provider, metrics.DeliveryIgnored).Inc()
			c.Status(http.StatusNoContent)
			return
		}
		slog.WarnContext(ctx, "webhook payload rejected", "error", err)
		h.forget(c, deliveryID)
		h.reject(c, http.StatusBadRequest, metrics.DeliveryBadRequest, "invalid payload")
		return
	}

	result, err := h.triage.Triage(ctx, *event)
	if err != nil {
		slog.ErrorContext(ctx, "failed to triage issue",
			"error", err,
			"repository", event.RepositoryFullName,
			"issue_number", event.Issue.Number,
		)
		h.forget(c, deliveryID)
		h.reject(c, http.StatusInternalServerError, metrics.DeliveryFailed, "failed to process event")
		return
	}

	slog.InfoContext(ctx, "webhook processed",
		"repository", event.RepositoryFullName,
		"issue_number", event.Issue.Number,
		"action", event.Action,
	)
	metrics.WebhookDeliveries.WithLabelValues(h.provider, metrics.DeliveryAccepted).Inc()
	c.JSON(http.StatusOK, dto.WebhookResponse{
		Status:    dto.WebhookStatusOK,
		Integrity: result.Integrity,
		AI:        result.AI,
	})
}

// forget unregisters a delivery whose processing failed so the provider's retry is handled.
func (h *Handler) forget(c *gin.Context, deliveryID string) {
	if deliveryID == "" {
		return
	}
	ctx := c.Request.Context()
	if err := h.dedup.Unregister(ctx, h.provider, deliveryID); err != nil {
		slog.ErrorContext(ctx, "failed to unregister webhook delivery", "error", err, "delivery_id", deliveryID)
	}
}

func (h *Handler) reject(c *gin.Context, status int, outcome, message string) {
	metrics.WebhookDeliveries.WithLabelValues(h.provider, outcome).Inc()
	c.JSON(status, dto.ErrorResponse{Error: message})
}
