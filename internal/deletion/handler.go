// Package deletion consumes account-deletion notifications and flags the
// corresponding records with a retention TTL. Records are never physically
// deleted here; the flag stops further transitions and the TTL handles
// expiry.
package deletion

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"vigil/internal/account"
	"vigil/internal/platform/kafka/consumer"
)

type message struct {
	UserID string `json:"user_id"`
}

// Handler processes deletion messages. Malformed messages are committed and
// logged; only store failures request redelivery.
type Handler struct {
	store     account.Store
	retention time.Duration
	logger    *slog.Logger
}

func New(store account.Store, retention time.Duration, logger *slog.Logger) *Handler {
	return &Handler{store: store, retention: retention, logger: logger}
}

func (h *Handler) HandleBatch(ctx context.Context, batch []consumer.Message) []string {
	var failed []string
	for _, msg := range batch {
		var m message
		if err := json.Unmarshal(msg.Value, &m); err != nil || m.UserID == "" {
			h.logger.ErrorContext(ctx, "malformed deletion message",
				"message_id", msg.ID,
				"error", err,
			)
			continue
		}
		if err := h.store.MarkDeleted(ctx, m.UserID, h.retention); err != nil {
			h.logger.ErrorContext(ctx, "failed to mark account deleted",
				"user_id", m.UserID,
				"error", err,
			)
			failed = append(failed, msg.ID)
			continue
		}
		h.logger.InfoContext(ctx, "marked account deleted", "user_id", m.UserID)
	}
	return failed
}
