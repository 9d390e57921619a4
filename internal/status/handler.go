// Package status exposes the read-only account status endpoint.
package status

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"vigil/internal/account"
	"vigil/internal/audit"
	"vigil/internal/graph"
	"vigil/internal/history"
)

// Handler serves account intervention status reads.
type Handler struct {
	store  account.Store
	codec  *history.Codec
	logger *slog.Logger
}

func New(store account.Store, codec *history.Codec, logger *slog.Logger) *Handler {
	return &Handler{store: store, codec: codec, logger: logger}
}

// Register mounts status endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/v1/status/{userID}", h.HandleGet)
}

// Response is the status read wire shape. Unknown accounts report the
// default okay state with no timestamps.
type Response struct {
	UserID          string         `json:"user_id"`
	Blocked         bool           `json:"blocked"`
	Suspended       bool           `json:"suspended"`
	ResetPassword   bool           `json:"reset_password"`
	ReproveIdentity bool           `json:"reprove_identity"`
	Status          string         `json:"status"`
	Action          string         `json:"action,omitempty"`
	UpdatedAt       int64          `json:"updated_at,omitempty"`
	AppliedAt       int64          `json:"applied_at,omitempty"`
	SentAt          int64          `json:"sent_at,omitempty"`
	HistoryCount    int            `json:"history_count"`
	History         []HistoryEntry `json:"history,omitempty"`
}

// HistoryEntry is one decoded intervention from the account's trail.
type HistoryEntry struct {
	AppliedAt    int64  `json:"applied_at"`
	Code         string `json:"intervention_code"`
	Intervention string `json:"intervention,omitempty"`
	Reason       string `json:"reason"`
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		http.Error(w, "missing user id", http.StatusBadRequest)
		return
	}

	record, err := h.store.Get(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "status read failed", "user_id", userID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	resp := Response{UserID: userID}
	state := graph.AccountState{}
	deleted := false
	if record != nil {
		state = record.State()
		deleted = record.IsAccountDeleted
		resp.UpdatedAt = record.UpdatedAt
		resp.AppliedAt = record.AppliedAt
		resp.SentAt = record.SentAt
		resp.HistoryCount = len(record.History)
		resp.History = h.decodeHistory(ctx, userID, record.History)
	}
	resp.Blocked = state.Blocked
	resp.Suspended = state.Suspended
	resp.ResetPassword = state.ResetPassword
	resp.ReproveIdentity = state.ReproveIdentity
	resp.Status, resp.Action = audit.DeriveStatus(state, deleted)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.ErrorContext(ctx, "failed to encode status response", "user_id", userID, "error", err)
	}
}

// decodeHistory decodes the stored trail for display. Entries that fail to
// decode are logged and skipped; history_count still reports the raw length.
func (h *Handler) decodeHistory(ctx context.Context, userID string, raw []string) []HistoryEntry {
	out := make([]HistoryEntry, 0, len(raw))
	for _, s := range raw {
		entry, err := h.codec.Decode(s)
		if err != nil {
			h.logger.WarnContext(ctx, "undecodable history entry", "user_id", userID, "error", err)
			continue
		}
		out = append(out, HistoryEntry{
			AppliedAt:    entry.AppliedAt,
			Code:         entry.InterventionCode,
			Intervention: entry.InterventionName,
			Reason:       entry.InterventionReason,
		})
	}
	return out
}
