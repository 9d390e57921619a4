package deletion

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vigil/internal/account"
	"vigil/internal/platform/kafka/consumer"
)

func TestMarksAccountsDeleted(t *testing.T) {
	store := account.NewInMemoryStore()
	h := New(store, time.Hour, slog.New(slog.DiscardHandler))

	failed := h.HandleBatch(context.Background(), []consumer.Message{
		{ID: "m1", Value: []byte(`{"user_id":"urn:user:abc"}`)},
	})
	assert.Empty(t, failed)

	r, err := store.Get(context.Background(), "urn:user:abc")
	require.NoError(t, err)
	assert.True(t, r.IsAccountDeleted)
}

func TestMalformedMessagesAreCommitted(t *testing.T) {
	store := account.NewInMemoryStore()
	h := New(store, time.Hour, slog.New(slog.DiscardHandler))

	failed := h.HandleBatch(context.Background(), []consumer.Message{
		{ID: "m1", Value: []byte(`{broken`)},
		{ID: "m2", Value: []byte(`{"user_id":""}`)},
		{ID: "m3", Value: []byte(`{"user_id":"urn:user:ok"}`)},
	})
	assert.Empty(t, failed, "malformed deletion messages must not loop")

	r, err := store.Get(context.Background(), "urn:user:ok")
	require.NoError(t, err)
	assert.True(t, r.IsAccountDeleted)
}
