package history

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vigil/internal/event"
	"vigil/internal/graph"
)

func newCodec(t *testing.T) *Codec {
	t.Helper()
	g, err := graph.New()
	require.NoError(t, err)
	return NewCodec(g)
}

func interventionEvent() *event.IngressEvent {
	return &event.IngressEvent{
		EventName:   event.NameIntervention,
		ComponentID: "TICF_CRI",
		Timestamp:   1700000000,
		User:        event.User{UserID: "urn:user:abc"},
		Extensions: &event.Extensions{
			Intervention: &event.Intervention{
				InterventionCode:       "03",
				InterventionReason:     "fraud confirmed",
				OriginatingComponentID: "CMS",
				PredecessorID:          "prior-01",
				RequesterID:            "analyst-9",
			},
		},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	codec := newCodec(t)
	ev := interventionEvent()

	encoded, err := codec.Encode(ev, 1700000123456)
	require.NoError(t, err)
	assert.Equal(t, 7, len(strings.Split(encoded, "|")))

	entry, err := codec.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, int64(1700000123456), entry.AppliedAt)
	assert.Equal(t, "TICF_CRI", entry.ComponentID)
	assert.Equal(t, "03", entry.InterventionCode)
	assert.Equal(t, graph.InterventionBlock, entry.InterventionName)
	assert.Equal(t, "fraud confirmed", entry.InterventionReason)
	assert.Equal(t, "CMS", entry.OriginatingComponentID)
	assert.Equal(t, "prior-01", entry.PredecessorID)
	assert.Equal(t, "analyst-9", entry.RequesterID)
}

func TestEncodeOptionalFieldsMayBeEmpty(t *testing.T) {
	codec := newCodec(t)
	ev := interventionEvent()
	ev.Extensions.Intervention.OriginatingComponentID = ""
	ev.Extensions.Intervention.PredecessorID = ""
	ev.Extensions.Intervention.RequesterID = ""

	encoded, err := codec.Encode(ev, 42)
	require.NoError(t, err)
	assert.Equal(t, 7, len(strings.Split(encoded, "|")), "field count is fixed even with empty trailing fields")

	entry, err := codec.Decode(encoded)
	require.NoError(t, err)
	assert.Empty(t, entry.OriginatingComponentID)
	assert.Empty(t, entry.PredecessorID)
	assert.Empty(t, entry.RequesterID)
}

func TestEncodeRequiresInterventionData(t *testing.T) {
	codec := newCodec(t)
	ev := &event.IngressEvent{
		EventName: event.NamePasswordReset,
		User:      event.User{UserID: "urn:user:abc"},
	}

	_, err := codec.Encode(ev, 42)
	require.ErrorIs(t, err, ErrMissingInterventionData)
}

func TestDecodeWrongFieldCount(t *testing.T) {
	codec := newCodec(t)

	for _, s := range []string{
		"",
		"1|2|3",
		"1|2|3|4|5|6",
		"1|2|3|4|5|6|7|8",
	} {
		_, err := codec.Decode(s)
		require.ErrorIs(t, err, ErrMalformedHistoryString, "input %q", s)
	}
}

func TestDecodeMissingRequiredField(t *testing.T) {
	codec := newCodec(t)

	for _, s := range []string{
		"|TICF_CRI|03|reason|||",
		"100||03|reason|||",
		"100|TICF_CRI||reason|||",
		"100|TICF_CRI|03||||",
	} {
		_, err := codec.Decode(s)
		require.Error(t, err, "input %q", s)
	}
}

func TestDecodeNonNumericTimestamp(t *testing.T) {
	codec := newCodec(t)

	_, err := codec.Decode("soon|TICF_CRI|03|reason|||")
	require.ErrorIs(t, err, ErrMalformedHistoryString)
}

func TestDecodeUnknownCodeLeavesNameEmpty(t *testing.T) {
	codec := newCodec(t)

	entry, err := codec.Decode("100|TICF_CRI|77|reason|||")
	require.NoError(t, err)
	assert.Empty(t, entry.InterventionName)
}
