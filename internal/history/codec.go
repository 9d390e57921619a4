// Package history encodes one audit-trail entry per applied intervention
// into a compact fixed-field string for storage on the account record.
//
// The encoding is the persisted wire format: seven fields joined by a pipe,
// in order appliedTimestamp, componentID, interventionCode,
// interventionReason, originatingComponentID, predecessorID, requesterID.
// The trailing three fields may be empty but the field count is fixed.
package history

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"vigil/internal/event"
	"vigil/internal/graph"
)

const (
	delimiter  = "|"
	fieldCount = 7
)

// Decode failure modes.
var (
	ErrMissingInterventionData = errors.New("event carries no intervention data")
	ErrMalformedHistoryString  = errors.New("malformed history string")
	ErrMissingRequiredField    = errors.New("history entry missing required field")
)

// Entry is a decoded audit-trail entry. InterventionName is derived from the
// stored code via the current graph and is for display only; stored codes
// are assumed never to be re-used for a different meaning.
type Entry struct {
	AppliedAt              int64
	ComponentID            string
	InterventionCode       string
	InterventionName       string
	InterventionReason     string
	OriginatingComponentID string
	PredecessorID          string
	RequesterID            string
}

// Codec encodes and decodes history entries against a transition graph.
type Codec struct {
	graph *graph.Graph
}

func NewCodec(g *graph.Graph) *Codec {
	return &Codec{graph: g}
}

// Encode renders the history entry for an applied intervention. User-action
// events have no history entry and fail with ErrMissingInterventionData.
func (c *Codec) Encode(ev *event.IngressEvent, appliedAt int64) (string, error) {
	if ev.Extensions == nil || ev.Extensions.Intervention == nil {
		return "", ErrMissingInterventionData
	}
	iv := ev.Extensions.Intervention
	fields := []string{
		strconv.FormatInt(appliedAt, 10),
		ev.ComponentID,
		iv.InterventionCode,
		iv.InterventionReason,
		iv.OriginatingComponentID,
		iv.PredecessorID,
		iv.RequesterID,
	}
	return strings.Join(fields, delimiter), nil
}

// Decode parses a stored history entry. The first four fields are mandatory;
// the remaining three decode to empty strings when absent.
func (c *Codec) Decode(s string) (Entry, error) {
	fields := strings.Split(s, delimiter)
	if len(fields) != fieldCount {
		return Entry{}, fmt.Errorf("%w: got %d fields", ErrMalformedHistoryString, len(fields))
	}
	for i, name := range []string{"timestamp", "component id", "intervention code", "intervention reason"} {
		if fields[i] == "" {
			return Entry{}, fmt.Errorf("%w: %s", ErrMissingRequiredField, name)
		}
	}
	appliedAt, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: timestamp %q", ErrMalformedHistoryString, fields[0])
	}

	entry := Entry{
		AppliedAt:              appliedAt,
		ComponentID:            fields[1],
		InterventionCode:       fields[2],
		InterventionReason:     fields[3],
		OriginatingComponentID: fields[4],
		PredecessorID:          fields[5],
		RequesterID:            fields[6],
	}
	if name, ok := c.graph.InterventionName(graph.Code(entry.InterventionCode)); ok {
		entry.InterventionName = name
	}
	return entry, nil
}
