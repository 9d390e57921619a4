// Package engine implements the pure transition decision logic. Given a
// current account state and an incoming event name it either resolves the
// transition through the configured graph or rejects it. The engine never
// touches storage, time, or the network.
package engine

import (
	"fmt"

	"vigil/internal/graph"
)

// Output is the result of a successfully resolved transition.
type Output struct {
	NewState graph.AccountState
	// InterventionName is empty for user-led transitions.
	InterventionName string
	// NextAllowable lists the transition codes available from NewState.
	NextAllowable []graph.Code
}

// TransitionRejectedError reports an event that is not allowed from the
// current state. It carries the unchanged state so callers can audit the
// ignored transition; it is a terminal, per-message outcome, not a crash.
type TransitionRejectedError struct {
	Event     graph.EventName
	StateName string
	Current   graph.AccountState
}

func (e *TransitionRejectedError) Error() string {
	return fmt.Sprintf("transition %s not allowed from state %s", e.Event, e.StateName)
}

// Engine resolves transitions against an immutable graph.
type Engine struct {
	graph *graph.Graph
}

func New(g *graph.Graph) *Engine {
	return &Engine{graph: g}
}

// Apply resolves event against current. A nil current means no record exists
// for the account yet and defaults to the okay state.
//
// ConfigurationError returns indicate a corrupt stored state or an
// out-of-date graph and are not per-message recoverable.
func (e *Engine) Apply(event graph.EventName, current *graph.AccountState) (*Output, error) {
	state := graph.AccountState{}
	if current != nil {
		state = *current
	}

	name, ok := e.graph.StateName(state)
	if !ok {
		return nil, &graph.ConfigurationError{
			Reason: fmt.Sprintf("account state %+v is not representable in the graph", state),
		}
	}

	adjacency := e.graph.Adjacency(name)
	if len(adjacency) == 0 {
		return nil, &graph.ConfigurationError{
			Reason: fmt.Sprintf("state %q has no outgoing transitions", name),
		}
	}

	var edge graph.Edge
	found := false
	for _, code := range adjacency {
		if candidate, ok := e.graph.Edge(code); ok && candidate.Event == event {
			edge = candidate
			found = true
			break
		}
	}
	if !found {
		return nil, &TransitionRejectedError{Event: event, StateName: name, Current: state}
	}

	newState, ok := e.graph.State(edge.To)
	if !ok {
		return nil, &graph.ConfigurationError{
			Reason: fmt.Sprintf("edge for %s points at unknown state %q", event, edge.To),
		}
	}
	if newState == state {
		return nil, &graph.ConfigurationError{
			Reason: fmt.Sprintf("edge for %s from %q does not change state", event, name),
		}
	}

	return &Output{
		NewState:         newState,
		InterventionName: edge.Intervention,
		NextAllowable:    e.graph.Adjacency(edge.To),
	}, nil
}

// EventForCode maps a wire intervention code to its canonical event name.
func (e *Engine) EventForCode(code graph.Code) (graph.EventName, error) {
	return e.graph.EventForCode(code)
}
