// Package graph holds the account-state transition configuration: the finite
// set of account states, the coded transitions between them, and the
// adjacency of each state. The graph is built and validated once at start-up
// and passed by reference to the engine, the history codec, and the audit
// builder. A validation failure is a ConfigurationError and must abort the
// process before it serves traffic.
//
// Transition codes are part of the wire contract: stored history entries
// reference them, so re-using a code for a different meaning without a data
// migration breaks every in-flight record.
package graph

import "fmt"

// AccountState is the four-flag combination describing the restrictions
// currently applied to an account. Every value must correspond to exactly
// one named node in the graph; any other combination is a data error.
type AccountState struct {
	Blocked         bool
	Suspended       bool
	ResetPassword   bool
	ReproveIdentity bool
}

// Code identifies a transition edge. Fraud interventions use "01".."07" as
// carried on the wire; user-led remediation edges use the internal "9x"
// range and are never exposed in allowable-intervention lists.
type Code string

// EventName is the canonical name of an ingress event that triggers a
// transition.
type EventName string

// Edge describes a single transition: the destination state, the event that
// triggers it, and, for fraud interventions only, the intervention name used
// in audit output.
type Edge struct {
	To           string
	Event        EventName
	Intervention string
}

// ConfigurationError reports an inconsistency in the static graph. It is
// fatal: it surfaces from New at start-up and is never caught per message.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "transition graph configuration: " + e.Reason
}

// Graph is the validated, immutable transition configuration.
type Graph struct {
	nodes     map[string]AccountState
	edges     map[Code]Edge
	adjacency map[string][]Code
}

// New builds and validates the production transition graph.
func New() (*Graph, error) {
	return newGraph(defaultNodes(), defaultEdges(), defaultAdjacency())
}

func newGraph(nodes map[string]AccountState, edges map[Code]Edge, adjacency map[string][]Code) (*Graph, error) {
	g := &Graph{nodes: nodes, edges: edges, adjacency: adjacency}
	if err := g.validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// validate enforces the structural invariants: nodes and adjacency share the
// same key set, every edge destination resolves, and no edge is a self-loop
// from any state that lists it.
func (g *Graph) validate() error {
	for name := range g.nodes {
		if _, ok := g.adjacency[name]; !ok {
			return &ConfigurationError{Reason: fmt.Sprintf("state %q has no adjacency entry", name)}
		}
	}
	for name := range g.adjacency {
		if _, ok := g.nodes[name]; !ok {
			return &ConfigurationError{Reason: fmt.Sprintf("adjacency references unknown state %q", name)}
		}
	}
	for code, edge := range g.edges {
		if _, ok := g.nodes[edge.To]; !ok {
			return &ConfigurationError{Reason: fmt.Sprintf("edge %s points at unknown state %q", code, edge.To)}
		}
		if edge.Event == "" {
			return &ConfigurationError{Reason: fmt.Sprintf("edge %s has no event name", code)}
		}
	}
	for name, codes := range g.adjacency {
		for _, code := range codes {
			edge, ok := g.edges[code]
			if !ok {
				return &ConfigurationError{Reason: fmt.Sprintf("state %q lists unknown edge %s", name, code)}
			}
			// A transition must change state.
			if edge.To == name {
				return &ConfigurationError{Reason: fmt.Sprintf("edge %s from state %q does not change state", code, name)}
			}
		}
	}
	return nil
}

// StateName resolves an AccountState to its node name by field-wise
// equality. The second return is false when the state is not representable.
func (g *Graph) StateName(s AccountState) (string, bool) {
	for name, node := range g.nodes {
		if node == s {
			return name, true
		}
	}
	return "", false
}

// State returns the AccountState for a node name.
func (g *Graph) State(name string) (AccountState, bool) {
	s, ok := g.nodes[name]
	return s, ok
}

// Adjacency returns the transition codes available from a state. The
// returned slice is shared; callers must not mutate it.
func (g *Graph) Adjacency(name string) []Code {
	return g.adjacency[name]
}

// Edge returns the edge for a transition code.
func (g *Graph) Edge(code Code) (Edge, bool) {
	e, ok := g.edges[code]
	return e, ok
}

// EventForCode maps a wire intervention code to its canonical event name.
// Codes are part of the fixed contract, so an unknown code is a
// configuration problem rather than a data problem.
func (g *Graph) EventForCode(code Code) (EventName, error) {
	edge, ok := g.edges[code]
	if !ok {
		return "", &ConfigurationError{Reason: fmt.Sprintf("no event mapped for intervention code %s", code)}
	}
	return edge.Event, nil
}

// InterventionName returns the canonical intervention name for a code, or
// false for codes that represent internal user-action transitions.
func (g *Graph) InterventionName(code Code) (string, bool) {
	edge, ok := g.edges[code]
	if !ok || edge.Intervention == "" {
		return "", false
	}
	return edge.Intervention, true
}
