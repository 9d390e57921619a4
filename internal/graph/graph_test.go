package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidatesCleanly(t *testing.T) {
	g, err := New()
	require.NoError(t, err)
	require.NotNil(t, g)
}

func TestEveryEdgeDestinationIsANode(t *testing.T) {
	g, err := New()
	require.NoError(t, err)
	for code, edge := range defaultEdges() {
		_, ok := g.State(edge.To)
		assert.True(t, ok, "edge %s destination %q must be a node", code, edge.To)
	}
}

func TestEveryAdjacencyEdgeChangesState(t *testing.T) {
	g, err := New()
	require.NoError(t, err)
	for name, codes := range defaultAdjacency() {
		for _, code := range codes {
			edge, ok := g.Edge(code)
			require.True(t, ok)
			assert.NotEqual(t, name, edge.To, "edge %s from %q must change state", code, name)
		}
	}
}

func TestValidateRejectsMissingAdjacency(t *testing.T) {
	nodes := defaultNodes()
	adjacency := defaultAdjacency()
	delete(adjacency, StateBlocked)

	_, err := newGraph(nodes, defaultEdges(), adjacency)
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestValidateRejectsUnknownAdjacencyState(t *testing.T) {
	adjacency := defaultAdjacency()
	adjacency["limbo"] = []Code{CodeSuspend}

	_, err := newGraph(defaultNodes(), defaultEdges(), adjacency)
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestValidateRejectsDanglingEdge(t *testing.T) {
	edges := defaultEdges()
	edges[CodeBlock] = Edge{To: "limbo", Event: EventBlock, Intervention: InterventionBlock}

	_, err := newGraph(defaultNodes(), edges, defaultAdjacency())
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestValidateRejectsSelfEdge(t *testing.T) {
	edges := defaultEdges()
	// Point the suspend edge back at a state that lists it.
	edges[CodeSuspend] = Edge{To: StateOkay, Event: EventSuspend, Intervention: InterventionSuspend}

	_, err := newGraph(defaultNodes(), edges, defaultAdjacency())
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestStateNameResolvesByFieldEquality(t *testing.T) {
	g, err := New()
	require.NoError(t, err)

	name, ok := g.StateName(AccountState{Suspended: true, ResetPassword: true})
	require.True(t, ok)
	assert.Equal(t, StateNeedsPWReset, name)

	_, ok = g.StateName(AccountState{Blocked: true, Suspended: true})
	assert.False(t, ok, "combinations outside the node set are not representable")
}

func TestEventForCode(t *testing.T) {
	g, err := New()
	require.NoError(t, err)

	name, err := g.EventForCode(CodeBlock)
	require.NoError(t, err)
	assert.Equal(t, EventBlock, name)

	_, err = g.EventForCode("99")
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestInterventionNameExcludesUserActionCodes(t *testing.T) {
	g, err := New()
	require.NoError(t, err)

	name, ok := g.InterventionName(CodeBlock)
	require.True(t, ok)
	assert.Equal(t, InterventionBlock, name)

	_, ok = g.InterventionName(CodePWResetDone)
	assert.False(t, ok)
}
