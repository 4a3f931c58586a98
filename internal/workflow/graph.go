// Package workflow translates conversational workflows between the backend
// step map and the node/edge graph edited in the admin panel.
package workflow

import (
	"encoding/json"
	"errors"
	"fmt"
)

// NodeType is the editor-side kind of a node.
type NodeType string

const (
	NodeTypeStart          NodeType = "start"
	NodeTypeMessage        NodeType = "message"
	NodeTypeDecision       NodeType = "decision"
	NodeTypeTool           NodeType = "tool"
	NodeTypeDynamicOptions NodeType = "dynamic_options"
)

// Valid reports whether t is a node type the editor knows.
func (t NodeType) Valid() bool {
	switch t {
	case NodeTypeStart, NodeTypeMessage, NodeTypeDecision, NodeTypeTool, NodeTypeDynamicOptions:
		return true
	}
	return false
}

// Node data keys read and written by the codec.
const (
	DataLabel   = "label"
	DataMessage = "message"
	DataText    = "text"
	DataSources = "sources"
)

var (
	ErrDuplicateNode   = errors.New("workflow: duplicate node id")
	ErrUnknownNode     = errors.New("workflow: unknown node")
	ErrDuplicateEdge   = errors.New("workflow: duplicate edge id")
	ErrUnknownEdge     = errors.New("workflow: unknown edge")
	ErrInvalidNodeType = errors.New("workflow: invalid node type")
)

// Node is a graph vertex. Data is an ordered bag so editor-only fields
// survive a save.
type Node struct {
	ID       string   `json:"id"`
	Type     NodeType `json:"type"`
	Position Position `json:"position"`
	Data     *Bag     `json:"data"`
}

// Edge is a directed connection. SourceHandle names the output of a
// multi-output node.
type Edge struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
}

// Graph is the editor representation of a workflow. Treat it as a value:
// commands return a new Graph and never modify their input.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// MarshalJSON writes empty slices as [] rather than null.
func (g Graph) MarshalJSON() ([]byte, error) {
	type plain Graph
	p := plain(g)
	if p.Nodes == nil {
		p.Nodes = []Node{}
	}
	if p.Edges == nil {
		p.Edges = []Edge{}
	}
	return json.Marshal(p)
}

// Node returns the node with the given id.
func (g Graph) Node(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// NodesOfType returns the nodes of kind t in graph order. It never returns nil.
func (g Graph) NodesOfType(t NodeType) []Node {
	out := []Node{}
	for _, n := range g.Nodes {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}

// ValidateNodes checks that every node has a non-empty, unique id and a
// known type. It is all Encode needs; edges are not consulted.
func (g Graph) ValidateNodes() error {
	_, err := g.nodeSet()
	return err
}

// Validate checks the nodes and that every edge joins existing nodes.
// Graphs decoded from steps with dangling transitions fail this check.
func (g Graph) Validate() error {
	seen, err := g.nodeSet()
	if err != nil {
		return err
	}
	for _, e := range g.Edges {
		if !seen[e.Source] {
			return fmt.Errorf("%w: edge %s source %s", ErrUnknownNode, e.ID, e.Source)
		}
		if !seen[e.Target] {
			return fmt.Errorf("%w: edge %s target %s", ErrUnknownNode, e.ID, e.Target)
		}
	}
	return nil
}

func (g Graph) nodeSet() (map[string]bool, error) {
	seen := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		if n.ID == "" {
			return nil, fmt.Errorf("%w: empty id", ErrUnknownNode)
		}
		if seen[n.ID] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateNode, n.ID)
		}
		if !n.Type.Valid() {
			return nil, fmt.Errorf("%w: %s", ErrInvalidNodeType, n.Type)
		}
		seen[n.ID] = true
	}
	return seen, nil
}

// clone copies the node and edge slices and every node's data bag.
func (g Graph) clone() Graph {
	out := Graph{
		Nodes: make([]Node, len(g.Nodes)),
		Edges: append([]Edge(nil), g.Edges...),
	}
	for i, n := range g.Nodes {
		n.Data = n.Data.Clone()
		out.Nodes[i] = n
	}
	return out
}

func (g Graph) nodeIndex(id string) int {
	for i, n := range g.Nodes {
		if n.ID == id {
			return i
		}
	}
	return -1
}

func (g Graph) edgeIndex(id string) int {
	for i, e := range g.Edges {
		if e.ID == id {
			return i
		}
	}
	return -1
}
