package workflow

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/AIX-Clever/chat-booking-admin/internal/pkg/ulid"
)

// ErrUnknownCommand is returned by DecodeCommand for an unrecognised kind.
var ErrUnknownCommand = errors.New("workflow: unknown command")

// Command is one editor action. Apply returns the edited graph and leaves
// its argument untouched.
type Command interface {
	Apply(g Graph) (Graph, error)
}

// Apply runs cmds in order. On failure the original graph is returned with
// the error of the first failing command.
func (g Graph) Apply(cmds ...Command) (Graph, error) {
	cur := g
	for i, cmd := range cmds {
		next, err := cmd.Apply(cur)
		if err != nil {
			return g, fmt.Errorf("command %d: %w", i, err)
		}
		cur = next
	}
	return cur, nil
}

// AddNode inserts a node. An empty ID gets a fresh ULID and a missing label
// defaults to the id.
type AddNode struct {
	Node Node `json:"node"`
}

func (c AddNode) Apply(g Graph) (Graph, error) {
	n := c.Node
	if n.ID == "" {
		n.ID = ulid.New()
	}
	if n.Type == "" {
		n.Type = NodeTypeMessage
	}
	if !n.Type.Valid() {
		return g, fmt.Errorf("%w: %s", ErrInvalidNodeType, n.Type)
	}
	if g.nodeIndex(n.ID) >= 0 {
		return g, fmt.Errorf("%w: %s", ErrDuplicateNode, n.ID)
	}
	n.Data = n.Data.Clone()
	if !n.Data.Has(DataLabel) {
		_ = n.Data.SetValue(DataLabel, n.ID)
	}
	out := g.clone()
	out.Nodes = append(out.Nodes, n)
	return out, nil
}

// MoveNode sets a node's position.
type MoveNode struct {
	ID       string   `json:"id"`
	Position Position `json:"position"`
}

func (c MoveNode) Apply(g Graph) (Graph, error) {
	i := g.nodeIndex(c.ID)
	if i < 0 {
		return g, fmt.Errorf("%w: %s", ErrUnknownNode, c.ID)
	}
	out := g.clone()
	out.Nodes[i].Position = c.Position
	return out, nil
}

// AddEdge connects two existing nodes. An empty ID is derived from the
// endpoints the same way decoded edges are named.
type AddEdge struct {
	Edge Edge `json:"edge"`
}

func (c AddEdge) Apply(g Graph) (Graph, error) {
	e := c.Edge
	if g.nodeIndex(e.Source) < 0 {
		return g, fmt.Errorf("%w: %s", ErrUnknownNode, e.Source)
	}
	if g.nodeIndex(e.Target) < 0 {
		return g, fmt.Errorf("%w: %s", ErrUnknownNode, e.Target)
	}
	if e.ID == "" {
		e.ID = edgeID(e)
	}
	if g.edgeIndex(e.ID) >= 0 {
		return g, fmt.Errorf("%w: %s", ErrDuplicateEdge, e.ID)
	}
	out := g.clone()
	out.Edges = append(out.Edges, e)
	return out, nil
}

func edgeID(e Edge) string {
	if key, ok := strings.CutPrefix(e.SourceHandle, "source-"); ok && key != "" {
		return fmt.Sprintf("e-%s-%s-%s", e.Source, key, e.Target)
	}
	return fmt.Sprintf("e-%s-%s", e.Source, e.Target)
}

// UpdateNodeData merges fields into a node's data. Writing either message
// or text writes both, so the two never disagree.
type UpdateNodeData struct {
	ID   string                     `json:"id"`
	Data map[string]json.RawMessage `json:"data"`
}

func (c UpdateNodeData) Apply(g Graph) (Graph, error) {
	i := g.nodeIndex(c.ID)
	if i < 0 {
		return g, fmt.Errorf("%w: %s", ErrUnknownNode, c.ID)
	}
	out := g.clone()
	data := out.Nodes[i].Data
	keys := make([]string, 0, len(c.Data))
	for k := range c.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		data.Set(k, c.Data[k])
	}
	if v, ok := c.Data[DataMessage]; ok {
		data.Set(DataText, v)
	} else if v, ok := c.Data[DataText]; ok {
		data.Set(DataMessage, v)
	}
	return out, nil
}

// RemoveNode deletes a node and every edge touching it.
type RemoveNode struct {
	ID string `json:"id"`
}

func (c RemoveNode) Apply(g Graph) (Graph, error) {
	i := g.nodeIndex(c.ID)
	if i < 0 {
		return g, fmt.Errorf("%w: %s", ErrUnknownNode, c.ID)
	}
	out := g.clone()
	out.Nodes = append(out.Nodes[:i], out.Nodes[i+1:]...)
	edges := out.Edges[:0]
	for _, e := range out.Edges {
		if e.Source != c.ID && e.Target != c.ID {
			edges = append(edges, e)
		}
	}
	out.Edges = edges
	return out, nil
}

// RemoveEdge deletes one edge.
type RemoveEdge struct {
	ID string `json:"id"`
}

func (c RemoveEdge) Apply(g Graph) (Graph, error) {
	i := g.edgeIndex(c.ID)
	if i < 0 {
		return g, fmt.Errorf("%w: %s", ErrUnknownEdge, c.ID)
	}
	out := g.clone()
	out.Edges = append(out.Edges[:i], out.Edges[i+1:]...)
	return out, nil
}

// Command kinds used on the wire.
const (
	KindAddNode        = "add_node"
	KindMoveNode       = "move_node"
	KindAddEdge        = "add_edge"
	KindUpdateNodeData = "update_node_data"
	KindRemoveNode     = "remove_node"
	KindRemoveEdge     = "remove_edge"
)

// DecodeCommand reads a command of the form {"kind": "...", ...fields}.
func DecodeCommand(raw []byte) (Command, error) {
	var head struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, err
	}

	var cmd Command
	var err error
	switch head.Kind {
	case KindAddNode:
		var c AddNode
		err = json.Unmarshal(raw, &c)
		cmd = c
	case KindMoveNode:
		var c MoveNode
		err = json.Unmarshal(raw, &c)
		cmd = c
	case KindAddEdge:
		var c AddEdge
		err = json.Unmarshal(raw, &c)
		cmd = c
	case KindUpdateNodeData:
		var c UpdateNodeData
		err = json.Unmarshal(raw, &c)
		cmd = c
	case KindRemoveNode:
		var c RemoveNode
		err = json.Unmarshal(raw, &c)
		cmd = c
	case KindRemoveEdge:
		var c RemoveEdge
		err = json.Unmarshal(raw, &c)
		cmd = c
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, head.Kind)
	}
	if err != nil {
		return nil, err
	}
	return cmd, nil
}

// DecodeCommands decodes a JSON array of commands.
func DecodeCommands(raw []byte) ([]Command, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	cmds := make([]Command, 0, len(items))
	for i, item := range items {
		cmd, err := DecodeCommand(item)
		if err != nil {
			return nil, fmt.Errorf("command %d: %w", i, err)
		}
		cmds = append(cmds, cmd)
	}
	return cmds, nil
}
