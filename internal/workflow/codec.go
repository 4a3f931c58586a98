package workflow

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
)

// Fallback layout for steps without saved coordinates.
const (
	fallbackX       = 250
	fallbackY       = 50
	fallbackSpacing = 150
)

// NodeTypeFor maps a backend step to its editor node type.
func NodeTypeFor(stepID string, t StepType) NodeType {
	switch t {
	case StepTypeDynamicOptions:
		return NodeTypeDynamicOptions
	case StepTypeQuestion:
		return NodeTypeDecision
	case StepTypeTool:
		return NodeTypeTool
	case "":
		if stepID == StartStepID {
			return NodeTypeStart
		}
	}
	return NodeTypeMessage
}

// StepTypeFor maps an editor node type back to a backend step type.
func StepTypeFor(t NodeType) StepType {
	switch t {
	case NodeTypeDynamicOptions:
		return StepTypeDynamicOptions
	case NodeTypeDecision:
		return StepTypeQuestion
	case NodeTypeTool:
		return StepTypeTool
	default:
		return StepTypeMessage
	}
}

// Decode builds a graph from stored steps and positions, each given as a
// JSON object or a JSON string holding one. Malformed input decodes as
// empty.
func Decode(steps, positions []byte) Graph {
	return DecodeSteps(ParseSteps(steps), ParsePositions(positions))
}

// DecodeStored builds a graph from a workflow's stored steps and metadata
// documents. Saved coordinates are read from the metadata's positions
// field, not from the metadata object itself.
func DecodeStored(steps, metadata []byte) Graph {
	_, positions := ParseMetadata(metadata)
	return DecodeSteps(ParseSteps(steps), positions)
}

// DecodeSteps builds a graph from parsed steps. Steps without a saved
// position are stacked vertically in the order they are met.
func DecodeSteps(steps *Steps, positions Positions) Graph {
	g := Graph{Nodes: []Node{}, Edges: []Edge{}}
	unplaced := 0

	for _, id := range steps.IDs() {
		step, _ := steps.Get(id)

		pos, ok := positions[id]
		if !ok {
			pos = Position{X: fallbackX, Y: float64(fallbackY + fallbackSpacing*unplaced)}
			unplaced++
		}

		g.Nodes = append(g.Nodes, Node{
			ID:       id,
			Type:     NodeTypeFor(id, step.Type),
			Position: pos,
			Data:     nodeData(step),
		})

		if step.Next != "" {
			g.Edges = append(g.Edges, Edge{
				ID:     fmt.Sprintf("e-%s-%s", id, step.Next),
				Source: id,
				Target: step.Next,
			})
		}
		for _, b := range step.Branches() {
			g.Edges = append(g.Edges, Edge{
				ID:           fmt.Sprintf("e-%s-%s-%s", id, b.Key, b.Next),
				Source:       id,
				Target:       b.Next,
				SourceHandle: "source-" + b.Key,
			})
		}
	}
	return g
}

// nodeData exposes content.text as both message and text.
func nodeData(step *Step) *Bag {
	data := NewBag()
	_ = data.SetValue(DataLabel, step.StepID)
	if text, ok := step.Content.Get(ContentText); ok {
		data.Set(DataMessage, text)
		data.Set(DataText, text)
	}
	if sources, ok := step.Content.Get(ContentSources); ok {
		data.Set(DataSources, sources)
	}
	return data
}

// Encode turns an edited graph back into a step map plus positions.
//
// Content and position edits are written; transitions are not. Each step
// keeps the next pointer and options_mapping of the original step with the
// same id, so added, removed or rewired edges do not reach the stored
// transitions, and a new node saves without any. Original steps with no
// node are dropped.
//
// A node carries its text under both data.message and data.text. When only
// one of them differs from the original content.text, that one is saved;
// otherwise data.message wins.
func Encode(g Graph, original *Steps) (*Steps, Positions) {
	out := NewSteps()
	positions := make(Positions, len(g.Nodes))

	for _, node := range g.Nodes {
		positions[node.ID] = node.Position

		step := &Step{
			StepID:  node.ID,
			Type:    StepTypeFor(node.Type),
			Content: NewBag(),
		}
		if prev, ok := original.Get(node.ID); ok {
			step.Content = prev.Content.Clone()
			step.Next = prev.Next
			step.extra = prev.extra.Clone()
		}

		if text, ok := editedText(node.Data, step.Content); ok {
			step.Content.Set(ContentText, text)
		}
		if sources, ok := node.Data.Get(DataSources); ok {
			step.Content.Set(ContentSources, sources)
		}

		out.Put(step)
	}
	return out, positions
}

// editedText picks the node text to write into content.text.
func editedText(data, content *Bag) (json.RawMessage, bool) {
	message, hasMessage := data.Get(DataMessage)
	text, hasText := data.Get(DataText)
	if hasMessage && hasText {
		prev, _ := content.Get(ContentText)
		if sameJSON(message, prev) && !sameJSON(text, prev) {
			return text, true
		}
	}
	if hasMessage {
		return message, true
	}
	return text, hasText
}

// sameJSON reports whether a and b are the same JSON value in canonical form.
func sameJSON(a, b json.RawMessage) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ca, err := jcs.Transform(a)
	if err != nil {
		return bytes.Equal(a, b)
	}
	cb, err := jcs.Transform(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ca, cb)
}

// EncodeJSON encodes g against the stored steps and metadata documents and
// returns the documents to persist. Metadata fields other than positions
// are kept.
func EncodeJSON(g Graph, storedSteps, storedMetadata []byte) (steps, metadata []byte, err error) {
	newSteps, positions := Encode(g, ParseSteps(storedSteps))

	steps, err = json.Marshal(newSteps)
	if err != nil {
		return nil, nil, fmt.Errorf("encode steps: %w", err)
	}

	meta, _ := ParseMetadata(storedMetadata)
	if err := meta.SetValue(MetadataPositions, positions); err != nil {
		return nil, nil, fmt.Errorf("encode positions: %w", err)
	}
	metadata, err = json.Marshal(meta)
	if err != nil {
		return nil, nil, fmt.Errorf("encode metadata: %w", err)
	}
	return steps, metadata, nil
}
