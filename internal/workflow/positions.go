package workflow

import "encoding/json"

// Position is an editor coordinate. It has no meaning beyond layout.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Positions maps step ids to saved coordinates.
type Positions map[string]Position

// MetadataPositions is the metadata key holding Positions.
const MetadataPositions = "positions"

// ParsePositions decodes a positions object, object-or-string. Entries that
// are not coordinate objects are skipped; malformed input yields an empty
// map.
func ParsePositions(data []byte) Positions {
	out := Positions{}
	doc, err := parseObject(data)
	if err != nil {
		return out
	}
	for _, id := range doc.Keys() {
		raw, _ := doc.Get(id)
		if _, err := parseObject(raw); err != nil {
			continue
		}
		var p Position
		if err := json.Unmarshal(raw, &p); err != nil {
			continue
		}
		out[id] = p
	}
	return out
}

// ParseMetadata decodes a workflow metadata document and extracts its
// positions. The returned bag keeps every other metadata field.
func ParseMetadata(data []byte) (*Bag, Positions) {
	doc, err := parseObject(data)
	if err != nil {
		return NewBag(), Positions{}
	}
	raw, ok := doc.Get(MetadataPositions)
	if !ok {
		return doc, Positions{}
	}
	return doc, ParsePositions(raw)
}

// DefaultMetadata is the metadata given to a newly created workflow.
func DefaultMetadata() *Bag {
	meta := NewBag()
	_ = meta.SetValue(MetadataPositions, Positions{StartStepID: {X: 250, Y: 50}})
	return meta
}
