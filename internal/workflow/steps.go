package workflow

import (
	"encoding/json"
	"fmt"
)

// StepType is the backend kind of a step.
type StepType string

const (
	StepTypeMessage        StepType = "MESSAGE"
	StepTypeQuestion       StepType = "QUESTION"
	StepTypeTool           StepType = "TOOL"
	StepTypeDynamicOptions StepType = "DYNAMIC_OPTIONS"
)

// StartStepID is the entry point of every workflow.
const StartStepID = "start"

// Content keys with a meaning to the codec.
const (
	ContentText           = "text"
	ContentSources        = "sources"
	ContentOptionsMapping = "options_mapping"
)

// Step is one named unit of a workflow. Content is nil when the stored step
// had no content or content that is not an object. Top-level fields other
// than stepId, type, content and next are kept and written back.
type Step struct {
	StepID  string
	Type    StepType
	Content *Bag
	Next    string

	extra *Bag
}

// Branch is one entry of a dynamic-options step's options_mapping.
type Branch struct {
	Key  string
	Next string
}

// Text returns content.text when it is a string.
func (s *Step) Text() (string, bool) {
	return s.Content.String(ContentText)
}

// Branches returns the options_mapping entries that carry a next pointer,
// in document order.
func (s *Step) Branches() []Branch {
	raw, ok := s.Content.Get(ContentOptionsMapping)
	if !ok {
		return nil
	}
	mapping, err := parseObject(raw)
	if err != nil {
		return nil
	}
	var out []Branch
	for _, key := range mapping.Keys() {
		entry, _ := mapping.Get(key)
		target, err := parseObject(entry)
		if err != nil {
			continue
		}
		if next, ok := target.String("next"); ok && next != "" {
			out = append(out, Branch{Key: key, Next: next})
		}
	}
	return out
}

// MarshalJSON writes stepId, type, content, next and then any extra
// fields.
func (s *Step) MarshalJSON() ([]byte, error) {
	out := NewBag()
	if err := out.SetValue("stepId", s.StepID); err != nil {
		return nil, err
	}
	if s.Type != "" {
		if err := out.SetValue("type", s.Type); err != nil {
			return nil, err
		}
	}
	if s.Content != nil {
		content, err := s.Content.MarshalJSON()
		if err != nil {
			return nil, err
		}
		out.Set("content", content)
	}
	if s.Next != "" {
		if err := out.SetValue("next", s.Next); err != nil {
			return nil, err
		}
	}
	for _, k := range s.extra.Keys() {
		if out.Has(k) {
			continue
		}
		v, _ := s.extra.Get(k)
		out.Set(k, v)
	}
	return out.MarshalJSON()
}

// parseStep never fails: a malformed step yields a bare step with only its
// id, and a malformed content leaves Content nil.
func parseStep(id string, raw json.RawMessage) *Step {
	step := &Step{StepID: id}
	fields, err := parseObject(raw)
	if err != nil {
		return step
	}
	for _, k := range fields.Keys() {
		v, _ := fields.Get(k)
		switch k {
		case "stepId":
			// the map key is authoritative
		case "type":
			var t string
			if json.Unmarshal(v, &t) == nil {
				step.Type = StepType(t)
			}
		case "content":
			if content, err := parseObject(v); err == nil {
				step.Content = content
			}
		case "next":
			var next string
			if json.Unmarshal(v, &next) == nil {
				step.Next = next
			}
		default:
			if step.extra == nil {
				step.extra = NewBag()
			}
			step.extra.Set(k, v)
		}
	}
	return step
}

// Steps is an ordered step-id → Step mapping.
type Steps struct {
	order []string
	byID  map[string]*Step
}

// NewSteps returns an empty step map.
func NewSteps() *Steps {
	return &Steps{byID: make(map[string]*Step)}
}

// Len returns the number of steps.
func (s *Steps) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// IDs returns step ids in document order.
func (s *Steps) IDs() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.order...)
}

// Get looks up a step by id.
func (s *Steps) Get(id string) (*Step, bool) {
	if s == nil {
		return nil, false
	}
	step, ok := s.byID[id]
	return step, ok
}

// Put inserts or replaces the step stored under step.StepID.
func (s *Steps) Put(step *Step) {
	if s.byID == nil {
		s.byID = make(map[string]*Step)
	}
	if _, ok := s.byID[step.StepID]; !ok {
		s.order = append(s.order, step.StepID)
	}
	s.byID[step.StepID] = step
}

// MarshalJSON writes the steps as an object keyed by step id.
func (s *Steps) MarshalJSON() ([]byte, error) {
	out := NewBag()
	if s != nil {
		for _, id := range s.order {
			raw, err := json.Marshal(s.byID[id])
			if err != nil {
				return nil, fmt.Errorf("workflow: encode step %q: %w", id, err)
			}
			out.Set(id, raw)
		}
	}
	return out.MarshalJSON()
}

// UnmarshalJSON accepts an object or a JSON string holding an object.
// Individual malformed steps are kept as bare steps.
func (s *Steps) UnmarshalJSON(data []byte) error {
	doc, err := parseObject(data)
	if err != nil {
		return err
	}
	out := NewSteps()
	for _, id := range doc.Keys() {
		raw, _ := doc.Get(id)
		out.Put(parseStep(id, raw))
	}
	*s = *out
	return nil
}

// ParseSteps decodes a stored step map. Anything unparseable yields an
// empty map; it never fails.
func ParseSteps(data []byte) *Steps {
	steps := NewSteps()
	if err := steps.UnmarshalJSON(data); err != nil {
		return NewSteps()
	}
	return steps
}

// DefaultSteps is the step map given to a newly created workflow.
func DefaultSteps() *Steps {
	content := NewBag()
	_ = content.SetValue(ContentText, "¡Hola! ¿En qué te puedo ayudar?")
	steps := NewSteps()
	steps.Put(&Step{
		StepID:  StartStepID,
		Type:    StepTypeDynamicOptions,
		Content: content,
	})
	return steps
}
