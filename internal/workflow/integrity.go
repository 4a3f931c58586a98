package workflow

import "fmt"

// DanglingTransition is a transition pointer whose target step does not
// exist. Option is empty for a step's own next pointer.
type DanglingTransition struct {
	StepID string `json:"step_id" yaml:"step_id"`
	Option string `json:"option,omitempty" yaml:"option,omitempty"`
	Target string `json:"target" yaml:"target"`
}

func (d DanglingTransition) String() string {
	if d.Option != "" {
		return fmt.Sprintf("%s[%s] -> %s", d.StepID, d.Option, d.Target)
	}
	return fmt.Sprintf("%s -> %s", d.StepID, d.Target)
}

// DanglingTransitions lists every next and options_mapping pointer that
// names a missing step. It only reports; nothing is repaired.
func DanglingTransitions(steps *Steps) []DanglingTransition {
	var out []DanglingTransition
	for _, id := range steps.IDs() {
		step, _ := steps.Get(id)
		if step.Next != "" {
			if _, ok := steps.Get(step.Next); !ok {
				out = append(out, DanglingTransition{StepID: id, Target: step.Next})
			}
		}
		for _, b := range step.Branches() {
			if _, ok := steps.Get(b.Next); !ok {
				out = append(out, DanglingTransition{StepID: id, Option: b.Key, Target: b.Next})
			}
		}
	}
	return out
}
