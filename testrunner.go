package fairy

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

// testStep is one scripted action. Coordinates are in stage space.
type testStep struct {
	Action string  `json:"action"`
	Label  string  `json:"label,omitempty"`
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	FromX  float64 `json:"fromX,omitempty"`
	FromY  float64 `json:"fromY,omitempty"`
	ToX    float64 `json:"toX,omitempty"`
	ToY    float64 `json:"toY,omitempty"`
	Frames int     `json:"frames,omitempty"`
	Back   bool    `json:"back,omitempty"`
}

var knownActions = []string{"click", "hover", "drag", "tab", "wait", "screenshot"}

// TestRunner plays a scripted sequence of injected pointer events, focus
// moves and screenshots across frames, for automated UI checks.
type TestRunner struct {
	steps []testStep
	next  int
	hold  int // frames left before the next step
	done  bool
}

// LoadTestScript parses a JSON script. Actions: click, hover, drag, tab
// (with "back" for reverse order), wait and screenshot.
func LoadTestScript(jsonData []byte) (*TestRunner, error) {
	var doc struct {
		Steps []testStep `json:"steps"`
	}
	if err := json.Unmarshal(jsonData, &doc); err != nil {
		return nil, fmt.Errorf("fairy: parse test script: %w", err)
	}
	if len(doc.Steps) == 0 {
		return nil, errors.New("fairy: parse test script: no steps")
	}
	for i, st := range doc.Steps {
		if !slices.Contains(knownActions, st.Action) {
			return nil, fmt.Errorf("fairy: parse test script: step %d: unknown action %q", i, st.Action)
		}
	}
	return &TestRunner{steps: doc.Steps}, nil
}

// SetTestRunner attaches a runner. It steps once per Update, before input
// is processed. nil detaches.
func (s *Stage) SetTestRunner(r *TestRunner) { s.testRunner = r }

// Done reports whether every step has run and its input drained.
func (r *TestRunner) Done() bool { return r.done }

// step advances the runner by one frame. Nothing advances while injected
// input is still queued.
func (r *TestRunner) step(s *Stage) {
	if r.done || s.PendingInjected() > 0 {
		return
	}
	switch {
	case r.hold > 0:
		r.hold--
	case r.next < len(r.steps):
		r.hold = r.perform(s, r.steps[r.next])
		r.next++
	}
	r.done = r.next == len(r.steps) && r.hold == 0 && s.PendingInjected() == 0
}

// perform runs st and returns how many further frames to hold.
func (r *TestRunner) perform(s *Stage, st testStep) int {
	switch st.Action {
	case "click":
		s.InjectClick(st.X, st.Y)
	case "hover":
		s.InjectHover(st.X, st.Y)
	case "drag":
		s.InjectDrag(st.FromX, st.FromY, st.ToX, st.ToY, max(st.Frames, 2))
	case "tab":
		s.FocusNext(st.Back)
	case "screenshot":
		s.Screenshot(st.Label)
	case "wait":
		// The current frame is the first one waited.
		return max(st.Frames-1, 0)
	}
	return 0
}
