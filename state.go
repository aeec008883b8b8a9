package horizon

import (
	"encoding"
	"encoding/json"
	"fmt"
)

// StageState is the progress of a single curriculum stage.
// Stages move strictly NotStarted -> Running -> Completed or Failed.
type StageState int

const (
	NotStarted StageState = iota + 1 // Planned, not yet run.
	Running                          // Optimizer invoked.
	Completed                        // Refined parameters produced.
	Failed                           // Optimizer or simulator failed.
)

var (
	stateNames = [...]string{
		NotStarted: "NotStarted",
		Running:    "Running",
		Completed:  "Completed",
		Failed:     "Failed",
	}
	stateByName = map[string]StageState{
		"NotStarted": NotStarted,
		"Running":    Running,
		"Completed":  Completed,
		"Failed":     Failed,
	}
)

// Compile-time interface checks.
var (
	_ fmt.Stringer             = StageState(0)
	_ json.Marshaler           = StageState(0)
	_ json.Unmarshaler         = (*StageState)(nil)
	_ encoding.TextMarshaler   = StageState(0)
	_ encoding.TextUnmarshaler = (*StageState)(nil)
)

func (s StageState) isValid() bool {
	return s >= NotStarted && s <= Failed
}

// Terminal reports whether no further transition is possible.
func (s StageState) Terminal() bool {
	return s == Completed || s == Failed
}

// String returns the name of the state. For invalid values it returns "StageState(n)".
func (s StageState) String() string {
	if s.isValid() {
		return stateNames[s]
	}
	return fmt.Sprintf("StageState(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s StageState) MarshalText() ([]byte, error) {
	if !s.isValid() {
		return nil, fmt.Errorf("horizon: invalid stage state: %d", int(s))
	}
	return []byte(stateNames[s]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *StageState) UnmarshalText(text []byte) error {
	v, ok := stateByName[string(text)]
	if !ok {
		return fmt.Errorf("horizon: invalid stage state: %q", text)
	}
	*s = v
	return nil
}

// MarshalJSON implements json.Marshaler. StageState serializes as a JSON string.
func (s StageState) MarshalJSON() ([]byte, error) {
	text, err := s.MarshalText()
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(text))
}

// UnmarshalJSON implements json.Unmarshaler. Expects a JSON string.
func (s *StageState) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("horizon: invalid stage state: %s", data)
	}
	return s.UnmarshalText([]byte(str))
}
