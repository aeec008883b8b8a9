package horizon

import (
	"encoding"
	"encoding/json"
	"fmt"
)

// Algorithm identifies the optimization method used for a stage.
type Algorithm int

const (
	Adam            Algorithm = iota + 1 // First-order, bias-corrected moments.
	GradientDescent                      // Fixed step along the negative gradient.
	BFGS                                 // Quasi-Newton with line search.
	LBFGS                                // Limited-memory BFGS.
	NelderMead                           // Derivative-free simplex.
)

var (
	algorithmNames = [...]string{
		Adam:            "adam",
		GradientDescent: "gradient-descent",
		BFGS:            "bfgs",
		LBFGS:           "lbfgs",
		NelderMead:      "nelder-mead",
	}
	algorithmByName = map[string]Algorithm{
		"adam":             Adam,
		"gradient-descent": GradientDescent,
		"bfgs":             BFGS,
		"lbfgs":            LBFGS,
		"nelder-mead":      NelderMead,
	}
)

// Compile-time interface checks.
var (
	_ fmt.Stringer             = Algorithm(0)
	_ json.Marshaler           = Algorithm(0)
	_ json.Unmarshaler         = (*Algorithm)(nil)
	_ encoding.TextMarshaler   = Algorithm(0)
	_ encoding.TextUnmarshaler = (*Algorithm)(nil)
)

// String returns the configuration name of the algorithm ("adam", "bfgs", ...).
// For invalid values it returns "Algorithm(n)".
func (a Algorithm) String() string {
	if a.IsValid() {
		return algorithmNames[a]
	}
	return fmt.Sprintf("Algorithm(%d)", int(a))
}

// IsValid reports whether a names a known algorithm.
func (a Algorithm) IsValid() bool {
	return a >= Adam && a <= NelderMead
}

// MarshalText implements encoding.TextMarshaler.
func (a Algorithm) MarshalText() ([]byte, error) {
	if !a.IsValid() {
		return nil, fmt.Errorf("%w: algorithm %d", ErrInvalidConfig, int(a))
	}
	return []byte(algorithmNames[a]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Algorithm) UnmarshalText(text []byte) error {
	v, ok := algorithmByName[string(text)]
	if !ok {
		return fmt.Errorf("%w: algorithm %q", ErrInvalidConfig, text)
	}
	*a = v
	return nil
}

// MarshalJSON implements json.Marshaler. Algorithm serializes as a JSON string.
func (a Algorithm) MarshalJSON() ([]byte, error) {
	text, err := a.MarshalText()
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(text))
}

// UnmarshalJSON implements json.Unmarshaler. Expects a JSON string.
func (a *Algorithm) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: algorithm %s", ErrInvalidConfig, data)
	}
	return a.UnmarshalText([]byte(s))
}
