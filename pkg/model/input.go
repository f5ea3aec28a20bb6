package model

import (
	"errors"
	"strings"
)

var ErrUnknownInput = errors.New("unknown input")

// Observation is emitted by the render layer on every scroll event.
type Observation struct {
	ScrollTop    float64 `json:"scrollTop"`
	ScrollHeight float64 `json:"scrollHeight"`
	ClientHeight float64 `json:"clientHeight"`
}

// DistanceFromBottom returns how many pixels are left below the viewport.
func (o Observation) DistanceFromBottom() float64 {
	return o.ScrollHeight - o.ScrollTop - o.ClientHeight
}

type DeltaUnit uint8

const (
	Pixels DeltaUnit = iota
	Lines
	Pages
)

func (u DeltaUnit) String() string {
	switch u {
	case Lines:
		return "lines"
	case Pages:
		return "pages"
	default:
		return "pixels"
	}
}

func ParseDeltaUnit(s string) (DeltaUnit, error) {
	switch strings.ToLower(s) {
	case "", "pixel", "pixels":
		return Pixels, nil
	case "line", "lines":
		return Lines, nil
	case "page", "pages":
		return Pages, nil
	default:
		return Pixels, errors.Join(ErrUnknownInput, errors.New("delta unit: "+s))
	}
}

// WheelInput is a raw wheel tick as reported by an input device.
type WheelInput struct {
	DeltaY float64
	Unit   DeltaUnit
}

type Key uint8

const (
	KeyUnknown Key = iota
	ArrowUp
	ArrowDown
	PageUp
	PageDown
	Home
	End
)

var keyNames = [...]string{
	KeyUnknown: "Unknown",
	ArrowUp:    "ArrowUp",
	ArrowDown:  "ArrowDown",
	PageUp:     "PageUp",
	PageDown:   "PageDown",
	Home:       "Home",
	End:        "End",
}

func (k Key) String() string {
	if int(k) < len(keyNames) {
		return keyNames[k]
	}
	return keyNames[KeyUnknown]
}

func ParseKey(s string) (Key, error) {
	for k, name := range keyNames {
		if k != int(KeyUnknown) && strings.EqualFold(name, s) {
			return Key(k), nil
		}
	}
	return KeyUnknown, errors.Join(ErrUnknownInput, errors.New("key: "+s))
}
