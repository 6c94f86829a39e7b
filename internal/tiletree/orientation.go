package tiletree

import (
	"fmt"
	"strings"
)

// Orientation is the axis along which a container lays out its children.
type Orientation int

const (
	None Orientation = iota
	Horizontal
	Vertical
)

func (o Orientation) String() string {
	switch o {
	case Horizontal:
		return "horizontal"
	case Vertical:
		return "vertical"
	default:
		return "none"
	}
}

// ParseOrientation accepts "horizontal", "vertical" and "none".
func ParseOrientation(s string) (Orientation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "horizontal":
		return Horizontal, nil
	case "vertical":
		return Vertical, nil
	case "", "none":
		return None, nil
	default:
		return None, fmt.Errorf("invalid orientation %q", s)
	}
}
