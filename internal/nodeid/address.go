package nodeid

import (
	"reflect"
	"strings"
)

// String serializes the Address into its canonical path string representation.
func (a *Address) String() string {
	if a == nil {
		return ""
	}

	var sb strings.Builder
	if a.Absolute {
		sb.WriteRune('/')
	}
	for i, segment := range a.Path {
		if i > 0 {
			sb.WriteRune('/')
		}
		sb.WriteString(segment.Name)
	}
	if a.Attr != "" {
		sb.WriteRune(':')
		sb.WriteString(a.Attr)
	}

	return sb.String()
}

// Names returns the segment names in order.
func (a *Address) Names() []string {
	if a == nil {
		return nil
	}
	names := make([]string, len(a.Path))
	for i, s := range a.Path {
		names[i] = s.Name
	}
	return names
}

// Equal checks for deep equality between two Address pointers.
func (a *Address) Equal(other *Address) bool {
	if a == nil || other == nil {
		return a == other
	}
	return a.Absolute == other.Absolute && a.Attr == other.Attr && reflect.DeepEqual(a.Path, other.Path)
}
