package nodeid

import (
	"fmt"
	"regexp"
	"strings"
)

// segmentRegex matches a node name. Names start with a letter, digit or
// underscore; `.` and `..` are accepted separately.
var segmentRegex = regexp.MustCompile(`^[a-zA-Z0-9_][a-zA-Z0-9_.]*$`)

var attrRegex = regexp.MustCompile(`^[a-zA-Z0-9_][a-zA-Z0-9_.-]*$`)

func isValidSegmentName(name string) bool {
	if name == "." || name == ".." {
		return true
	}
	return segmentRegex.MatchString(name)
}

// Parse creates a new Address struct by parsing its canonical string representation.
func Parse(rawID string) (*Address, error) {
	if rawID == "" {
		return nil, fmt.Errorf("identifier cannot be empty")
	}

	addr := &Address{}
	pathPart := rawID
	if i := strings.LastIndex(rawID, ":"); i >= 0 {
		pathPart, addr.Attr = rawID[:i], rawID[i+1:]
		if !attrRegex.MatchString(addr.Attr) {
			return nil, fmt.Errorf("invalid attribute name: %q", addr.Attr)
		}
	}

	if strings.HasPrefix(pathPart, "/") {
		addr.Absolute = true
		pathPart = pathPart[1:]
	}
	if pathPart == "" {
		if addr.Absolute {
			return nil, fmt.Errorf("identifier %q names no node", rawID)
		}
		// ":attr" addresses an attribute of the current node.
		addr.Path = []PathSegment{NewPathSegment(".")}
		return addr, nil
	}

	for _, segmentStr := range strings.Split(pathPart, "/") {
		if segmentStr == "" {
			return nil, fmt.Errorf("identifier path contains empty segment")
		}
		if !isValidSegmentName(segmentStr) {
			return nil, fmt.Errorf("invalid path segment format: %q", segmentStr)
		}
		addr.Path = append(addr.Path, NewPathSegment(segmentStr))
	}

	return addr, nil
}

// MustParse is like Parse but panics on error. It is intended for
// constant addresses in tests and tables.
func MustParse(rawID string) *Address {
	addr, err := Parse(rawID)
	if err != nil {
		panic(err)
	}
	return addr
}
