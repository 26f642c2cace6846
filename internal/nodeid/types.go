package nodeid

// PathSegment represents a single component of an address path.
type PathSegment struct {
	Name string
}

// NewPathSegment creates a new path segment.
func NewPathSegment(name string) PathSegment {
	return PathSegment{Name: name}
}

// IsParent reports whether the segment is the `..` step.
func (ps PathSegment) IsParent() bool { return ps.Name == ".." }

// IsCurrent reports whether the segment is the `.` step.
func (ps PathSegment) IsCurrent() bool { return ps.Name == "." }

// Address is the structured representation of a node or attribute address.
type Address struct {
	Absolute bool
	Path     []PathSegment
	// Attr names an attribute of the addressed node, empty for the node itself.
	Attr string
}

// HasAttr reports whether the address points at an attribute.
func (a *Address) HasAttr() bool { return a != nil && a.Attr != "" }

// Node returns a copy of the address without its attribute suffix.
func (a *Address) Node() *Address {
	if a == nil {
		return nil
	}
	path := make([]PathSegment, len(a.Path))
	copy(path, a.Path)
	return &Address{Absolute: a.Absolute, Path: path}
}
