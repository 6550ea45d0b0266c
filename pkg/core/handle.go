package core

// Handle identifies "the column named Name in the current table".
// It carries no data; resolving a handle whose name is no longer a
// column fails with UnboundVariableError.
type Handle struct {
	Name string
}

// H is shorthand for Handle{Name: name}.
func H(name string) Handle {
	return Handle{Name: name}
}

// String returns the handle's column name.
func (h Handle) String() string {
	return h.Name
}

// HandleNames returns the names carried by hs, in order.
func HandleNames(hs []Handle) []string {
	names := make([]string, len(hs))
	for i, h := range hs {
		names[i] = h.Name
	}
	return names
}
