package flow

import "strings"

var nameReplacer = strings.NewReplacer("-", "_", " ", "_", "/", "_")

// EcflowName turns an arbitrary string into a valid ecFlow node name.
func EcflowName(s string) string {
	return nameReplacer.Replace(s)
}
