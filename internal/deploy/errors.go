package deploy

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// ConflictError is returned when two different contents are deployed to
// the same target.
type ConflictError struct {
	Target string
	// Diff shows the earlier content against the rejected one, one line
	// per entry prefixed with "-", "+" or " ".
	Diff string
}

func (e *ConflictError) Error() string {
	msg := "Scripts deployed with the same name must be unique within one AnchorFamily or Suite: " + e.Target
	if e.Diff != "" {
		msg += "\n" + e.Diff
	}
	return msg
}

// lineDiff renders a line oriented diff between two texts.
func lineDiff(before, after string) string {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var sb strings.Builder
	for _, d := range diffs {
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			sb.WriteString(prefix + strings.TrimSuffix(line, "\n") + "\n")
		}
	}
	return strings.TrimSuffix(sb.String(), "\n")
}
