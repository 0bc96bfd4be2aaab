package features

import (
	"path/filepath"
	"strings"
)

// DefaultLabelDelimiter separates the class prefix from the rest of a file name.
const DefaultLabelDelimiter = "_"

// AssignClass derives a class label from a recording file name: the part
// of the base name before the first delimiter. Without a delimiter the
// whole base name is returned. The label is not checked against any known
// class set.
func AssignClass(fileName, delimiter string) string {
	if delimiter == "" {
		delimiter = DefaultLabelDelimiter
	}
	base := filepath.Base(fileName)
	label, _, _ := strings.Cut(base, delimiter)
	return label
}

// UnknownLabels returns the labels in t that are not in expected, in
// first-seen order. An empty expected set accepts everything.
func UnknownLabels(t Table, expected []string) []string {
	if len(expected) == 0 {
		return nil
	}
	known := make(map[string]struct{}, len(expected))
	for _, l := range expected {
		known[l] = struct{}{}
	}

	var unknown []string
	seen := make(map[string]struct{})
	for _, row := range t.Rows {
		if _, ok := known[row.Class]; ok {
			continue
		}
		if _, dup := seen[row.Class]; dup {
			continue
		}
		seen[row.Class] = struct{}{}
		unknown = append(unknown, row.Class)
	}
	return unknown
}
