// Package outline classifies the lines of an import outline file.
//
// An outline is plain text, one record per line:
//
//	Project Name
//	- Top level issue p=3
//	-- Child issue a=5 d=50
//	# comments and blank lines are ignored
//
// A line without leading depth markers names a project. A line with N
// leading depth markers is an issue at depth N. Inline attribute tags
// (see ParseAttributes) are stripped from the issue subject.
package outline

import (
	"strings"
)

const (
	// DepthMarker is repeated at the start of an issue line; the count is the depth.
	DepthMarker = '-'
	// CommentMarker starts a line that is ignored.
	CommentMarker = '#'
)

// utf8BOM is tolerated at the start of the first line (editors on Windows add it).
const utf8BOM = "\uFEFF"

// Kind is the classification of a single outline line.
type Kind int

const (
	KindBlank Kind = iota
	KindComment
	KindProject
	KindIssue
)

func (k Kind) String() string {
	switch k {
	case KindBlank:
		return "blank"
	case KindComment:
		return "comment"
	case KindProject:
		return "project"
	case KindIssue:
		return "issue"
	default:
		return "unknown"
	}
}

// Line is one classified outline record.
type Line struct {
	Number int    // 1-based line number in the input
	Raw    string // text as read, without the line terminator
	Kind   Kind

	// Depth is the number of leading depth markers. Only set for KindIssue,
	// where it is always >= 1.
	Depth int

	// Text is the project name for KindProject and the cleaned issue
	// subject (markers and attribute tags removed) for KindIssue.
	Text string

	// Attrs and Warnings are only populated for KindIssue.
	Attrs    Attributes
	Warnings []AttrWarning
}

// Classify parses a single raw line. Classification order matters: blank,
// then comment, then project header, then issue.
func Classify(number int, raw string) Line {
	if number == 1 {
		raw = strings.TrimPrefix(raw, utf8BOM)
	}
	line := Line{Number: number, Raw: raw}

	switch {
	case strings.TrimSpace(raw) == "":
		line.Kind = KindBlank
	case raw[0] == CommentMarker:
		line.Kind = KindComment
	case raw[0] != DepthMarker:
		line.Kind = KindProject
		line.Text = strings.TrimSpace(raw)
	default:
		line.Kind = KindIssue
		line.Depth = countDepth(raw)
		// Markers and separator spaces are stripped together, so "- -x" and
		// "--x" both clean to "x".
		cleaned := strings.TrimLeft(raw, "- \t")
		line.Text, line.Attrs, line.Warnings = ParseAttributes(cleaned)
	}
	return line
}

func countDepth(raw string) int {
	depth := 0
	for depth < len(raw) && raw[depth] == DepthMarker {
		depth++
	}
	return depth
}
