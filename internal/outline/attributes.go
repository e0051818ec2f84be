package outline

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Attribute keys recognized in inline tags.
const (
	KeyAssignee  = 'a'
	KeyTracker   = 't'
	KeyStatus    = 's'
	KeyCategory  = 'c'
	KeyPriority  = 'p'
	KeyDoneRatio = 'd'
	KeyParent    = '^'
)

// Value bounds. Out-of-range values are replaced by the matching default.
const (
	MinPriority      = 1
	MaxPriority      = 5
	DefaultPriority  = 1
	MinDoneRatio     = 0
	MaxDoneRatio     = 100
	DefaultDoneRatio = 0
)

// tagPattern matches " k=123". Keys outside the class are never matched and
// stay in the subject text.
var tagPattern = regexp.MustCompile(` ([atscpd^])=([-+]?\d+)\b`)

// Attributes holds the optional issue fields set by inline tags. A nil
// field means the tag was absent (or dropped during validation).
type Attributes struct {
	AssignedToID  *int
	TrackerID     *int
	StatusID      *int
	CategoryID    *int
	PriorityID    *int
	DoneRatio     *int
	ParentIssueID *int
}

// IsZero reports whether no attribute is set.
func (a Attributes) IsZero() bool {
	return a == Attributes{}
}

// AttrWarning describes a tag value that was replaced or dropped.
type AttrWarning struct {
	Key     rune
	Value   string
	Message string
}

func (w AttrWarning) String() string {
	return fmt.Sprintf("%c=%s: %s", w.Key, w.Value, w.Message)
}

// ParseAttributes extracts inline tags from text and returns the subject
// with every matched tag removed. When a key repeats, the last value wins.
func ParseAttributes(text string) (string, Attributes, []AttrWarning) {
	var attrs Attributes
	var warnings []AttrWarning

	matches := tagPattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return strings.TrimSpace(text), attrs, nil
	}

	var subject strings.Builder
	prev := 0
	for _, m := range matches {
		subject.WriteString(text[prev:m[0]])
		prev = m[1]

		key := rune(text[m[2]])
		raw := text[m[4]:m[5]]
		if w, ok := attrs.set(key, raw); !ok {
			warnings = append(warnings, w)
		}
	}
	subject.WriteString(text[prev:])

	return strings.TrimSpace(subject.String()), attrs, warnings
}

// set stores one tag value, applying key-specific validation. It returns
// ok=false with a warning when the value had to be replaced or dropped.
func (a *Attributes) set(key rune, raw string) (AttrWarning, bool) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		// Only reachable on overflow; the pattern guarantees digits.
		w := AttrWarning{Key: key, Value: raw, Message: "value is not a valid integer, ignoring"}
		switch key {
		case KeyPriority:
			a.PriorityID = intPtr(DefaultPriority)
			w.Message = fmt.Sprintf("priority must be between %d and %d, using %d", MinPriority, MaxPriority, DefaultPriority)
		case KeyDoneRatio:
			a.DoneRatio = intPtr(DefaultDoneRatio)
			w.Message = fmt.Sprintf("done ratio must be between %d and %d, using %d", MinDoneRatio, MaxDoneRatio, DefaultDoneRatio)
		}
		return w, false
	}

	switch key {
	case KeyAssignee:
		a.AssignedToID = intPtr(n)
	case KeyTracker:
		a.TrackerID = intPtr(n)
	case KeyStatus:
		a.StatusID = intPtr(n)
	case KeyCategory:
		a.CategoryID = intPtr(n)
	case KeyParent:
		a.ParentIssueID = intPtr(n)
	case KeyPriority:
		if n < MinPriority || n > MaxPriority {
			a.PriorityID = intPtr(DefaultPriority)
			return AttrWarning{
				Key:     key,
				Value:   raw,
				Message: fmt.Sprintf("priority must be between %d and %d, using %d", MinPriority, MaxPriority, DefaultPriority),
			}, false
		}
		a.PriorityID = intPtr(n)
	case KeyDoneRatio:
		if n < MinDoneRatio || n > MaxDoneRatio {
			a.DoneRatio = intPtr(DefaultDoneRatio)
			return AttrWarning{
				Key:     key,
				Value:   raw,
				Message: fmt.Sprintf("done ratio must be between %d and %d, using %d", MinDoneRatio, MaxDoneRatio, DefaultDoneRatio),
			}, false
		}
		a.DoneRatio = intPtr(n)
	}
	return AttrWarning{}, true
}

func intPtr(n int) *int {
	return &n
}
