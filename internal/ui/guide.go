package ui

import _ "embed"

//go:embed format.md
var formatGuide string

// FormatGuide returns the outline format reference as markdown.
func FormatGuide() string {
	return formatGuide
}
