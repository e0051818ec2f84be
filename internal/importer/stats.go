package importer

import "fmt"

// Stats tracks the outcome of a run. Errors and Warnings only ever grow;
// they drive the summary and exit status, never the processing of later lines.
type Stats struct {
	Lines    int `json:"lines"`    // physical lines read
	Projects int `json:"projects"` // project headers resolved
	Created  int `json:"created"`  // issues created remotely
	Reused   int `json:"reused"`   // existing issues reused in dedupe mode
	Skipped  int `json:"skipped"`  // blank and comment lines
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
}

// Clean reports whether the run finished without errors or warnings.
func (s Stats) Clean() bool {
	return s.Errors == 0 && s.Warnings == 0
}

func (s Stats) String() string {
	return fmt.Sprintf("%d lines, %d created, %d reused, %d errors, %d warnings",
		s.Lines, s.Created, s.Reused, s.Errors, s.Warnings)
}
