package redmine

// Project is a Redmine project as returned by GET projects.json.
type Project struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Identifier  string `json:"identifier,omitempty"`
	Description string `json:"description,omitempty"`
	Status      int    `json:"status,omitempty"`
	Parent      *Ref   `json:"parent,omitempty"`
}

// ProjectList is the envelope of GET projects.json.
type ProjectList struct {
	Projects   []Project `json:"projects"`
	TotalCount int       `json:"total_count"`
	Offset     int       `json:"offset"`
	Limit      int       `json:"limit"`
}

// Ref is the {id, name} pair Redmine uses for nested references.
type Ref struct {
	ID   int    `json:"id"`
	Name string `json:"name,omitempty"`
}

// Issue is a Redmine issue. Only the fields the importer reads are decoded.
type Issue struct {
	ID         int    `json:"id"`
	Subject    string `json:"subject"`
	Project    *Ref   `json:"project,omitempty"`
	Tracker    *Ref   `json:"tracker,omitempty"`
	Status     *Ref   `json:"status,omitempty"`
	Priority   *Ref   `json:"priority,omitempty"`
	AssignedTo *Ref   `json:"assigned_to,omitempty"`
	Category   *Ref   `json:"category,omitempty"`
	Parent     *Ref   `json:"parent,omitempty"`
	DoneRatio  int    `json:"done_ratio"`
}

// IssueList is the envelope of GET issues.json.
type IssueList struct {
	Issues     []Issue `json:"issues"`
	TotalCount int     `json:"total_count"`
	Offset     int     `json:"offset"`
	Limit      int     `json:"limit"`
}

// NewIssue is the payload of POST issues.json. Optional fields are
// pointers so that an explicit zero (done_ratio=0) is still sent.
type NewIssue struct {
	ProjectID     int    `json:"project_id"`
	Subject       string `json:"subject"`
	ParentIssueID *int   `json:"parent_issue_id,omitempty"`
	AssignedToID  *int   `json:"assigned_to_id,omitempty"`
	TrackerID     *int   `json:"tracker_id,omitempty"`
	StatusID      *int   `json:"status_id,omitempty"`
	CategoryID    *int   `json:"category_id,omitempty"`
	PriorityID    *int   `json:"priority_id,omitempty"`
	DoneRatio     *int   `json:"done_ratio,omitempty"`
	Description   string `json:"description,omitempty"`
}

type issueEnvelope struct {
	Issue Issue `json:"issue"`
}

type newIssueEnvelope struct {
	Issue *NewIssue `json:"issue"`
}

// errorBody is the body Redmine returns with 422 responses.
type errorBody struct {
	Errors []string `json:"errors"`
}
