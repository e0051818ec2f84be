package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrProjectNotFound is returned when no project matches a name.
var ErrProjectNotFound = errors.New("project not found")

// ProjectIndex is a snapshot of the remote projects, in API order.
type ProjectIndex struct {
	IDs   []int
	Names map[int]string

	// Truncated is set when the server holds more projects than one page.
	Truncated bool
	Total     int
}

// ListProjects fetches all projects in a single call. Pagination is not
// followed: a project set larger than one page yields an incomplete index
// with Truncated set.
func ListProjects(ctx context.Context, t Tracker) (ProjectIndex, error) {
	list, err := t.ListProjects(ctx)
	if err != nil {
		return ProjectIndex{}, err
	}

	idx := ProjectIndex{
		IDs:   make([]int, 0, len(list.Projects)),
		Names: make(map[int]string, len(list.Projects)),
		Total: list.TotalCount,
	}
	for _, p := range list.Projects {
		if _, dup := idx.Names[p.ID]; dup {
			continue
		}
		idx.IDs = append(idx.IDs, p.ID)
		idx.Names[p.ID] = p.Name
	}
	idx.Truncated = list.TotalCount > len(idx.IDs)
	return idx, nil
}

// Len returns the number of indexed projects.
func (idx ProjectIndex) Len() int {
	return len(idx.IDs)
}

// FindByName returns the id of the first project whose name matches
// case-insensitively. There is no fuzzy matching.
func (idx ProjectIndex) FindByName(name string) (int, error) {
	for _, id := range idx.IDs {
		if strings.EqualFold(idx.Names[id], name) {
			return id, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrProjectNotFound, name)
}
