package importer

import (
	"strings"

	"github.com/steveyegge/easyimport/internal/redmine"
)

// projectContext is the active project and a lazily loaded snapshot of its
// issues (id -> subject).
type projectContext struct {
	id   int
	name string

	loaded   bool
	order    []int
	subjects map[int]string
}

func newProjectContext(id int, name string) *projectContext {
	return &projectContext{id: id, name: name}
}

// invalidate drops the cached issues; the next lookup refetches them.
func (p *projectContext) invalidate() {
	p.loaded = false
	p.order = nil
	p.subjects = nil
}

func (p *projectContext) fill(issues []redmine.Issue) {
	p.order = make([]int, 0, len(issues))
	p.subjects = make(map[int]string, len(issues))
	for _, is := range issues {
		p.remember(is.ID, is.Subject)
	}
	p.loaded = true
}

// remember adds an issue created during the run. It is a no-op until the
// cache has been loaded, since the next load will include it anyway.
func (p *projectContext) remember(id int, subject string) {
	if p.subjects == nil {
		return
	}
	if _, ok := p.subjects[id]; !ok {
		p.order = append(p.order, id)
	}
	p.subjects[id] = subject
}

func (p *projectContext) has(id int) bool {
	_, ok := p.subjects[id]
	return ok
}

// findBySubject returns the first cached issue with a matching subject, or 0.
func (p *projectContext) findBySubject(subject string) int {
	for _, id := range p.order {
		if strings.EqualFold(p.subjects[id], subject) {
			return id
		}
	}
	return 0
}
