package usecase

import (
	"fmt"
	"sync"

	"github.com/invopilot/docflow/internal/core/domain"
)

// stageRules is the authoritative transition table. Any edge not listed here
// is illegal, including every edge out of a terminal stage.
var stageRules = map[domain.Stage][]domain.Stage{
	domain.StageUploaded:    {domain.StageExtracting},
	domain.StageExtracting:  {domain.StageApproved, domain.StageNeedsReview, domain.StageRejected},
	domain.StageNeedsReview: {domain.StageApproved, domain.StageRejected},
	domain.StageApproved:    {domain.StageArchived, domain.StageRejected},
}

// ensureTransition validates an edge against the table. Failing calls are
// no-ops for the caller: no mutation has happened yet.
func ensureTransition(from, to domain.Stage) error {
	for _, allowed := range stageRules[from] {
		if allowed == to {
			return nil
		}
	}
	return domain.WrapError(domain.ErrIllegalTransition, "stage transition",
		fmt.Errorf("%s -> %s", from, to))
}

// docLocks serializes writers per document. Different documents never
// contend; the registry itself is only held long enough to look up the
// per-document mutex.
type docLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newDocLocks() *docLocks {
	return &docLocks{locks: make(map[string]*sync.Mutex)}
}

func (l *docLocks) lock(id string) func() {
	l.mu.Lock()
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
