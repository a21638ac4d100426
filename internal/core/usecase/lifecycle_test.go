package usecase

import (
	"testing"

	"github.com/invopilot/docflow/internal/core/domain"
)

var allStages = []domain.Stage{
	domain.StageUploaded,
	domain.StageExtracting,
	domain.StageNeedsReview,
	domain.StageApproved,
	domain.StageArchived,
	domain.StageRejected,
}

func TestEnsureTransitionCoversExactTable(t *testing.T) {
	legal := map[[2]domain.Stage]bool{
		{domain.StageUploaded, domain.StageExtracting}:     true,
		{domain.StageExtracting, domain.StageApproved}:     true,
		{domain.StageExtracting, domain.StageNeedsReview}:  true,
		{domain.StageExtracting, domain.StageRejected}:     true,
		{domain.StageNeedsReview, domain.StageApproved}:    true,
		{domain.StageNeedsReview, domain.StageRejected}:    true,
		{domain.StageApproved, domain.StageArchived}:       true,
		{domain.StageApproved, domain.StageRejected}:       true,
	}

	for _, from := range allStages {
		for _, to := range allStages {
			err := ensureTransition(from, to)
			if legal[[2]domain.Stage{from, to}] {
				if err != nil {
					t.Fatalf("expected %s -> %s legal, got %v", from, to, err)
				}
				continue
			}
			if err == nil {
				t.Fatalf("expected %s -> %s illegal", from, to)
			}
			if !domain.IsKind(err, domain.ErrIllegalTransition) {
				t.Fatalf("expected ErrIllegalTransition for %s -> %s, got %v", from, to, err)
			}
		}
	}
}

func TestTerminalStagesHaveNoOutgoingEdges(t *testing.T) {
	for _, terminal := range []domain.Stage{domain.StageArchived, domain.StageRejected} {
		if edges := stageRules[terminal]; len(edges) != 0 {
			t.Fatalf("terminal stage %s has outgoing edges: %v", terminal, edges)
		}
	}
}

func TestDocLocksIndependentDocuments(t *testing.T) {
	locks := newDocLocks()

	unlockA := locks.lock("a")
	// A held; b must still be acquirable without blocking.
	done := make(chan struct{})
	go func() {
		unlockB := locks.lock("b")
		unlockB()
		close(done)
	}()
	<-done
	unlockA()
}
