package runs

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"deskreport/pkg/contracts/domain"
)

// MemoryStore is an in-memory ReportStore and RunStore.
type MemoryStore struct {
	mu      sync.RWMutex
	reports map[string]*domain.Report
	runs    map[string]*storedRun
	seq     int64
}

type storedRun struct {
	run *domain.ReportRun
	seq int64
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		reports: make(map[string]*domain.Report),
		runs:    make(map[string]*storedRun),
	}
}

// SaveReport inserts or replaces a report.
func (s *MemoryStore) SaveReport(_ context.Context, report *domain.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reports[report.ID] = report.Clone()
	return nil
}

// FindReport implements ReportStore.
func (s *MemoryStore) FindReport(_ context.Context, workspaceID, reportID string) (*domain.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reports[reportID]
	if !ok || r.WorkspaceID != workspaceID {
		return nil, nil
	}
	return r.Clone(), nil
}

// UpdateReport implements ReportStore.
func (s *MemoryStore) UpdateReport(_ context.Context, report *domain.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.reports[report.ID]
	if !ok || existing.WorkspaceID != report.WorkspaceID {
		return fmt.Errorf("%w: %s", ErrReportNotFound, report.ID)
	}
	s.reports[report.ID] = report.Clone()
	return nil
}

// CreateRun implements RunStore. New runs must be pending.
func (s *MemoryStore) CreateRun(_ context.Context, run *domain.ReportRun) error {
	if run.Status != domain.RunStatusPending {
		return fmt.Errorf("%w: runs are created pending, got %s", ErrInvalidTransition, run.Status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[run.ID]; exists {
		return fmt.Errorf("%w: %s", ErrRunExists, run.ID)
	}
	s.seq++
	s.runs[run.ID] = &storedRun{run: run.Clone(), seq: s.seq}
	return nil
}

// MarkRunning implements RunStore.
func (s *MemoryStore) MarkRunning(_ context.Context, workspaceID, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, err := s.lookup(workspaceID, runID)
	if err != nil {
		return err
	}
	if run.Status != domain.RunStatusPending {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, run.Status, domain.RunStatusRunning)
	}
	run.Status = domain.RunStatusRunning
	return nil
}

// CompleteRun implements RunStore.
func (s *MemoryStore) CompleteRun(_ context.Context, workspaceID, runID string, c Completion) error {
	if err := c.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	run, err := s.lookup(workspaceID, runID)
	if err != nil {
		return err
	}
	if run.Status != domain.RunStatusRunning {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, run.Status, c.Status)
	}

	completedAt := c.CompletedAt
	run.Status = c.Status
	run.RowCount = c.RowCount
	run.FileBytes = append([]byte(nil), c.FileBytes...)
	run.ContentType = c.ContentType
	run.FileName = c.FileName
	run.CompletedAt = &completedAt
	if len(run.FileBytes) == 0 {
		run.FileBytes = nil
	}
	return nil
}

// FindRun implements RunStore.
func (s *MemoryStore) FindRun(_ context.Context, workspaceID, runID string) (*domain.ReportRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, err := s.lookup(workspaceID, runID)
	if err != nil {
		return nil, nil
	}
	return run.Clone(), nil
}

// ListRunsForReport implements RunStore.
func (s *MemoryStore) ListRunsForReport(_ context.Context, workspaceID, reportID string, take int) ([]*domain.ReportRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*storedRun
	for _, sr := range s.runs {
		if sr.run.WorkspaceID == workspaceID && sr.run.ReportID == reportID {
			matched = append(matched, sr)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.run.StartedAt.Equal(b.run.StartedAt) {
			return a.run.StartedAt.After(b.run.StartedAt)
		}
		return a.seq > b.seq
	})

	if take > 0 && len(matched) > take {
		matched = matched[:take]
	}

	result := make([]*domain.ReportRun, len(matched))
	for i, sr := range matched {
		result[i] = sr.run.Clone()
	}
	return result, nil
}

// lookup must be called with the lock held.
func (s *MemoryStore) lookup(workspaceID, runID string) (*domain.ReportRun, error) {
	sr, ok := s.runs[runID]
	if !ok || sr.run.WorkspaceID != workspaceID {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return sr.run, nil
}
