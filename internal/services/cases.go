package services

import (
	"log"
	"sync"

	"gorm.io/gorm"

	"github.com/zarishnasir123/LawFlow-sub000/internal/bundle"
	"github.com/zarishnasir123/LawFlow-sub000/internal/persist"
	"github.com/zarishnasir123/LawFlow-sub000/internal/uploads"
)

// CaseManager hands out the per-case bundle store, loading it lazily from the
// snapshot slot, and flushes dirty stores back on demand or on the autosave
// tick. It is the injected application-state handle: nothing else holds
// ambient bundle state.
type CaseManager struct {
	db      *gorm.DB
	uploads *uploads.Store

	mu      sync.Mutex
	cases   map[string]*bundle.Store
	reports map[string]persist.LoadReport
}

func NewCaseManager(db *gorm.DB, up *uploads.Store) *CaseManager {
	return &CaseManager{
		db:      db,
		uploads: up,
		cases:   map[string]*bundle.Store{},
		reports: map[string]persist.LoadReport{},
	}
}

// Get returns the case's store, loading it from the snapshot slot on first
// access.
func (m *CaseManager) Get(caseID string) *bundle.Store {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok := m.cases[caseID]; ok {
		return st
	}
	st, report := persist.LoadSnapshot(m.db, caseID)
	if report.Err != nil {
		log.Printf("case %s: snapshot load: %v (falling back to empty bundle)", caseID, report.Err)
	}
	if m.uploads != nil {
		st.SetReleaseFunc(m.uploads.Release)
	}
	m.cases[caseID] = st
	m.reports[caseID] = report
	return st
}

// Report returns what happened when the case was loaded, so the UI can
// surface a corrupt-snapshot fallback instead of silently losing data.
func (m *CaseManager) Report(caseID string) persist.LoadReport {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reports[caseID]
}

// Save snapshots one case immediately.
func (m *CaseManager) Save(caseID string) error {
	m.mu.Lock()
	st, ok := m.cases[caseID]
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return persist.SaveSnapshot(m.db, st)
}

// FlushDirty snapshots every dirty case. Best effort: failures are logged and
// the next tick retries, edits are never blocked on a flush.
func (m *CaseManager) FlushDirty() int {
	m.mu.Lock()
	dirty := make([]*bundle.Store, 0)
	for _, st := range m.cases {
		if st.Dirty() {
			dirty = append(dirty, st)
		}
	}
	m.mu.Unlock()

	saved := 0
	for _, st := range dirty {
		if err := persist.SaveSnapshot(m.db, st); err != nil {
			log.Printf("autosave case %s: %v", st.CaseID(), err)
			continue
		}
		saved++
	}
	return saved
}
