package service

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/settlelinecompany-commits/contract-intelligence-agent/config"
	"github.com/settlelinecompany-commits/contract-intelligence-agent/model"
)

// AnalysisStore keeps recent analyses in memory so clients can re-fetch
// results. It is capped; oldest entries are evicted first. Durable
// persistence is deliberately out of scope.
type AnalysisStore struct {
	mu          sync.RWMutex
	analyses    map[string]*model.Analysis
	maxAnalyses int // 0 = unlimited
}

func NewAnalysisStore(cfg *config.StoreConfig) *AnalysisStore {
	maxAnalyses := cfg.MaxAnalyses
	if maxAnalyses < 0 {
		maxAnalyses = 0
	}
	return &AnalysisStore{
		analyses:    make(map[string]*model.Analysis),
		maxAnalyses: maxAnalyses,
	}
}

func (s *AnalysisStore) Save(a *model.Analysis) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a.UpdatedAt = time.Now()
	s.analyses[a.ID] = a
	s.evictIfNeeded()
}

func (s *AnalysisStore) Get(id string) *model.Analysis {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.analyses[id]
}

func (s *AnalysisStore) GetByTenant(tenant string) []*model.Analysis {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*model.Analysis
	for _, a := range s.analyses {
		if a.Tenant == tenant {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

func (s *AnalysisStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.analyses, id)
}

// SetResult marks an analysis completed with its pipeline result.
func (s *AnalysisStore) SetResult(id string, result *model.PipelineResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.analyses[id]; ok {
		a.Result = result
		a.Status = model.StatusCompleted
		a.ErrorKind = ""
		a.ErrorMsg = ""
		a.UpdatedAt = time.Now()
	}
}

// SetFailed marks an analysis failed with the typed error kind.
func (s *AnalysisStore) SetFailed(id, kind, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.analyses[id]; ok {
		a.Status = model.StatusFailed
		a.ErrorKind = kind
		a.ErrorMsg = errMsg
		a.UpdatedAt = time.Now()
	}
}

// evictIfNeeded removes the oldest analyses once the cap is exceeded.
// Must be called with the write lock held.
func (s *AnalysisStore) evictIfNeeded() {
	if s.maxAnalyses <= 0 || len(s.analyses) <= s.maxAnalyses {
		return
	}

	all := make([]*model.Analysis, 0, len(s.analyses))
	for _, a := range s.analyses {
		all = append(all, a)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})

	for i := 0; i < len(all)-s.maxAnalyses; i++ {
		slog.Info("evicting old analysis",
			"analysis_id", all[i].ID,
			"created_at", all[i].CreatedAt,
		)
		delete(s.analyses, all[i].ID)
	}
}

// Count returns the number of stored analyses.
func (s *AnalysisStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.analyses)
}
