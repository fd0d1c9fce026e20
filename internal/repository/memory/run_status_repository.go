package memory

import (
	"time"

	"sentinel-be/internal/entity"

	"github.com/patrickmn/go-cache"
)

// RunStatusRepository keeps live run snapshots for fast status lookups.
type RunStatusRepository struct {
	cache *cache.Cache
}

func NewRunStatusRepository() *RunStatusRepository {
	// Finished runs age out after a day; the runs table keeps the history
	c := cache.New(24*time.Hour, 30*time.Minute)
	return &RunStatusRepository{
		cache: c,
	}
}

func (r *RunStatusRepository) Save(status entity.RunStatus) {
	r.cache.Set(status.RunId, status, cache.DefaultExpiration)
}

func (r *RunStatusRepository) Get(runId string) (*entity.RunStatus, bool) {
	if x, found := r.cache.Get(runId); found {
		s := x.(entity.RunStatus)
		return &s, true
	}
	return nil, false
}

func (r *RunStatusRepository) Delete(runId string) {
	r.cache.Delete(runId)
}
