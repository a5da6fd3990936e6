package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/PauloFidalgo/cmov-5g/internal/domain"
	"github.com/PauloFidalgo/cmov-5g/internal/infra"
	"github.com/PauloFidalgo/cmov-5g/internal/pkg/label"
)

// Repository stores datasets in memory and satisfies the application store contract.
type Repository struct {
	mu       sync.RWMutex
	datasets map[string]domain.Dataset
}

// New creates an empty in-memory repository instance.
func New() *Repository {
	return &Repository{datasets: make(map[string]domain.Dataset)}
}

// Seed replaces the dataset of source with the provided records.
func (r *Repository) Seed(source string, records []domain.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := make([]domain.Record, len(records))
	copy(copied, records)
	r.datasets[source] = domain.NewDataset(copied)
}

// Append merges records into the dataset of source. Records whose id is not
// above the stored maximum are ignored.
func (r *Repository) Append(_ context.Context, source string, records []domain.Record) error {
	if len(records) == 0 {
		return nil
	}

	start := time.Now()
	r.mu.Lock()
	defer r.mu.Unlock()

	incoming := domain.NewDataset(append([]domain.Record(nil), records...))
	merged, _ := domain.Merge(r.datasets[source], incoming)
	r.datasets[source] = merged
	infra.RecordStoreAppend(time.Since(start))
	return nil
}

// Records returns the last records of source, or all of them when last is not
// positive.
func (r *Repository) Records(_ context.Context, source string, last int) ([]domain.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ds, ok := r.datasets[source]
	if !ok || ds.Empty() {
		return nil, domain.ErrNotFound
	}
	return ds.Last(last), nil
}

// Sources lists the stored datasets ordered by name.
func (r *Repository) Sources(_ context.Context) ([]domain.SourceInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]domain.SourceInfo, 0, len(r.datasets))
	for source, ds := range r.datasets {
		if ds.Empty() {
			continue
		}
		infos = append(infos, domain.SourceInfo{
			Source:  source,
			Label:   label.Describe(source),
			Records: ds.Len(),
			MaxID:   ds.MaxID(),
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Source < infos[j].Source
	})
	return infos, nil
}

// Delete removes the dataset of source. Deleting an unknown source is not an error.
func (r *Repository) Delete(_ context.Context, source string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.datasets, source)
	return nil
}

var _ domain.DatasetStore = (*Repository)(nil)
