// Package memory provides in-process repositories used by the CLI and in
// tests. Data does not survive a restart.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"contractparser/internal/domain"
	"contractparser/internal/port"
)

// Store holds contracts and their audit log behind a single mutex, which
// also serializes billing record patches.
type Store struct {
	mu        sync.Mutex
	contracts map[uuid.UUID]*domain.Contract
	audit     []domain.AuditEntry
	seq       int64
	now       func() time.Time
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		contracts: make(map[uuid.UUID]*domain.Contract),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Contracts returns the store as a port.ContractRepository.
func (s *Store) Contracts() port.ContractRepository { return (*contractRepo)(s) }

// Audit returns the store as a port.AuditRepository.
func (s *Store) Audit() port.AuditRepository { return (*auditRepo)(s) }

func cloneContract(c *domain.Contract) *domain.Contract {
	cp := *c
	cp.BillingConfig = c.BillingConfig.Clone()
	if c.RawText != nil {
		t := *c.RawText
		cp.RawText = &t
	}
	return &cp
}

type contractRepo Store

func (r *contractRepo) Create(_ context.Context, c *domain.Contract) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	c.CreatedAt = now
	c.UpdatedAt = now
	r.contracts[c.ID] = cloneContract(c)
	return nil
}

func (r *contractRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Contract, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.contracts[id]
	if !ok {
		return nil, domain.ErrContractNotFound
	}
	return cloneContract(c), nil
}

// sorted returns contracts newest first. Callers hold the lock.
func (r *contractRepo) sorted() []*domain.Contract {
	out := make([]*domain.Contract, 0, len(r.contracts))
	for _, c := range r.contracts {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func (r *contractRepo) List(_ context.Context, offset, limit int) ([]domain.Contract, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.sorted()
	page := paginate(all, offset, limit)
	out := make([]domain.Contract, len(page))
	for i, c := range page {
		out[i] = *cloneContract(c)
	}
	return out, len(all), nil
}

func (r *contractRepo) ClaimPending(_ context.Context, limit int) ([]domain.Contract, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.sorted()
	var claimed []domain.Contract
	// Oldest first.
	for i := len(all) - 1; i >= 0 && len(claimed) < limit; i-- {
		c := all[i]
		if c.Status != domain.ContractStatusPending {
			continue
		}
		c.Status = domain.ContractStatusProcessing
		c.UpdatedAt = r.now()
		claimed = append(claimed, *cloneContract(c))
	}
	return claimed, nil
}

func (r *contractRepo) update(id uuid.UUID, fn func(c *domain.Contract)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.contracts[id]
	if !ok {
		return domain.ErrContractNotFound
	}
	fn(c)
	c.UpdatedAt = r.now()
	return nil
}

func (r *contractRepo) UpdateRawText(_ context.Context, id uuid.UUID, text string) error {
	return r.update(id, func(c *domain.Contract) { c.RawText = &text })
}

func (r *contractRepo) CompleteExtraction(_ context.Context, id uuid.UUID, res *domain.ExtractionResult) error {
	return r.update(id, func(c *domain.Contract) {
		now := r.now()
		provider, model := res.Provider, res.Model
		c.Status = domain.ContractStatusCompleted
		c.BillingConfig = res.Record.Clone()
		c.ErrorMessage = nil
		c.ExtractionProvider = &provider
		c.ExtractionModel = &model
		c.TextTruncated = res.Truncated
		c.ExtractedAt = &now
	})
}

func (r *contractRepo) MarkFailed(_ context.Context, id uuid.UUID, message string) error {
	return r.update(id, func(c *domain.Contract) {
		c.Status = domain.ContractStatusFailed
		c.ErrorMessage = &message
	})
}

func (r *contractRepo) PatchBillingConfig(_ context.Context, id uuid.UUID, mutate port.ContractMutation) (*domain.Contract, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.contracts[id]
	if !ok {
		return nil, domain.ErrContractNotFound
	}
	rec, err := mutate(cloneContract(c))
	if err != nil {
		return nil, err
	}
	c.BillingConfig = rec.Clone()
	c.UpdatedAt = r.now()
	return cloneContract(c), nil
}

func (r *contractRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.contracts[id]; !ok {
		return domain.ErrContractNotFound
	}
	delete(r.contracts, id)
	kept := r.audit[:0]
	for _, e := range r.audit {
		if e.ContractID != id {
			kept = append(kept, e)
		}
	}
	r.audit = kept
	return nil
}

type auditRepo Store

func (r *auditRepo) Create(_ context.Context, entry *domain.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	entry.Seq = r.seq
	r.audit = append(r.audit, cloneEntry(*entry))
	return nil
}

func cloneEntry(e domain.AuditEntry) domain.AuditEntry {
	e.OldValue = e.OldValue.Clone()
	e.NewValue = e.NewValue.Clone()
	return e
}

func (r *auditRepo) ListByContract(_ context.Context, contractID uuid.UUID, offset, limit int) ([]domain.AuditEntry, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []domain.AuditEntry
	for _, e := range r.audit {
		if e.ContractID == contractID {
			matched = append(matched, cloneEntry(e))
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].Seq > matched[j].Seq
	})
	return paginate(matched, offset, limit), len(matched), nil
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
