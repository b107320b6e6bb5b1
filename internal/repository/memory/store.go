// Package memory provides an in-process repository.Store with the same
// uniqueness and referential constraints as the postgres schema. It backs the
// service tests and local runs without a database.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/crm-kit/lead-router/internal/domain"
	"github.com/crm-kit/lead-router/internal/repository"
)

type linkKey struct {
	sourceID   int64
	operatorID int64
}

// Store keeps all relations in maps guarded by one mutex. Units of work run
// one at a time, so no caller observes writes of a unit that later rolls back.
type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex
	seq  int64
	now func() time.Time

	operators    map[int64]domain.Operator
	sources      map[int64]domain.Source
	sourceNames  map[string]int64
	links        map[linkKey]int
	leads        map[int64]domain.Lead
	leadsByExtID map[string]int64
	interactions map[int64]domain.Interaction
}

var _ repository.Store = (*Store)(nil)

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		now:          time.Now,
		operators:    make(map[int64]domain.Operator),
		sources:      make(map[int64]domain.Source),
		sourceNames:  make(map[string]int64),
		links:        make(map[linkKey]int),
		leads:        make(map[int64]domain.Lead),
		leadsByExtID: make(map[string]int64),
		interactions: make(map[int64]domain.Interaction),
	}
}

// WithinTx implements repository.Store. fn must not start another unit of
// work on the same store.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) (err error) {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	t := &tx{store: s}
	defer func() {
		if p := recover(); p != nil {
			t.rollback()
			panic(p)
		}
		if err != nil {
			t.rollback()
		}
	}()
	return fn(ctx, t)
}

// LeadCount returns the number of stored leads.
func (s *Store) LeadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.leads)
}

// InteractionCount returns the number of stored interactions.
func (s *Store) InteractionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.interactions)
}

func (s *Store) nextID() int64 {
	s.seq++
	return s.seq
}

type tx struct {
	store *Store
	undo  []func()
}

func (t *tx) Leads() repository.LeadRepository               { return leadRepo{t} }
func (t *tx) Operators() repository.OperatorRepository       { return operatorRepo{t} }
func (t *tx) Sources() repository.SourceRepository           { return sourceRepo{t} }
func (t *tx) Interactions() repository.InteractionRepository { return interactionRepo{t} }

// onRollback must be called with the store lock held.
func (t *tx) onRollback(fn func()) {
	t.undo = append(t.undo, fn)
}

func (t *tx) rollback() {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

type leadRepo struct{ t *tx }

func (r leadRepo) Create(_ context.Context, lead *domain.Lead) error {
	s := r.t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.leadsByExtID[lead.ExternalID]; ok {
		return fmt.Errorf("%w: leads_external_id_key", repository.ErrDuplicateKey)
	}
	lead.ID = s.nextID()
	lead.CreatedAt = s.now()
	s.leads[lead.ID] = *lead
	s.leadsByExtID[lead.ExternalID] = lead.ID

	id, extID := lead.ID, lead.ExternalID
	r.t.onRollback(func() {
		delete(s.leads, id)
		delete(s.leadsByExtID, extID)
	})
	return nil
}

func (r leadRepo) GetByID(_ context.Context, id int64) (*domain.Lead, error) {
	s := r.t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	lead, ok := s.leads[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &lead, nil
}

func (r leadRepo) GetByExternalID(_ context.Context, externalID string) (*domain.Lead, error) {
	s := r.t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.leadsByExtID[externalID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	lead := s.leads[id]
	return &lead, nil
}

type operatorRepo struct{ t *tx }

func (r operatorRepo) Create(_ context.Context, op *domain.Operator) error {
	s := r.t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	op.ID = s.nextID()
	op.CreatedAt = s.now()
	s.operators[op.ID] = *op

	id := op.ID
	r.t.onRollback(func() { delete(s.operators, id) })
	return nil
}

func (r operatorRepo) Update(_ context.Context, op *domain.Operator) error {
	s := r.t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.operators[op.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	updated := prev
	updated.Name = op.Name
	updated.IsActive = op.IsActive
	updated.MaxLoad = op.MaxLoad
	s.operators[op.ID] = updated

	r.t.onRollback(func() { s.operators[prev.ID] = prev })
	return nil
}

func (r operatorRepo) GetByID(_ context.Context, id int64) (*domain.Operator, error) {
	s := r.t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	op, ok := s.operators[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &op, nil
}

func (r operatorRepo) List(_ context.Context) ([]domain.Operator, error) {
	s := r.t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]domain.Operator, 0, len(s.operators))
	for _, op := range s.operators {
		result = append(result, op)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r operatorRepo) LoadReport(_ context.Context) ([]domain.OperatorLoad, error) {
	s := r.t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := s.openCountsLocked()
	result := make([]domain.OperatorLoad, 0, len(s.operators))
	for _, op := range s.operators {
		result = append(result, domain.OperatorLoad{
			OperatorID:  op.ID,
			Name:        op.Name,
			MaxLoad:     op.MaxLoad,
			IsActive:    op.IsActive,
			CurrentLoad: counts[op.ID],
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].OperatorID < result[j].OperatorID })
	return result, nil
}

type sourceRepo struct{ t *tx }

func (r sourceRepo) Create(_ context.Context, src *domain.Source) error {
	s := r.t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sourceNames[src.Name]; ok {
		return fmt.Errorf("%w: sources_name_key", repository.ErrDuplicateKey)
	}
	src.ID = s.nextID()
	src.CreatedAt = s.now()
	s.sources[src.ID] = *src
	s.sourceNames[src.Name] = src.ID

	id, name := src.ID, src.Name
	r.t.onRollback(func() {
		delete(s.sources, id)
		delete(s.sourceNames, name)
	})
	return nil
}

func (r sourceRepo) GetByID(_ context.Context, id int64) (*domain.Source, error) {
	s := r.t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	src, ok := s.sources[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &src, nil
}

func (r sourceRepo) List(_ context.Context) ([]domain.Source, error) {
	s := r.t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]domain.Source, 0, len(s.sources))
	for _, src := range s.sources {
		result = append(result, src)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r sourceRepo) UpsertLink(_ context.Context, link domain.SourceOperatorLink) error {
	s := r.t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sources[link.SourceID]; !ok {
		return fmt.Errorf("%w: source_operator_links_source_id_fkey", repository.ErrInvalidReference)
	}
	if _, ok := s.operators[link.OperatorID]; !ok {
		return fmt.Errorf("%w: source_operator_links_operator_id_fkey", repository.ErrInvalidReference)
	}

	key := linkKey{sourceID: link.SourceID, operatorID: link.OperatorID}
	prev, existed := s.links[key]
	s.links[key] = link.Weight

	r.t.onRollback(func() {
		if existed {
			s.links[key] = prev
			return
		}
		delete(s.links, key)
	})
	return nil
}

func (r sourceRepo) ListLinks(_ context.Context, sourceID int64) ([]domain.SourceOperatorLink, error) {
	s := r.t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	result := []domain.SourceOperatorLink{}
	for key, weight := range s.links {
		if key.sourceID != sourceID {
			continue
		}
		result = append(result, domain.SourceOperatorLink{
			SourceID:   key.sourceID,
			OperatorID: key.operatorID,
			Weight:     weight,
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].OperatorID < result[j].OperatorID })
	return result, nil
}

func (r sourceRepo) LinkedActiveOperators(_ context.Context, sourceID int64) ([]domain.LinkedOperator, error) {
	s := r.t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []domain.LinkedOperator
	for key, weight := range s.links {
		if key.sourceID != sourceID {
			continue
		}
		op, ok := s.operators[key.operatorID]
		if !ok || !op.IsActive {
			continue
		}
		result = append(result, domain.LinkedOperator{
			OperatorID: op.ID,
			Weight:     weight,
			MaxLoad:    op.MaxLoad,
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].OperatorID < result[j].OperatorID })
	return result, nil
}

type interactionRepo struct{ t *tx }

func (r interactionRepo) Create(_ context.Context, it *domain.Interaction) error {
	s := r.t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.leads[it.LeadID]; !ok {
		return fmt.Errorf("%w: interactions_lead_id_fkey", repository.ErrInvalidReference)
	}
	if _, ok := s.sources[it.SourceID]; !ok {
		return fmt.Errorf("%w: interactions_source_id_fkey", repository.ErrInvalidReference)
	}
	if it.OperatorID != nil {
		if _, ok := s.operators[*it.OperatorID]; !ok {
			return fmt.Errorf("%w: interactions_operator_id_fkey", repository.ErrInvalidReference)
		}
	}

	it.ID = s.nextID()
	it.CreatedAt = s.now()
	s.interactions[it.ID] = *it

	id := it.ID
	r.t.onRollback(func() { delete(s.interactions, id) })
	return nil
}

func (r interactionRepo) GetByID(_ context.Context, id int64) (*domain.Interaction, error) {
	s := r.t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.interactions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &it, nil
}

func (r interactionRepo) Close(_ context.Context, id int64, at time.Time) error {
	s := r.t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.interactions[id]
	if !ok || prev.Status != domain.InteractionStatusOpen {
		return pgx.ErrNoRows
	}
	closed := prev
	closed.Status = domain.InteractionStatusClosed
	closedAt := at
	closed.ClosedAt = &closedAt
	s.interactions[id] = closed

	r.t.onRollback(func() { s.interactions[id] = prev })
	return nil
}

func (r interactionRepo) OpenCountByOperator(_ context.Context) (map[int64]int, error) {
	s := r.t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openCountsLocked(), nil
}

func (s *Store) openCountsLocked() map[int64]int {
	counts := make(map[int64]int)
	for _, it := range s.interactions {
		if it.Status != domain.InteractionStatusOpen || it.OperatorID == nil {
			continue
		}
		counts[*it.OperatorID]++
	}
	return counts
}
