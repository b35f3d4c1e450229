package repositories

import (
	"context"
	"sort"
	"sync"

	"github.com/cloverkingdom/academy/internal/app/grimoire"
	"github.com/cloverkingdom/academy/internal/app/models"
	"github.com/cloverkingdom/academy/internal/pkg/helpers"
)

type memoryState struct {
	mu          sync.Mutex
	nextID      int64
	requests    map[int64]models.AdmissionRequest
	assignments map[int64]models.GrimoireAssignment
}

func (s *memoryState) snapshot() (int64, map[int64]models.AdmissionRequest, map[int64]models.GrimoireAssignment) {
	reqs := make(map[int64]models.AdmissionRequest, len(s.requests))
	for id, req := range s.requests {
		reqs[id] = req
	}
	assigns := make(map[int64]models.GrimoireAssignment, len(s.assignments))
	for id, a := range s.assignments {
		assigns[id] = a
	}
	return s.nextID, reqs, assigns
}

// MemoryRequestRepository keeps requests in process memory. It backs the
// "memory" driver and the service tests.
type MemoryRequestRepository struct {
	state *memoryState
	inTx  bool
}

// NewMemoryRequestRepository creates an empty in-memory store
func NewMemoryRequestRepository() *MemoryRequestRepository {
	return &MemoryRequestRepository{
		state: &memoryState{
			requests:    make(map[int64]models.AdmissionRequest),
			assignments: make(map[int64]models.GrimoireAssignment),
		},
	}
}

// lock is a no-op inside WithinTransaction, which already holds the mutex.
func (r *MemoryRequestRepository) lock() func() {
	if r.inTx {
		return func() {}
	}
	r.state.mu.Lock()
	return r.state.mu.Unlock
}

func (r *MemoryRequestRepository) identificationTaken(identification string, except int64) bool {
	for id, req := range r.state.requests {
		if id != except && req.Identification == identification {
			return true
		}
	}
	return false
}

// load returns a detached copy of the request with its assignment attached.
func (r *MemoryRequestRepository) load(id int64) (*models.AdmissionRequest, bool) {
	req, ok := r.state.requests[id]
	if !ok {
		return nil, false
	}
	if a, ok := r.state.assignments[id]; ok {
		req.Grimoire = &a
	} else {
		req.Grimoire = nil
	}
	return &req, true
}

// CreateRequest stores a new pending request
func (r *MemoryRequestRepository) CreateRequest(_ context.Context, draft models.AdmissionDraft) (*models.AdmissionRequest, error) {
	defer r.lock()()

	if r.identificationTaken(draft.Identification, 0) {
		return nil, ErrDuplicateIdentification
	}

	r.state.nextID++
	now := helpers.NowUTC()
	req := models.AdmissionRequest{
		ID:             r.state.nextID,
		FirstName:      draft.FirstName,
		LastName:       draft.LastName,
		Identification: draft.Identification,
		Age:            draft.Age,
		MagicAffinity:  draft.MagicAffinity,
		Status:         models.StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	r.state.requests[req.ID] = req
	return &req, nil
}

// GetRequest returns a copy of the request
func (r *MemoryRequestRepository) GetRequest(_ context.Context, id int64) (*models.AdmissionRequest, error) {
	defer r.lock()()

	req, ok := r.load(id)
	if !ok {
		return nil, ErrNotFound
	}
	return req, nil
}

// ListRequests returns every request in id order
func (r *MemoryRequestRepository) ListRequests(_ context.Context) ([]*models.AdmissionRequest, error) {
	defer r.lock()()

	ids := make([]int64, 0, len(r.state.requests))
	for id := range r.state.requests {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	requests := make([]*models.AdmissionRequest, 0, len(ids))
	for _, id := range ids {
		req, _ := r.load(id)
		requests = append(requests, req)
	}
	return requests, nil
}

// UpdateRequest applies the set fields of patch
func (r *MemoryRequestRepository) UpdateRequest(_ context.Context, id int64, patch models.AdmissionPatch) (*models.AdmissionRequest, error) {
	defer r.lock()()

	req, ok := r.state.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	if patch.IsEmpty() {
		out, _ := r.load(id)
		return out, nil
	}
	if patch.Identification != nil && r.identificationTaken(*patch.Identification, id) {
		return nil, ErrDuplicateIdentification
	}

	patch.Apply(&req)
	req.UpdatedAt = helpers.NowUTC()
	r.state.requests[id] = req

	out, _ := r.load(id)
	return out, nil
}

// UpdateStatus sets the status of a request
func (r *MemoryRequestRepository) UpdateStatus(_ context.Context, id int64, status models.Status) (*models.AdmissionRequest, error) {
	defer r.lock()()

	req, ok := r.state.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	req.Status = status
	req.UpdatedAt = helpers.NowUTC()
	r.state.requests[id] = req

	out, _ := r.load(id)
	return out, nil
}

// RecordAssignment stores the request's grimoire unless one already exists
func (r *MemoryRequestRepository) RecordAssignment(_ context.Context, requestID int64, entry grimoire.Entry) (*models.GrimoireAssignment, error) {
	defer r.lock()()

	if _, ok := r.state.requests[requestID]; !ok {
		return nil, ErrNotFound
	}
	if _, ok := r.state.assignments[requestID]; ok {
		return nil, ErrAssignmentExists
	}

	a := models.GrimoireAssignment{
		RequestID:  requestID,
		Type:       entry.Type,
		Rarity:     entry.Rarity,
		AssignedAt: helpers.NowUTC(),
	}
	r.state.assignments[requestID] = a
	return &a, nil
}

// DeleteRequest removes a request and its assignment
func (r *MemoryRequestRepository) DeleteRequest(_ context.Context, id int64) (bool, error) {
	defer r.lock()()

	if _, ok := r.state.requests[id]; !ok {
		return false, nil
	}
	delete(r.state.requests, id)
	delete(r.state.assignments, id)
	return true, nil
}

// WithinTransaction holds the store lock for the duration of fn and restores
// the previous contents if fn returns an error or panics.
func (r *MemoryRequestRepository) WithinTransaction(ctx context.Context, fn func(ctx context.Context, repo RequestRepository) error) (err error) {
	if r.inTx {
		return fn(ctx, r)
	}

	r.state.mu.Lock()
	defer r.state.mu.Unlock()

	nextID, reqs, assigns := r.state.snapshot()
	restore := func() {
		r.state.nextID = nextID
		r.state.requests = reqs
		r.state.assignments = assigns
	}

	defer func() {
		if p := recover(); p != nil {
			restore()
			panic(p)
		}
	}()

	if err = fn(ctx, &MemoryRequestRepository{state: r.state, inTx: true}); err != nil {
		restore()
		return err
	}
	return nil
}
