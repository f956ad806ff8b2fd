package inmemory

import (
	"context"
	"sort"
	"sync"

	"github.com/pali-wallet/palid/internal/core/domain"
)

// FlowRepositoryImpl represents an in memory storage
type FlowRepositoryImpl struct {
	flows map[string]domain.TxFlow

	lock *sync.RWMutex
}

// NewFlowRepositoryImpl returns a new empty FlowRepositoryImpl
func NewFlowRepositoryImpl() domain.FlowRepository {
	return &FlowRepositoryImpl{
		flows: map[string]domain.TxFlow{},
		lock:  &sync.RWMutex{},
	}
}

func (r *FlowRepositoryImpl) AddFlow(_ context.Context, flow *domain.TxFlow) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.flows[flow.ID]; ok {
		return ErrFlowAlreadyExists
	}
	r.flows[flow.ID] = copyFlow(*flow)
	return nil
}

func (r *FlowRepositoryImpl) GetFlow(
	_ context.Context, id string,
) (*domain.TxFlow, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	flow, ok := r.flows[id]
	if !ok {
		return nil, domain.ErrFlowNotFound
	}
	f := copyFlow(flow)
	return &f, nil
}

// GetFlowsByAccount returns the flows of the account, most recent first.
func (r *FlowRepositoryImpl) GetFlowsByAccount(
	_ context.Context, accountID int,
) ([]domain.TxFlow, error) {
	return r.filter(func(f domain.TxFlow) bool {
		return f.AccountID == accountID
	}), nil
}

func (r *FlowRepositoryImpl) GetPendingFlows(
	_ context.Context,
) ([]domain.TxFlow, error) {
	return r.filter(func(f domain.TxFlow) bool {
		return !f.IsTerminal()
	}), nil
}

func (r *FlowRepositoryImpl) UpdateFlow(
	_ context.Context, id string,
	updateFn func(f *domain.TxFlow) (*domain.TxFlow, error),
) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	flow, ok := r.flows[id]
	if !ok {
		return domain.ErrFlowNotFound
	}
	f := copyFlow(flow)
	updatedFlow, err := updateFn(&f)
	if err != nil {
		return err
	}
	r.flows[id] = copyFlow(*updatedFlow)
	return nil
}

func (r *FlowRepositoryImpl) filter(fn func(f domain.TxFlow) bool) []domain.TxFlow {
	r.lock.RLock()
	defer r.lock.RUnlock()

	flows := make([]domain.TxFlow, 0)
	for _, f := range r.flows {
		if fn(f) {
			flows = append(flows, copyFlow(f))
		}
	}
	sort.SliceStable(flows, func(i, j int) bool {
		return flows[i].CreatedAt > flows[j].CreatedAt
	})
	return flows
}

func copyFlow(f domain.TxFlow) domain.TxFlow {
	f.TxIDs = append(make([]string, 0, len(f.TxIDs)), f.TxIDs...)
	return f
}
