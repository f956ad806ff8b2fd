package dbbadger

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v3"
	"github.com/pali-wallet/palid/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

type flowRepositoryImpl struct {
	store *badgerhold.Store
}

// NewFlowRepositoryImpl initialize a badger implementation of the
// domain.FlowRepository
func NewFlowRepositoryImpl(store *badgerhold.Store) domain.FlowRepository {
	return flowRepositoryImpl{store}
}

func (f flowRepositoryImpl) AddFlow(_ context.Context, flow *domain.TxFlow) error {
	if err := f.store.Insert(flow.ID, flow); err != nil {
		if errors.Is(err, badgerhold.ErrKeyExists) {
			return ErrFlowAlreadyExists
		}
		return err
	}
	return nil
}

func (f flowRepositoryImpl) GetFlow(
	_ context.Context, id string,
) (*domain.TxFlow, error) {
	var flow domain.TxFlow
	if err := f.store.Get(id, &flow); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, domain.ErrFlowNotFound
		}
		return nil, err
	}
	return &flow, nil
}

func (f flowRepositoryImpl) GetFlowsByAccount(
	_ context.Context, accountID int,
) ([]domain.TxFlow, error) {
	query := badgerhold.Where("AccountID").Eq(accountID).
		SortBy("CreatedAt").Reverse()
	return f.findFlows(query)
}

func (f flowRepositoryImpl) GetPendingFlows(
	_ context.Context,
) ([]domain.TxFlow, error) {
	query := badgerhold.Where("Status").MatchFunc(
		func(ra *badgerhold.RecordAccess) (bool, error) {
			status, ok := ra.Field().(domain.FlowStatus)
			return ok && !status.IsTerminal(), nil
		},
	).SortBy("CreatedAt").Reverse()
	return f.findFlows(query)
}

func (f flowRepositoryImpl) UpdateFlow(
	_ context.Context, id string,
	updateFn func(f *domain.TxFlow) (*domain.TxFlow, error),
) error {
	return update(f.store, func(tx *badger.Txn) error {
		var flow domain.TxFlow
		if err := f.store.TxGet(tx, id, &flow); err != nil {
			if errors.Is(err, badgerhold.ErrNotFound) {
				return domain.ErrFlowNotFound
			}
			return err
		}

		updatedFlow, err := updateFn(&flow)
		if err != nil {
			return err
		}
		return f.store.TxUpdate(tx, id, updatedFlow)
	})
}

func (f flowRepositoryImpl) findFlows(query *badgerhold.Query) ([]domain.TxFlow, error) {
	var flows []domain.TxFlow
	if err := f.store.Find(&flows, query); err != nil {
		return nil, err
	}
	if flows == nil {
		flows = make([]domain.TxFlow, 0)
	}
	return flows, nil
}
