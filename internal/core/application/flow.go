package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pali-wallet/palid/internal/core/domain"
	"github.com/pali-wallet/palid/pkg/crawler"
	"github.com/pali-wallet/palid/pkg/stats"
	log "github.com/sirupsen/logrus"
)

// FlowHandle lets the caller of Confirm follow and cancel the flow of the
// confirmed request.
type FlowHandle struct {
	id        string
	done      chan struct{}
	cancel    context.CancelFunc
	cancelled atomic.Bool

	lock sync.RWMutex
	flow domain.TxFlow
}

// ID returns the id of the flow.
func (h *FlowHandle) ID() string {
	return h.id
}

// Done is closed once the flow settles, either in a terminal status or,
// for single tx requests, once the tx is broadcasted.
func (h *FlowHandle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the flow settles or ctx is done and returns the latest
// state of the flow.
func (h *FlowHandle) Wait(ctx context.Context) (domain.TxFlow, error) {
	select {
	case <-h.done:
		return h.Flow(), nil
	case <-ctx.Done():
		return h.Flow(), ctx.Err()
	}
}

// Cancel stops the flow, including any confirmation polling, and fails it.
func (h *FlowHandle) Cancel() {
	h.cancelled.Store(true)
	h.cancel()
}

// Flow returns a copy of the current state of the flow.
func (h *FlowHandle) Flow() domain.TxFlow {
	h.lock.RLock()
	defer h.lock.RUnlock()

	return copyFlow(h.flow)
}

func (h *FlowHandle) set(flow domain.TxFlow) {
	h.lock.Lock()
	defer h.lock.Unlock()

	h.flow = copyFlow(flow)
}

func copyFlow(flow domain.TxFlow) domain.TxFlow {
	txids := make([]string, len(flow.TxIDs))
	copy(txids, flow.TxIDs)
	flow.TxIDs = txids
	return flow
}

// flowRunner performs the steps of a flow. It returns once the flow
// settles.
type flowRunner func(ctx context.Context, fc *flowContext) error

// flowEngine runs flows in background and keeps track of their handles.
type flowEngine struct {
	repo             domain.FlowRepository
	pubsub           PubSubService
	listener         BlockchainListener
	minConfirmations int
	timeout          time.Duration

	lock    sync.RWMutex
	handles map[string]*FlowHandle
}

func newFlowEngine(
	repo domain.FlowRepository, pubsub PubSubService,
	listener BlockchainListener, minConfirmations int, timeout time.Duration,
) *flowEngine {
	return &flowEngine{
		repo:             repo,
		pubsub:           pubsub,
		listener:         listener,
		minConfirmations: minConfirmations,
		timeout:          timeout,
		handles:          make(map[string]*FlowHandle),
	}
}

// start persists the flow and runs it with a context derived from parent
// that expires after the confirmation timeout. onSettled is called right
// before the handle is marked done.
func (e *flowEngine) start(
	parent context.Context, flow *domain.TxFlow, run flowRunner,
	onSettled func(),
) (*FlowHandle, error) {
	if err := e.repo.AddFlow(parent, flow); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(parent, e.timeout)
	handle := &FlowHandle{
		id:     flow.ID,
		done:   make(chan struct{}),
		cancel: cancel,
		flow:   copyFlow(*flow),
	}
	e.addHandle(handle)
	stats.FlowTransitions.WithLabelValues(string(flow.Kind), flow.Status.String()).Inc()

	fc := &flowContext{engine: e, handle: handle, flow: flow}

	go func() {
		defer e.removeHandle(handle.id)
		defer cancel()

		err := run(ctx, fc)
		if err != nil {
			fc.fail(err)
		}
		if onSettled != nil {
			onSettled()
		}
		close(handle.done)

		if err == nil && fc.watchSource != nil {
			fc.watchUntilConfirmed(ctx)
		}
	}()

	return handle, nil
}

// resume watches the last tx of a flow left pending by a previous session
// and confirms it.
func (e *flowEngine) resume(
	parent context.Context, flow *domain.TxFlow, source crawler.ConfirmationSource,
) {
	if _, ok := e.handle(flow.ID); ok {
		return
	}

	ctx, cancel := context.WithTimeout(parent, e.timeout)
	handle := &FlowHandle{
		id:     flow.ID,
		done:   make(chan struct{}),
		cancel: cancel,
		flow:   copyFlow(*flow),
	}
	close(handle.done)
	e.addHandle(handle)

	fc := &flowContext{engine: e, handle: handle, flow: flow, watchSource: source}
	go func() {
		defer e.removeHandle(handle.id)
		defer cancel()

		fc.watchUntilConfirmed(ctx)
	}()
}

// abort fails a flow interrupted in the middle of its steps.
func (e *flowEngine) abort(flow *domain.TxFlow, err error) {
	if _, ok := e.handle(flow.ID); ok {
		return
	}
	handle := &FlowHandle{
		id:     flow.ID,
		done:   make(chan struct{}),
		cancel: func() {},
		flow:   copyFlow(*flow),
	}
	close(handle.done)

	fc := &flowContext{engine: e, handle: handle, flow: flow}
	fc.fail(err)
}

func (e *flowEngine) handle(id string) (*FlowHandle, bool) {
	e.lock.RLock()
	defer e.lock.RUnlock()

	h, ok := e.handles[id]
	return h, ok
}

func (e *flowEngine) addHandle(h *FlowHandle) {
	e.lock.Lock()
	defer e.lock.Unlock()

	e.handles[h.id] = h
}

func (e *flowEngine) removeHandle(id string) {
	e.lock.Lock()
	defer e.lock.Unlock()

	delete(e.handles, id)
}

// flowContext is given to the runner to move the flow through its states.
// Every change is persisted, counted and published.
type flowContext struct {
	engine *flowEngine
	handle *FlowHandle
	flow   *domain.TxFlow

	watchSource crawler.ConfirmationSource
}

func (fc *flowContext) submit() error {
	return fc.update(func(f *domain.TxFlow) error {
		return f.Submit()
	})
}

func (fc *flowContext) broadcasted(txid string) error {
	return fc.update(func(f *domain.TxFlow) error {
		return f.Broadcasted(txid)
	})
}

// setAssetGuid is persisted along with the next transition.
func (fc *flowContext) setAssetGuid(assetGuid string) {
	fc.flow.AssetGuid = assetGuid
}

func (fc *flowContext) confirm(result string) error {
	return fc.update(func(f *domain.TxFlow) error {
		return f.Confirm(result)
	})
}

// setResult is persisted along with the next transition.
func (fc *flowContext) setResult(result string) {
	fc.flow.Result = result
}

// settle leaves the flow pending and confirms it in background once the
// last tx gets its first confirmation.
func (fc *flowContext) settle(source crawler.ConfirmationSource) {
	fc.watchSource = source
}

// waitConfirmations blocks until the given tx reaches the min number of
// confirmations required between steps.
func (fc *flowContext) waitConfirmations(
	ctx context.Context, txid string, source crawler.ConfirmationSource,
) error {
	_, err := fc.engine.listener.WaitForConfirmations(
		ctx, txid, fc.engine.minConfirmations, source,
	)
	return err
}

func (fc *flowContext) fail(err error) {
	if fc.flow.IsTerminal() {
		return
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		err = fmt.Errorf("%w: %s", ErrConfirmationTimeout, err)
	case errors.Is(err, context.Canceled):
		err = ErrFlowCancelled
	}

	log.WithError(err).Warnf("flow %s (%s) failed", fc.flow.ID, fc.flow.Kind)
	if uErr := fc.update(func(f *domain.TxFlow) error {
		return f.Fail(err)
	}); uErr != nil {
		log.WithError(uErr).Warnf("failed to update flow %s", fc.flow.ID)
	}
}

func (fc *flowContext) watchUntilConfirmed(ctx context.Context) {
	txid := fc.flow.LastTxID()
	if txid == "" {
		return
	}
	if _, err := fc.engine.listener.WaitForConfirmations(
		ctx, txid, 1, fc.watchSource,
	); err != nil {
		log.WithError(err).Debugf(
			"stopped watching tx %s of flow %s", txid, fc.flow.ID,
		)
		// Flows interrupted by locking the wallet are resumed on unlock.
		if fc.handle.cancelled.Load() {
			fc.fail(err)
		}
		return
	}
	if err := fc.confirm(""); err != nil {
		log.WithError(err).Warnf("failed to confirm flow %s", fc.flow.ID)
	}
}

func (fc *flowContext) update(fn func(f *domain.TxFlow) error) error {
	if err := fn(fc.flow); err != nil {
		return err
	}
	flow := copyFlow(*fc.flow)
	fc.handle.set(flow)

	// The flow context may be done already, state changes must be persisted
	// anyway.
	if err := fc.engine.repo.UpdateFlow(
		context.Background(), flow.ID,
		func(f *domain.TxFlow) (*domain.TxFlow, error) {
			updated := copyFlow(flow)
			return &updated, nil
		},
	); err != nil {
		log.WithError(err).Warnf("failed to persist flow %s", flow.ID)
	}

	stats.FlowTransitions.WithLabelValues(string(flow.Kind), flow.Status.String()).Inc()
	fc.engine.pubsub.Publish(Event{
		Type:      EventFlowUpdated,
		AccountID: flow.AccountID,
		Network:   flow.Network,
		Payload:   flow,
	})
	return nil
}
