package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// FlowStatus is the state of a confirmed request on its way to the chain.
type FlowStatus int

const (
	FlowStaged FlowStatus = iota
	FlowSubmitting
	FlowPendingConfirmation
	FlowConfirmed
	FlowFailed
)

func (s FlowStatus) String() string {
	switch s {
	case FlowStaged:
		return "STAGED"
	case FlowSubmitting:
		return "SUBMITTING"
	case FlowPendingConfirmation:
		return "PENDING_CONFIRMATION"
	case FlowConfirmed:
		return "CONFIRMED"
	case FlowFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// IsTerminal returns whether no further transition is allowed.
func (s FlowStatus) IsTerminal() bool {
	return s == FlowConfirmed || s == FlowFailed
}

var flowTransitions = map[FlowStatus][]FlowStatus{
	FlowStaged:              {FlowSubmitting, FlowFailed},
	FlowSubmitting:          {FlowPendingConfirmation, FlowConfirmed, FlowFailed},
	FlowPendingConfirmation: {FlowSubmitting, FlowConfirmed, FlowFailed},
}

// TxFlow tracks a confirmed request through signing, broadcasting and
// confirmation of every tx it requires.
type TxFlow struct {
	ID        string
	Kind      TxKind
	AccountID int
	Network   string
	Status    FlowStatus
	Step      int
	Steps     int
	TxIDs     []string
	AssetGuid string
	Result    string
	Error     string
	CreatedAt int64
	UpdatedAt int64
}

// NewTxFlow returns a flow in Staged status.
func NewTxFlow(kind TxKind, accountID int, network string, steps int) *TxFlow {
	now := time.Now().Unix()
	if steps <= 0 {
		steps = 1
	}
	return &TxFlow{
		ID:        uuid.New().String(),
		Kind:      kind,
		AccountID: accountID,
		Network:   network,
		Status:    FlowStaged,
		Steps:     steps,
		TxIDs:     make([]string, 0),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CanTransition returns whether the flow can move to the given status.
func (f *TxFlow) CanTransition(to FlowStatus) bool {
	for _, s := range flowTransitions[f.Status] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition moves the flow to the given status.
func (f *TxFlow) Transition(to FlowStatus) error {
	if !f.CanTransition(to) {
		return fmt.Errorf(
			"%w: from %s to %s", ErrInvalidFlowTransition, f.Status, to,
		)
	}
	f.Status = to
	f.UpdatedAt = time.Now().Unix()
	return nil
}

// Submit starts the next step of the flow.
func (f *TxFlow) Submit() error {
	if f.Step >= f.Steps {
		return fmt.Errorf(
			"%w: all %d steps already submitted", ErrInvalidFlowTransition, f.Steps,
		)
	}
	if err := f.Transition(FlowSubmitting); err != nil {
		return err
	}
	f.Step++
	return nil
}

// Broadcasted records the tx of the current step.
func (f *TxFlow) Broadcasted(txid string) error {
	if err := f.Transition(FlowPendingConfirmation); err != nil {
		return err
	}
	f.TxIDs = append(f.TxIDs, txid)
	return nil
}

// Confirm settles the flow successfully.
func (f *TxFlow) Confirm(result string) error {
	if err := f.Transition(FlowConfirmed); err != nil {
		return err
	}
	if result != "" {
		f.Result = result
	}
	return nil
}

// Fail settles the flow with the given error.
func (f *TxFlow) Fail(err error) error {
	if tErr := f.Transition(FlowFailed); tErr != nil {
		return tErr
	}
	if err != nil {
		f.Error = err.Error()
	}
	return nil
}

// IsTerminal returns whether the flow has settled.
func (f *TxFlow) IsTerminal() bool {
	return f.Status.IsTerminal()
}

// LastTxID returns the id of the last broadcasted tx, if any.
func (f *TxFlow) LastTxID() string {
	if len(f.TxIDs) <= 0 {
		return ""
	}
	return f.TxIDs[len(f.TxIDs)-1]
}
