package domain

import "time"

// Transaction is an entry of the tx history of an account.
type Transaction struct {
	TxID          string
	Kind          TxKind
	Confirmations int
	BlockTime     int64
	Value         uint64
	Fees          uint64
	Pending       bool
}

// NewPendingTransaction returns a just broadcasted tx, not yet included in
// any block.
func NewPendingTransaction(txid string, kind TxKind, value, fees uint64) Transaction {
	return Transaction{
		TxID:          txid,
		Kind:          kind,
		Confirmations: 0,
		BlockTime:     time.Now().Unix(),
		Value:         value,
		Fees:          fees,
		Pending:       true,
	}
}

// IsConfirmed returns whether the tx has been included in a block.
func (t Transaction) IsConfirmed() bool {
	return t.Confirmations > 0
}
