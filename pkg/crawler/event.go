package crawler

import "github.com/pali-wallet/palid/pkg/explorer"

const (
	QuitSignal EventType = iota
	TransactionConfirmed
	TransactionUnconfirmed
	AccountUpdated
)

type EventType int

func (et EventType) String() string {
	switch et {
	case QuitSignal:
		return "QuitSignal"
	case TransactionConfirmed:
		return "TransactionConfirmed"
	case TransactionUnconfirmed:
		return "TransactionUnconfirmed"
	case AccountUpdated:
		return "AccountUpdated"
	default:
		return "Unknown"
	}
}

type QuitEvent struct{}

func (q QuitEvent) Type() EventType {
	return QuitSignal
}

type TransactionEvent struct {
	EventType     EventType
	TxID          string
	Confirmations int
}

func (t TransactionEvent) Type() EventType {
	return t.EventType
}

type AccountEvent struct {
	AccountID string
	Xpub      string
	Account   *explorer.Account
}

func (a AccountEvent) Type() EventType {
	return AccountUpdated
}
