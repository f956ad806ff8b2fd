package application_test

import (
	"context"
	"crypto/ecdsa"
	"sync"
	"time"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/pali-wallet/palid/internal/core/application"
	"github.com/pali-wallet/palid/internal/core/ports"
	"github.com/pali-wallet/palid/pkg/crawler"
	"github.com/pali-wallet/palid/pkg/explorer"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type mockExplorer struct {
	mock.Mock
}

func (m *mockExplorer) GetAccount(
	ctx context.Context, xpubOrAddress string, opts explorer.AccountOpts,
) (*explorer.Account, error) {
	args := m.Called(ctx, xpubOrAddress, opts)

	var res *explorer.Account
	if a := args.Get(0); a != nil {
		res = a.(*explorer.Account)
	}
	return res, args.Error(1)
}

func (m *mockExplorer) GetAsset(
	ctx context.Context, assetGuid string,
) (*explorer.Asset, error) {
	args := m.Called(ctx, assetGuid)

	var res *explorer.Asset
	if a := args.Get(0); a != nil {
		res = a.(*explorer.Asset)
	}
	return res, args.Error(1)
}

func (m *mockExplorer) EstimateFee(ctx context.Context, blocks int) (string, error) {
	args := m.Called(ctx, blocks)
	return args.String(0), args.Error(1)
}

func (m *mockExplorer) GetTransaction(
	ctx context.Context, txid string,
) (*explorer.Transaction, error) {
	args := m.Called(ctx, txid)

	var res *explorer.Transaction
	if a := args.Get(0); a != nil {
		res = a.(*explorer.Transaction)
	}
	return res, args.Error(1)
}

func (m *mockExplorer) GetRawTransaction(ctx context.Context, txid string) (string, error) {
	args := m.Called(ctx, txid)
	return args.String(0), args.Error(1)
}

func (m *mockExplorer) GetConfirmations(ctx context.Context, txid string) (int, error) {
	args := m.Called(ctx, txid)
	return args.Int(0), args.Error(1)
}

func (m *mockExplorer) GetUtxos(
	ctx context.Context, xpubOrAddress string, confirmedOnly bool,
) ([]explorer.Utxo, error) {
	args := m.Called(ctx, xpubOrAddress, confirmedOnly)

	var res []explorer.Utxo
	if a := args.Get(0); a != nil {
		res = a.([]explorer.Utxo)
	}
	return res, args.Error(1)
}

func (m *mockExplorer) BroadcastTransaction(ctx context.Context, txhex string) (string, error) {
	args := m.Called(ctx, txhex)
	return args.String(0), args.Error(1)
}

func (m *mockExplorer) GetBlockHeight(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type mockTxBuilder struct {
	mock.Mock
}

func (m *mockTxBuilder) BuildSend(
	ctx context.Context, opts ports.SendOpts,
) (*ports.UnsignedTx, error) {
	args := m.Called(ctx, opts)
	return unsignedTxOrNil(args.Get(0)), args.Error(1)
}

func (m *mockTxBuilder) BuildAssetNew(
	ctx context.Context, opts ports.AssetNewOpts,
) (*ports.UnsignedTx, error) {
	args := m.Called(ctx, opts)
	return unsignedTxOrNil(args.Get(0)), args.Error(1)
}

func (m *mockTxBuilder) BuildAssetSend(
	ctx context.Context, opts ports.AssetSendOpts,
) (*ports.UnsignedTx, error) {
	args := m.Called(ctx, opts)
	return unsignedTxOrNil(args.Get(0)), args.Error(1)
}

func (m *mockTxBuilder) BuildAssetUpdate(
	ctx context.Context, opts ports.AssetUpdateOpts,
) (*ports.UnsignedTx, error) {
	args := m.Called(ctx, opts)
	return unsignedTxOrNil(args.Get(0)), args.Error(1)
}

func (m *mockTxBuilder) OwnedAssets(
	ctx context.Context, network, xpub string,
) ([]string, error) {
	args := m.Called(ctx, network, xpub)

	var res []string
	if a := args.Get(0); a != nil {
		res = a.([]string)
	}
	return res, args.Error(1)
}

func unsignedTxOrNil(v interface{}) *ports.UnsignedTx {
	if v == nil {
		return nil
	}
	return v.(*ports.UnsignedTx)
}

type mockSigner struct {
	mock.Mock
}

func (m *mockSigner) Sign(
	ctx context.Context, packet *psbt.Packet,
) (*psbt.Packet, int, error) {
	args := m.Called(ctx, packet)

	var res *psbt.Packet
	if a := args.Get(0); a != nil {
		res = a.(*psbt.Packet)
	}
	return res, args.Int(1), args.Error(2)
}

type mockSignerProvider struct {
	mock.Mock
}

func (m *mockSignerProvider) SoftwareSigner(network, xprv string) (ports.Signer, error) {
	args := m.Called(network, xprv)

	var res ports.Signer
	if a := args.Get(0); a != nil {
		res = a.(ports.Signer)
	}
	return res, args.Error(1)
}

func (m *mockSignerProvider) HardwareSigner(network, xpub, path string) (ports.Signer, error) {
	args := m.Called(network, xpub, path)

	var res ports.Signer
	if a := args.Get(0); a != nil {
		res = a.(ports.Signer)
	}
	return res, args.Error(1)
}

type mockWeb3Client struct {
	mock.Mock
}

func (m *mockWeb3Client) ChainID() int64 {
	return m.Called().Get(0).(int64)
}

func (m *mockWeb3Client) GetBalance(
	ctx context.Context, address string,
) (decimal.Decimal, error) {
	args := m.Called(ctx, address)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *mockWeb3Client) SendNative(
	ctx context.Context, key *ecdsa.PrivateKey, to string, amount decimal.Decimal,
) (string, error) {
	args := m.Called(ctx, key, to, amount)
	return args.String(0), args.Error(1)
}

func (m *mockWeb3Client) GetConfirmations(ctx context.Context, txHash string) (int, error) {
	args := m.Called(ctx, txHash)
	return args.Int(0), args.Error(1)
}

func (m *mockWeb3Client) Close() {}

// instantListener reports every tx as confirmed as soon as it's asked.
type instantListener struct {
	lock     sync.Mutex
	observed map[string]string
	waited   []string
	handler  func(event crawler.AccountEvent)
}

func newInstantListener() *instantListener {
	return &instantListener{observed: make(map[string]string)}
}

func (l *instantListener) StartObservation() {}

func (l *instantListener) StopObservation() {}

func (l *instantListener) WaitForConfirmations(
	ctx context.Context, txid string, minConfirmations int,
	_ crawler.ConfirmationSource,
) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	l.lock.Lock()
	l.waited = append(l.waited, txid)
	l.lock.Unlock()
	return minConfirmations, nil
}

// waitedFor returns the txids waited for, in order.
func (l *instantListener) waitedFor() []string {
	l.lock.Lock()
	defer l.lock.Unlock()

	return append([]string{}, l.waited...)
}

func (l *instantListener) accountHandler() func(event crawler.AccountEvent) {
	l.lock.Lock()
	defer l.lock.Unlock()

	return l.handler
}

func (l *instantListener) ObserveAccount(
	accountID string, xpub string, _ crawler.AccountSource,
) {
	l.lock.Lock()
	defer l.lock.Unlock()

	l.observed[accountID] = xpub
}

func (l *instantListener) StopObserveAccount(accountID string) {
	l.lock.Lock()
	defer l.lock.Unlock()

	delete(l.observed, accountID)
}

func (l *instantListener) OnAccountUpdated(handler func(event crawler.AccountEvent)) {
	l.lock.Lock()
	defer l.lock.Unlock()

	l.handler = handler
}

type priceFeed struct {
	currency string
	price    decimal.Decimal
	time     time.Time
}

func (f priceFeed) GetCurrency() string       { return f.currency }
func (f priceFeed) GetPrice() decimal.Decimal { return f.price }
func (f priceFeed) GetTime() time.Time        { return f.time }

type chanFeeder struct {
	feedChan chan ports.PriceFeed
	once     sync.Once
}

func newChanFeeder() *chanFeeder {
	return &chanFeeder{feedChan: make(chan ports.PriceFeed)}
}

func (f *chanFeeder) Start() error { return nil }

func (f *chanFeeder) Stop() {
	f.once.Do(func() { close(f.feedChan) })
}

func (f *chanFeeder) FeedChan() chan ports.PriceFeed {
	return f.feedChan
}

type mockPubSub struct {
	mock.Mock
}

func (m *mockPubSub) Subscribe(topic, endpoint, secret string) (string, error) {
	args := m.Called(topic, endpoint, secret)
	return args.String(0), args.Error(1)
}

func (m *mockPubSub) Unsubscribe(topic, id string) error {
	return m.Called(topic, id).Error(0)
}

func (m *mockPubSub) ListSubscriptionsForTopic(topic string) []ports.Subscription {
	args := m.Called(topic)

	var res []ports.Subscription
	if a := args.Get(0); a != nil {
		res = a.([]ports.Subscription)
	}
	return res
}

func (m *mockPubSub) Publish(topic string, message string) error {
	return m.Called(topic, message).Error(0)
}

func (m *mockPubSub) Close() error {
	return nil
}

type subscription struct {
	id, topic, endpoint string
	secured             bool
}

func (s subscription) Topic() string    { return s.topic }
func (s subscription) Id() string       { return s.id }
func (s subscription) IsSecured() bool  { return s.secured }
func (s subscription) NotifyAt() string { return s.endpoint }

// eventRecorder keeps every event published to it.
type eventRecorder struct {
	lock   sync.Mutex
	events []application.Event
}

func (r *eventRecorder) OnEvent(event application.Event) {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.events = append(r.events, event)
}

func (r *eventRecorder) byType(eventType application.EventType) []application.Event {
	r.lock.Lock()
	defer r.lock.Unlock()

	events := make([]application.Event, 0)
	for _, e := range r.events {
		if e.Type == eventType {
			events = append(events, e)
		}
	}
	return events
}
