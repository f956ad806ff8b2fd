package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pali-wallet/palid/internal/core/domain"
	"github.com/pali-wallet/palid/internal/core/ports"
	"github.com/thanhpk/randstr"
)

const connectionRequestTTL = 5 * time.Minute

var (
	// ErrInvalidOrigin is returned for empty origins.
	ErrInvalidOrigin = errors.New("invalid origin")
	// ErrConnectionRequestNotFound is returned when approving an unknown or
	// expired connection request.
	ErrConnectionRequestNotFound = errors.New("connection request not found")
)

// ConnectionRequest is a connection asked by a page, waiting for the user
// to approve it.
type ConnectionRequest struct {
	Nonce     string
	Origin    string
	ExpiresAt time.Time
}

// Connection binds an origin to an account.
type Connection struct {
	Origin    string
	AccountID int
}

// ConnectionsService keeps track of the pages connected to the accounts of
// the wallet. An origin is connected to at most one account.
type ConnectionsService interface {
	Connect(ctx context.Context, origin string, accountID int) error
	Disconnect(ctx context.Context, origin string) error
	ConnectedAccount(ctx context.Context, origin string) (*domain.Account, error)
	IsConnected(ctx context.Context, origin string) (bool, error)
	ChangeConnectedAccount(ctx context.Context, origin string, accountID int) error
	ListConnections(ctx context.Context) ([]Connection, error)

	// RequestConnection registers the request of origin and returns the
	// nonce the user approves it with.
	RequestConnection(ctx context.Context, origin string) (string, error)
	ApproveConnection(ctx context.Context, nonce string, accountID int) error
	RejectConnection(ctx context.Context, nonce string) error
	PendingConnections(ctx context.Context) []ConnectionRequest
}

type connectionsService struct {
	repoManager ports.RepoManager
	pubsub      PubSubService

	lock    sync.Mutex
	pending map[string]ConnectionRequest
}

func NewConnectionsService(
	repoManager ports.RepoManager, pubsub PubSubService,
) ConnectionsService {
	return &connectionsService{
		repoManager: repoManager,
		pubsub:      pubsub,
		pending:     make(map[string]ConnectionRequest),
	}
}

func (c *connectionsService) Connect(
	ctx context.Context, origin string, accountID int,
) error {
	origin, err := normalizeOrigin(origin)
	if err != nil {
		return err
	}
	repo := c.repoManager.AccountRepository()
	if _, err := repo.GetAccount(ctx, accountID); err != nil {
		return err
	}

	accounts, err := repo.GetAllAccounts(ctx)
	if err != nil {
		return err
	}
	for _, account := range accounts {
		if account.ID == accountID || !account.IsConnectedTo(origin) {
			continue
		}
		if err := repo.UpdateAccount(
			ctx, account.ID, func(a *domain.Account) (*domain.Account, error) {
				a.Disconnect(origin)
				return a, nil
			},
		); err != nil {
			return err
		}
	}

	if err := repo.UpdateAccount(
		ctx, accountID, func(a *domain.Account) (*domain.Account, error) {
			a.Connect(origin)
			return a, nil
		},
	); err != nil {
		return err
	}

	c.pubsub.Publish(Event{
		Type:      EventAccountConnected,
		AccountID: accountID,
		Origin:    origin,
		Payload:   Connection{Origin: origin, AccountID: accountID},
	})
	return nil
}

func (c *connectionsService) Disconnect(ctx context.Context, origin string) error {
	origin, err := normalizeOrigin(origin)
	if err != nil {
		return err
	}
	repo := c.repoManager.AccountRepository()
	account, err := repo.GetAccountByOrigin(ctx, origin)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return ErrOriginNotConnected
		}
		return err
	}
	return repo.UpdateAccount(
		ctx, account.ID, func(a *domain.Account) (*domain.Account, error) {
			a.Disconnect(origin)
			return a, nil
		},
	)
}

func (c *connectionsService) ConnectedAccount(
	ctx context.Context, origin string,
) (*domain.Account, error) {
	origin, err := normalizeOrigin(origin)
	if err != nil {
		return nil, err
	}
	account, err := c.repoManager.AccountRepository().GetAccountByOrigin(ctx, origin)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, ErrOriginNotConnected
		}
		return nil, err
	}
	return account, nil
}

func (c *connectionsService) IsConnected(
	ctx context.Context, origin string,
) (bool, error) {
	if _, err := c.ConnectedAccount(ctx, origin); err != nil {
		if errors.Is(err, ErrOriginNotConnected) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (c *connectionsService) ChangeConnectedAccount(
	ctx context.Context, origin string, accountID int,
) error {
	if _, err := c.ConnectedAccount(ctx, origin); err != nil {
		return err
	}
	return c.Connect(ctx, origin, accountID)
}

func (c *connectionsService) ListConnections(
	ctx context.Context,
) ([]Connection, error) {
	accounts, err := c.repoManager.AccountRepository().GetAllAccounts(ctx)
	if err != nil {
		return nil, err
	}
	connections := make([]Connection, 0)
	for _, account := range accounts {
		for _, origin := range account.ConnectedTo {
			connections = append(connections, Connection{origin, account.ID})
		}
	}
	sort.SliceStable(connections, func(i, j int) bool {
		return connections[i].Origin < connections[j].Origin
	})
	return connections, nil
}

func (c *connectionsService) RequestConnection(
	_ context.Context, origin string,
) (string, error) {
	origin, err := normalizeOrigin(origin)
	if err != nil {
		return "", err
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	c.dropExpired()
	nonce := randstr.Hex(16)
	c.pending[nonce] = ConnectionRequest{
		Nonce:     nonce,
		Origin:    origin,
		ExpiresAt: time.Now().Add(connectionRequestTTL),
	}
	return nonce, nil
}

func (c *connectionsService) ApproveConnection(
	ctx context.Context, nonce string, accountID int,
) error {
	req, err := c.popRequest(nonce)
	if err != nil {
		return err
	}
	return c.Connect(ctx, req.Origin, accountID)
}

func (c *connectionsService) RejectConnection(_ context.Context, nonce string) error {
	_, err := c.popRequest(nonce)
	return err
}

func (c *connectionsService) PendingConnections(_ context.Context) []ConnectionRequest {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.dropExpired()
	reqs := make([]ConnectionRequest, 0, len(c.pending))
	for _, req := range c.pending {
		reqs = append(reqs, req)
	}
	sort.SliceStable(reqs, func(i, j int) bool {
		return reqs[i].ExpiresAt.Before(reqs[j].ExpiresAt)
	})
	return reqs
}

func (c *connectionsService) popRequest(nonce string) (ConnectionRequest, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.dropExpired()
	req, ok := c.pending[nonce]
	if !ok {
		return ConnectionRequest{}, ErrConnectionRequestNotFound
	}
	delete(c.pending, nonce)
	return req, nil
}

// dropExpired must be called with the lock held.
func (c *connectionsService) dropExpired() {
	now := time.Now()
	for nonce, req := range c.pending {
		if now.After(req.ExpiresAt) {
			delete(c.pending, nonce)
		}
	}
}

func normalizeOrigin(origin string) (string, error) {
	origin = strings.TrimRight(strings.TrimSpace(origin), "/")
	if origin == "" {
		return "", fmt.Errorf("%w: must not be empty", ErrInvalidOrigin)
	}
	return origin, nil
}
