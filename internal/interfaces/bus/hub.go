package businterface

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pali-wallet/palid/internal/core/application"
	"github.com/pali-wallet/palid/internal/core/domain"
	"github.com/pali-wallet/palid/internal/interfaces"
	"github.com/pali-wallet/palid/pkg/stats"
	log "github.com/sirupsen/logrus"
)

const (
	writeWait       = 10 * time.Second
	pongWait        = 60 * time.Second
	pingPeriod      = (pongWait * 9) / 10
	maxMessageSize  = 1 << 20
	sendBufferSize  = 64
	eventBufferSize = 256
	requestTimeout  = 30 * time.Second
)

var extensionSchemes = map[string]bool{
	"chrome-extension":     true,
	"moz-extension":        true,
	"safari-web-extension": true,
}

// HubOpts are the dependencies of the message bus.
type HubOpts struct {
	WalletSvc      application.WalletService
	AccountSvc     application.AccountService
	ConnectionsSvc application.ConnectionsService
	// AllowedOrigins are the page origins allowed to open a socket besides
	// the wallet extensions. "*" allows any origin.
	AllowedOrigins []string
	// ExtensionIDs are the ids of the wallet extensions whose content
	// scripts open sockets on behalf of the pages they are injected in.
	ExtensionIDs []string
}

func (o HubOpts) validate() error {
	if o.WalletSvc == nil {
		return fmt.Errorf("missing wallet service")
	}
	if o.AccountSvc == nil {
		return fmt.Errorf("missing account service")
	}
	if o.ConnectionsSvc == nil {
		return fmt.Errorf("missing connections service")
	}
	return nil
}

// Hub serves the websocket message bus of the pages. Every socket is bound
// to the origin of the page that opened it, the requests are dispatched on
// behalf of that origin and the events of the services are pushed to the
// sockets of the pages connected to the affected account.
type Hub struct {
	dispatcher     *dispatcher
	allowedOrigins map[string]bool
	extensionIDs   map[string]bool
	upgrader       websocket.Upgrader

	events chan application.Event

	lock    sync.RWMutex
	clients map[*client]struct{}
	stopped bool

	quit chan struct{}
	wg   sync.WaitGroup
}

// NewHub returns a running hub. It must be registered as listener of the
// pubsub service to push events.
func NewHub(opts HubOpts) (*Hub, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	allowed := make(map[string]bool, len(opts.AllowedOrigins))
	for _, o := range opts.AllowedOrigins {
		allowed[strings.TrimSuffix(strings.TrimSpace(o), "/")] = true
	}
	extensionIDs := make(map[string]bool, len(opts.ExtensionIDs))
	for _, id := range opts.ExtensionIDs {
		if id = strings.TrimSpace(id); id != "" {
			extensionIDs[id] = true
		}
	}
	h := &Hub{
		dispatcher: &dispatcher{
			walletSvc:      opts.WalletSvc,
			accountSvc:     opts.AccountSvc,
			connectionsSvc: opts.ConnectionsSvc,
		},
		allowedOrigins: allowed,
		extensionIDs:   extensionIDs,
		events:         make(chan application.Event, eventBufferSize),
		clients:        make(map[*client]struct{}),
		quit:           make(chan struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}

	h.wg.Add(1)
	go h.run()
	return h, nil
}

// OnEvent enqueues the event to be pushed to the pages. Events are dropped
// if the queue is full.
func (h *Hub) OnEvent(event application.Event) {
	select {
	case h.events <- event:
	default:
		log.Warnf("bus: event queue full, dropping %s event", event.Type)
	}
}

// ServeHTTP upgrades the request to a websocket bound to the page origin.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	origin, err := h.pageOrigin(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader already replied to the request.
		log.WithError(err).Debug("bus: failed to upgrade connection")
		return
	}

	c := newClient(h, conn, origin)
	if !h.register(c) {
		conn.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}

// Stop closes all sockets and stops pushing events.
func (h *Hub) Stop() {
	h.lock.Lock()
	if h.stopped {
		h.lock.Unlock()
		return
	}
	h.stopped = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.lock.Unlock()

	close(h.quit)
	for _, c := range clients {
		c.close()
	}
	h.wg.Wait()
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return h.allowedOrigins["*"]
	}
	if h.isWalletExtension(origin) {
		return true
	}
	return h.allowedOrigins["*"] || h.allowedOrigins[strings.TrimSuffix(origin, "/")]
}

// pageOrigin returns the origin of the page the socket is opened for. The
// content script of a wallet extension relays the origin of its page in the
// query, any other client is bound to its own origin.
func (h *Hub) pageOrigin(r *http.Request) (string, error) {
	origin := r.Header.Get("Origin")
	if origin == "" || h.isWalletExtension(origin) {
		origin = r.URL.Query().Get("origin")
	}
	u, err := url.Parse(origin)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid page origin %q", origin)
	}
	return fmt.Sprintf("%s://%s", u.Scheme, u.Host), nil
}

func (h *Hub) isWalletExtension(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil || !extensionSchemes[u.Scheme] {
		return false
	}
	return h.extensionIDs[u.Host]
}

func (h *Hub) register(c *client) bool {
	h.lock.Lock()
	defer h.lock.Unlock()

	if h.stopped {
		return false
	}
	h.clients[c] = struct{}{}
	stats.ConnectedPages.Inc()
	log.Debugf("bus: page %s connected", c.origin)
	return true
}

func (h *Hub) unregister(c *client) {
	h.lock.Lock()
	defer h.lock.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	stats.ConnectedPages.Dec()
	log.Debugf("bus: page %s disconnected", c.origin)
}

func (h *Hub) snapshot() []*client {
	h.lock.RLock()
	defer h.lock.RUnlock()

	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	return clients
}

func (h *Hub) run() {
	defer h.wg.Done()

	for {
		select {
		case <-h.quit:
			return
		case event := <-h.events:
			h.broadcast(event)
		}
	}
}

func (h *Hub) broadcast(event application.Event) {
	clients := h.snapshot()
	if len(clients) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	if event.Type == application.EventAccountConnected {
		accountID := event.AccountID
		for _, c := range clients {
			if c.origin != event.Origin {
				continue
			}
			c.enqueue(Reply{
				Type:   Connected,
				Target: TargetContentScript,
				MessageData: connectWalletReply{
					Connected: true, AccountID: &accountID,
				},
			})
		}
		return
	}

	accounts := make(map[string]*domain.Account)
	connectedAccount := func(origin string) *domain.Account {
		if account, ok := accounts[origin]; ok {
			return account
		}
		account, err := h.dispatcher.connectionsSvc.ConnectedAccount(ctx, origin)
		if err != nil {
			account = nil
		}
		accounts[origin] = account
		return account
	}

	for _, c := range clients {
		account := connectedAccount(c.origin)
		if account == nil {
			continue
		}

		var (
			msgType MessageType
			data    interface{}
		)
		switch event.Type {
		case application.EventTransactionsUpdated:
			if account.ID != event.AccountID {
				continue
			}
			msgType = TxUpdated
			if txs, ok := event.Payload.([]domain.Transaction); ok {
				data = interfaces.NewTransactionViews(txs)
			}
		case application.EventTokensUpdated:
			if account.ID != event.AccountID {
				continue
			}
			msgType = TokensUpdated
			if holdings, ok := event.Payload.([]domain.Holding); ok {
				data = interfaces.NewHoldingViews(holdings)
			}
		case application.EventWalletUpdated:
			if account.ID != event.AccountID {
				continue
			}
			fallthrough
		case application.EventWalletLocked, application.EventWalletUnlocked,
			application.EventNetworkChanged:
			state, err := h.dispatcher.walletState(ctx, account)
			if err != nil {
				log.WithError(err).Warn("bus: failed to get wallet state")
				continue
			}
			msgType, data = WalletUpdated, state
		default:
			return
		}

		c.enqueue(Reply{Type: msgType, Target: TargetContentScript, MessageData: data})
	}
}

type client struct {
	hub    *Hub
	conn   *websocket.Conn
	origin string
	send   chan Reply

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

func newClient(hub *Hub, conn *websocket.Conn, origin string) *client {
	ctx, cancel := context.WithCancel(context.Background())
	return &client{
		hub:    hub,
		conn:   conn,
		origin: origin,
		send:   make(chan Reply, sendBufferSize),
		ctx:    ctx,
		cancel: cancel,
	}
}

// enqueue never blocks, a page that doesn't keep up with its messages is
// disconnected.
func (c *client) enqueue(reply Reply) {
	if c.ctx.Err() != nil {
		return
	}
	select {
	case c.send <- reply:
	default:
		log.Warnf("bus: send buffer of page %s is full, disconnecting", c.origin)
		c.close()
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		c.cancel()
		c.conn.Close()
		c.hub.unregister(c)
	})
}

func (c *client) readPump() {
	defer c.close()

	c.conn.SetReadLimit(maxMessageSize)
	// nolint
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, buf, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(
				err, websocket.CloseGoingAway, websocket.CloseNormalClosure,
			) {
				log.WithError(err).Debugf("bus: read from page %s failed", c.origin)
			}
			return
		}

		msg := Envelope{}
		if err := json.Unmarshal(buf, &msg); err != nil {
			errReply := interfaces.NewErrorReply(
				fmt.Errorf("%w: %s", ErrInvalidMessageData, err),
			)
			c.enqueue(Reply{Target: TargetContentScript, Error: &errReply})
			continue
		}
		go c.handle(msg)
	}
}

func (c *client) handle(msg Envelope) {
	ctx, cancel := context.WithTimeout(c.ctx, requestTimeout)
	defer cancel()

	reply := Reply{ID: msg.ID, Type: msg.Type, Target: TargetContentScript}
	data, err := c.hub.dispatcher.dispatch(ctx, c.origin, msg)
	if err != nil {
		errReply := interfaces.NewErrorReply(err)
		if errReply.Code == http.StatusInternalServerError {
			log.WithError(err).Warnf(
				"bus: failed to handle %s message of page %s", msg.Type, c.origin,
			)
		}
		reply.Error = &errReply
	} else {
		reply.MessageData = data
	}
	c.enqueue(reply)
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			return
		case reply := <-c.send:
			// nolint
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(reply); err != nil {
				log.WithError(err).Debugf("bus: write to page %s failed", c.origin)
				return
			}
		case <-ticker.C:
			// nolint
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
