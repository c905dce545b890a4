package hub

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/tickerhub/stock-ticker/cmd/feed/internal/market"
	"github.com/tickerhub/stock-ticker/cmd/feed/internal/protocol"
	"github.com/tickerhub/stock-ticker/cmd/feed/internal/repository"
	"github.com/tickerhub/stock-ticker/pkg/models"
)

// entry prices further than this fraction of the live price are healed at login
const entryPriceTolerance = 0.20

const minPasswordLen = 4

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type ClientInterface interface {
	ID() string
	SendJSON(v interface{})
	SendBytes(b []byte)
	Close()
}

// group is one symbol's broadcast membership with its own lock; joining or
// broadcasting one symbol never serializes against another.
type group struct {
	mu      sync.RWMutex
	members map[ClientInterface]bool
}

func (g *group) add(client ClientInterface) {
	g.mu.Lock()
	g.members[client] = true
	g.mu.Unlock()
}

func (g *group) remove(client ClientInterface) {
	g.mu.Lock()
	delete(g.members, client)
	g.mu.Unlock()
}

// Hub is the subscription registry: it tracks which connections belong to
// which symbol groups, binds an account identity to a connection at login,
// and mediates between transient group membership and the durable watchlist
// in the account store. The group map is built from the catalog at startup
// and never mutated afterwards.
type Hub struct {
	catalog *market.Catalog
	engine  *market.Engine
	history *market.History
	store   repository.AccountStore
	logger  *zap.Logger

	groups map[string]*group

	// clientMu guards the per-connection state only; per-symbol membership
	// lives behind each group's own lock.
	clientMu   sync.RWMutex
	clientSyms map[ClientInterface]map[string]bool
	identities map[ClientInterface]string // connection -> bound account email
}

func NewHub(catalog *market.Catalog, engine *market.Engine, history *market.History, store repository.AccountStore, logger *zap.Logger) *Hub {
	h := &Hub{
		catalog:    catalog,
		engine:     engine,
		history:    history,
		store:      store,
		logger:     logger,
		groups:     make(map[string]*group, catalog.Size()),
		clientSyms: make(map[ClientInterface]map[string]bool),
		identities: make(map[ClientInterface]string),
	}
	for _, sym := range catalog.Symbols() {
		h.groups[sym] = &group{members: make(map[ClientInterface]bool)}
	}
	return h
}

// HandleCommand routes one inbound frame for a connection.
func (h *Hub) HandleCommand(client ClientInterface, env protocol.Envelope) {
	switch protocol.ParseCommand(env.Event) {
	case protocol.CmdRegister:
		var p protocol.RegisterPayload
		if !h.decode(client, env.Payload, &p) {
			return
		}
		h.handleRegister(client, p)
	case protocol.CmdLogin:
		var p protocol.LoginPayload
		if !h.decode(client, env.Payload, &p) {
			return
		}
		h.handleLogin(client, p)
	case protocol.CmdSubscribe:
		var p protocol.SubscribePayload
		if !h.decode(client, env.Payload, &p) {
			return
		}
		h.handleSubscribe(client, normalizeSymbol(p.StockCode))
	case protocol.CmdUnsubscribe:
		var p protocol.SubscribePayload
		if !h.decode(client, env.Payload, &p) {
			return
		}
		h.handleUnsubscribe(client, normalizeSymbol(p.StockCode))
	case protocol.CmdUnsubscribeAll:
		var p protocol.UnsubscribeAllPayload
		if !h.decode(client, env.Payload, &p) {
			return
		}
		h.handleUnsubscribeAll(client, p.Stocks)
	case protocol.CmdJoinFeed:
		var p protocol.SubscribePayload
		if !h.decode(client, env.Payload, &p) {
			return
		}
		h.handleJoinFeed(client, normalizeSymbol(p.StockCode))
	default:
		h.sendAuthError(client, "unknown event: "+env.Event)
	}
}

func (h *Hub) handleRegister(client ClientInterface, p protocol.RegisterPayload) {
	name := strings.TrimSpace(p.Name)
	email := normalizeEmail(p.Email)

	if name == "" {
		h.sendAuthError(client, "name is required")
		return
	}
	if !emailPattern.MatchString(email) {
		h.sendAuthError(client, "invalid email address")
		return
	}
	if len(p.Password) < minPasswordLen {
		h.sendAuthError(client, "password must be longer than 3 characters")
		return
	}

	hash, err := repository.HashCredential(p.Password)
	if err != nil {
		h.logger.Error("Credential hashing failed", zap.Error(err))
		h.sendAuthError(client, "registration failed")
		return
	}

	if _, err := h.store.Create(context.Background(), name, email, hash); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			h.sendAuthError(client, "email already registered")
			return
		}
		h.logger.Error("Account creation failed", zap.String("email", email), zap.Error(err))
		h.sendAuthError(client, "registration failed")
		return
	}

	client.SendJSON(protocol.Message{Event: protocol.EventRegisterSuccess, Payload: "registration successful"})
}

func (h *Hub) handleLogin(client ClientInterface, p protocol.LoginPayload) {
	email := normalizeEmail(p.Email)

	acct, err := h.store.FindByEmail(context.Background(), email)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			h.logger.Error("Account lookup failed", zap.String("email", email), zap.Error(err))
		}
		h.sendAuthError(client, "invalid email or password")
		return
	}
	if !repository.VerifyCredential(p.Password, acct.CredentialHash) {
		h.sendAuthError(client, "invalid email or password")
		return
	}

	clean := h.reconcile(acct.Subscriptions)

	h.clientMu.Lock()
	h.identities[client] = acct.Email
	h.clientMu.Unlock()
	for _, sub := range clean {
		h.join(client, sub.Symbol)
	}

	client.SendJSON(protocol.Message{
		Event: protocol.EventLoginSuccess,
		Payload: protocol.LoginSuccessPayload{
			Name:               acct.Name,
			Email:              acct.Email,
			SavedSubscriptions: clean,
			AvailableStocks:    h.catalog.Symbols(),
		},
	})

	for _, sub := range clean {
		h.sendHistory(client, sub.Symbol)
	}
}

// reconcile heals an account's persisted subscriptions against live prices:
// unknown symbols are dropped, and entry prices that are missing, zero, or
// off by more than 20% of the live price are replaced with the live price.
// The corrected values are never written back to the store; correction is
// display-only until the client re-subscribes.
func (h *Hub) reconcile(subs []models.Subscription) []models.Subscription {
	live := h.engine.Prices()

	clean := make([]models.Subscription, 0, len(subs))
	for _, sub := range subs {
		if !h.catalog.IsValid(sub.Symbol) {
			continue
		}
		price := live[sub.Symbol]
		if sub.EntryPrice <= 0 || sub.EntryPrice < price*(1-entryPriceTolerance) || sub.EntryPrice > price*(1+entryPriceTolerance) {
			sub.EntryPrice = price
		}
		clean = append(clean, sub)
	}
	return clean
}

func (h *Hub) handleSubscribe(client ClientInterface, symbol string) {
	email, ok := h.identity(client)
	if !ok {
		h.sendAuthError(client, "login required")
		return
	}
	if !h.catalog.IsValid(symbol) {
		// Unknown symbols are a silent no-op, never an error.
		return
	}

	entry, _ := h.engine.Price(symbol)
	h.join(client, symbol)

	// Membership stands even when the persistence write fails: the live feed
	// wins over strict durability, and the next successful subscribe repairs
	// the stored entry.
	if err := h.store.AddSubscription(context.Background(), email, symbol, entry); err != nil {
		h.logger.Error("Failed to persist subscription",
			zap.String("email", email), zap.String("symbol", symbol), zap.Error(err))
	}

	h.sendHistory(client, symbol)
}

func (h *Hub) handleUnsubscribe(client ClientInterface, symbol string) {
	email, ok := h.identity(client)
	if !ok {
		h.sendAuthError(client, "login required")
		return
	}

	h.clientMu.Lock()
	member := h.clientSyms[client][symbol]
	if member {
		delete(h.clientSyms[client], symbol)
	}
	h.clientMu.Unlock()

	if !member {
		return
	}
	h.groups[symbol].remove(client)

	if err := h.store.RemoveSubscription(context.Background(), email, symbol); err != nil {
		h.logger.Error("Failed to remove persisted subscription",
			zap.String("email", email), zap.String("symbol", symbol), zap.Error(err))
	}
}

// handleUnsubscribeAll drops group membership for the listed symbols without
// touching persisted state. Used when a client swaps views and is about to
// re-subscribe; the store stays the source of truth for the next login.
func (h *Hub) handleUnsubscribeAll(client ClientInterface, symbols []string) {
	if _, ok := h.identity(client); !ok {
		h.sendAuthError(client, "login required")
		return
	}

	for _, raw := range symbols {
		h.leave(client, normalizeSymbol(raw))
	}
}

// handleJoinFeed joins a symbol's group for read-only observation. No auth,
// no persistence; used for anonymous preview viewing.
func (h *Hub) handleJoinFeed(client ClientInterface, symbol string) {
	if !h.catalog.IsValid(symbol) {
		return
	}
	h.join(client, symbol)
}

// Unregister removes a disconnecting client from every group. Persisted
// subscriptions are untouched; durability is written only on explicit
// subscribe/unsubscribe.
func (h *Hub) Unregister(client ClientInterface) {
	h.clientMu.Lock()
	syms := h.clientSyms[client]
	delete(h.clientSyms, client)
	delete(h.identities, client)
	h.clientMu.Unlock()

	for sym := range syms {
		if g, ok := h.groups[sym]; ok {
			g.remove(client)
		}
	}

	client.Close()
}

// Broadcast delivers a prepared frame to every member of the symbol's group.
// Fire-and-forget per connection; a slow client never blocks the others.
func (h *Hub) Broadcast(symbol string, payload []byte) {
	g, ok := h.groups[symbol]
	if !ok {
		return
	}

	g.mu.RLock()
	defer g.mu.RUnlock()
	for client := range g.members {
		client.SendBytes(payload)
	}
}

func (h *Hub) join(client ClientInterface, symbol string) {
	g, ok := h.groups[symbol]
	if !ok {
		return
	}

	h.clientMu.Lock()
	if h.clientSyms[client] == nil {
		h.clientSyms[client] = make(map[string]bool)
	}
	h.clientSyms[client][symbol] = true
	h.clientMu.Unlock()

	g.add(client)
}

func (h *Hub) leave(client ClientInterface, symbol string) {
	g, ok := h.groups[symbol]
	if !ok {
		return
	}

	h.clientMu.Lock()
	if subs, ok := h.clientSyms[client]; ok {
		delete(subs, symbol)
	}
	h.clientMu.Unlock()

	g.remove(client)
}

func (h *Hub) identity(client ClientInterface) (string, bool) {
	h.clientMu.RLock()
	defer h.clientMu.RUnlock()
	email, ok := h.identities[client]
	return email, ok
}

func (h *Hub) sendHistory(client ClientInterface, symbol string) {
	ticks := h.history.Snapshot(symbol)
	points := make([]models.PricePoint, len(ticks))
	for i, t := range ticks {
		points[i] = models.PricePoint{Price: t.Price, Timestamp: t.Timestamp}
	}
	client.SendJSON(protocol.Message{
		Event:   protocol.EventLoadHistory,
		Payload: protocol.HistoryPayload{Code: symbol, History: points},
	})
}

func (h *Hub) decode(client ClientInterface, raw json.RawMessage, v interface{}) bool {
	if len(raw) == 0 {
		h.sendAuthError(client, "missing payload")
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		h.sendAuthError(client, "malformed payload")
		return false
	}
	return true
}

func (h *Hub) sendAuthError(client ClientInterface, msg string) {
	client.SendJSON(protocol.Message{Event: protocol.EventAuthError, Payload: msg})
}

func normalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
