package testutils

import (
	"context"
	"sync"
	"time"

	"github.com/tickerhub/stock-ticker/cmd/feed/internal/protocol"
	"github.com/tickerhub/stock-ticker/cmd/feed/internal/repository"
	"github.com/tickerhub/stock-ticker/pkg/models"
)

// MockClient simulates a connected websocket client
type MockClient struct {
	IDVal    string
	Messages []protocol.Message // Stores structured outbound messages
	RawBytes []string           // Stores broadcast frames
	Closed   bool
	Mu       sync.Mutex
}

func NewMockClient(id string) *MockClient {
	return &MockClient{IDVal: id, Messages: make([]protocol.Message, 0)}
}

func (m *MockClient) ID() string { return m.IDVal }

func (m *MockClient) Close() {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Closed = true
}

func (m *MockClient) SendJSON(v interface{}) {
	m.Mu.Lock()
	defer m.Mu.Unlock()

	if msg, ok := v.(protocol.Message); ok {
		m.Messages = append(m.Messages, msg)
	}
}

func (m *MockClient) SendBytes(b []byte) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.RawBytes = append(m.RawBytes, string(b))
}

func (m *MockClient) LastEvent() string {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if len(m.Messages) == 0 {
		return ""
	}
	return m.Messages[len(m.Messages)-1].Event
}

// CountEvent returns how many outbound messages carried the given event name.
func (m *MockClient) CountEvent(event string) int {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	n := 0
	for _, msg := range m.Messages {
		if msg.Event == event {
			n++
		}
	}
	return n
}

func (m *MockClient) BroadcastCount() int {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return len(m.RawBytes)
}

// MockAccountStore is an in-memory account store with replace-if-exists
// subscription semantics, matching the durable implementations.
type MockAccountStore struct {
	Mu         sync.Mutex
	Accounts   map[string]*models.Account
	FailWrites bool // force persistence errors on subscription writes
}

var _ repository.AccountStore = (*MockAccountStore)(nil)

func NewMockAccountStore() *MockAccountStore {
	return &MockAccountStore{Accounts: make(map[string]*models.Account)}
}

func (m *MockAccountStore) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()

	acct, ok := m.Accounts[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *acct
	cp.Subscriptions = append([]models.Subscription(nil), acct.Subscriptions...)
	return &cp, nil
}

func (m *MockAccountStore) Create(ctx context.Context, name, email, credentialHash string) (*models.Account, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()

	if _, ok := m.Accounts[email]; ok {
		return nil, repository.ErrDuplicateEmail
	}
	acct := &models.Account{Name: name, Email: email, CredentialHash: credentialHash}
	m.Accounts[email] = acct
	return acct, nil
}

func (m *MockAccountStore) AddSubscription(ctx context.Context, email, symbol string, entryPrice float64) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()

	if m.FailWrites {
		return context.DeadlineExceeded
	}
	acct, ok := m.Accounts[email]
	if !ok {
		return repository.ErrNotFound
	}
	for i, sub := range acct.Subscriptions {
		if sub.Symbol == symbol {
			acct.Subscriptions[i].EntryPrice = entryPrice
			return nil
		}
	}
	acct.Subscriptions = append(acct.Subscriptions, models.Subscription{Symbol: symbol, EntryPrice: entryPrice})
	return nil
}

func (m *MockAccountStore) RemoveSubscription(ctx context.Context, email, symbol string) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()

	if m.FailWrites {
		return context.DeadlineExceeded
	}
	acct, ok := m.Accounts[email]
	if !ok {
		return repository.ErrNotFound
	}
	out := acct.Subscriptions[:0]
	for _, sub := range acct.Subscriptions {
		if sub.Symbol != symbol {
			out = append(out, sub)
		}
	}
	acct.Subscriptions = out
	return nil
}

// Subscriptions returns a copy of the persisted watchlist for an account.
func (m *MockAccountStore) Subscriptions(email string) []models.Subscription {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	acct, ok := m.Accounts[email]
	if !ok {
		return nil
	}
	return append([]models.Subscription(nil), acct.Subscriptions...)
}

func (m *MockAccountStore) Close() error { return nil }

// StubRand cycles through a fixed value sequence. The default value 0.5
// yields zero noise in the price process.
type StubRand struct {
	Values []float64
	idx    int
}

func (s *StubRand) Float64() float64 {
	if len(s.Values) == 0 {
		return 0.5
	}
	v := s.Values[s.idx%len(s.Values)]
	s.idx++
	return v
}

// StubClock returns a fixed instant.
type StubClock struct {
	T time.Time
}

func (s StubClock) Now() time.Time { return s.T }
