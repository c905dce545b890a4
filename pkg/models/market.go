package models

// Tick is one generated price observation for one symbol at one point in time.
// Immutable once created; appended to history and broadcast, never mutated.
type Tick struct {
	Code      string  `json:"code"`
	Price     float64 `json:"price"`
	Timestamp int64   `json:"timestamp"` // unix milli
}

// PricePoint is a single history entry replayed to a client after subscribe.
type PricePoint struct {
	Price     float64 `json:"price"`
	Timestamp int64   `json:"timestamp"`
}

// Subscription ties a symbol to the entry price captured when the account
// subscribed. The entry price is a display baseline for gain/loss, not a
// live value.
type Subscription struct {
	Symbol     string  `json:"symbol"`
	EntryPrice float64 `json:"entryPrice"`
}

// Account is a registered identity with its durable watchlist.
type Account struct {
	Name           string
	Email          string
	CredentialHash string
	Subscriptions  []Subscription
}
