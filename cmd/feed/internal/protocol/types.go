package protocol

import (
	"encoding/json"

	"github.com/tickerhub/stock-ticker/pkg/models"
)

// Inbound event names.
const (
	EventRegister       = "register"
	EventLogin          = "login"
	EventSubscribe      = "subscribe"
	EventUnsubscribe    = "unsubscribe"
	EventUnsubscribeAll = "unsubscribeAll"
	EventJoinFeed       = "joinFeed"
)

// Outbound event names.
const (
	EventRegisterSuccess = "registerSuccess"
	EventLoginSuccess    = "loginSuccess"
	EventLoadHistory     = "loadHistory"
	EventPriceUpdate     = "priceUpdate"
	EventAuthError       = "authError"
)

// Command is the fixed set of operations a connection can request. Routing
// through an enum keeps dispatch in one switch instead of a string table.
type Command int

const (
	CmdUnknown Command = iota
	CmdRegister
	CmdLogin
	CmdSubscribe
	CmdUnsubscribe
	CmdUnsubscribeAll
	CmdJoinFeed
)

// ParseCommand maps a wire event name onto a Command.
func ParseCommand(event string) Command {
	switch event {
	case EventRegister:
		return CmdRegister
	case EventLogin:
		return CmdLogin
	case EventSubscribe:
		return CmdSubscribe
	case EventUnsubscribe:
		return CmdUnsubscribe
	case EventUnsubscribeAll:
		return CmdUnsubscribeAll
	case EventJoinFeed:
		return CmdJoinFeed
	default:
		return CmdUnknown
	}
}

// Envelope is an inbound frame: an event name plus its raw payload, decoded
// per-command by the hub.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Message is an outbound frame.
type Message struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload,omitempty"`
}

type RegisterPayload struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SubscribePayload struct {
	StockCode string `json:"stockCode"`
}

type UnsubscribeAllPayload struct {
	Stocks []string `json:"stocks"`
}

type LoginSuccessPayload struct {
	Name               string                `json:"name"`
	Email              string                `json:"email"`
	SavedSubscriptions []models.Subscription `json:"savedSubscriptions"`
	AvailableStocks    []string              `json:"availableStocks"`
}

type HistoryPayload struct {
	Code    string              `json:"code"`
	History []models.PricePoint `json:"history"`
}
