package gateway

import "time"

// Engine is one stateful browser-control session. Implementations are
// NOT safe for concurrent use: after construction only the gateway's
// owner loop may invoke them. Calls may block for the duration of a real
// page operation.
type Engine interface {
	Navigate(url string) error
	Find(selector, by string) (bool, error)
	FindAll(selector, by string) (int, error)
	Text(selector, by string) (string, error)
	TextAt(selector, by string, index int) (string, error)
	Attribute(selector, by, name string) (string, error)
	AttributeAt(selector, by, name string, index int) (string, error)
	Source() (string, error)
	WaitFor(selector, by string, timeout time.Duration) error
	Click(selector, by string) error
	TypeText(selector, by, text string) error
	Scroll(amount int) error
	Health() EngineHealth
	// Close releases the session. Must be idempotent.
	Close() error
}

// EngineFactory constructs a fresh engine. Called by the supervisor on
// start and on recovery; a returned error leaves the gateway
// uninitialized and eligible for retry.
type EngineFactory func() (Engine, error)

// EngineHealth is the structural readiness breakdown of a session, so
// callers can tell "not yet initialized" from "initialized but
// unresponsive".
type EngineHealth struct {
	HasBrowser bool `json:"has_browser_object"`
	HasContext bool `json:"has_context"`
	HasPage    bool `json:"has_page"`
	Connected  bool `json:"is_connected"`
}

// Ready reports whether the session is fully constructed.
func (h EngineHealth) Ready() bool {
	return h.HasBrowser && h.HasContext && h.HasPage
}
