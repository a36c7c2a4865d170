package gateway

// Action identifies a browser primitive executed by the owner loop.
type Action string

// Supported command actions.
const (
	ActionNavigate        Action = "navigate"
	ActionFindElement     Action = "find_element"
	ActionFindElements    Action = "find_elements"
	ActionGetText         Action = "get_text"
	ActionGetElementText  Action = "get_element_text"
	ActionGetAttribute    Action = "get_attribute"
	ActionGetPageSource   Action = "get_page_source"
	ActionWaitForSelector Action = "wait_for_selector"
	ActionClick           Action = "click"
	ActionTypeText        Action = "type_text"
	ActionScroll          Action = "scroll"
	ActionClose           Action = "close"
)

// Command is one unit of work submitted to the owner loop. Immutable
// once enqueued; consumed exactly once.
type Command struct {
	ID     string
	Action Action
	Params map[string]any
}

// Result is the owner loop's answer to exactly one Command, matched by ID.
type Result struct {
	ID      string
	Success bool
	Error   string
	Data    map[string]any
}

func failure(id, msg string) Result {
	return Result{ID: id, Error: msg}
}

func success(id string, data map[string]any) Result {
	return Result{ID: id, Success: true, Data: data}
}

func stringParam(params map[string]any, key string) string {
	if v, ok := params[key].(string); ok {
		return v
	}
	return ""
}

func intParam(params map[string]any, key string, def int) int {
	switch v := params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}

func selectorBy(params map[string]any) string {
	if by := stringParam(params, "by"); by != "" {
		return by
	}
	return "css"
}
