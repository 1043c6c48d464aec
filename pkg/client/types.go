package client

// Element describes the target of a signal.
type Element struct {
	ID    string `json:"id,omitempty"`
	Tag   string `json:"tag,omitempty"`
	Class string `json:"class,omitempty"`
}

// Signal is a raw page signal as accepted by POST {base}/signals.
type Signal struct {
	Kind    string   `json:"kind"`
	Target  *Element `json:"target,omitempty"`
	X       float64  `json:"x,omitempty"`
	Y       float64  `json:"y,omitempty"`
	Value   string   `json:"value,omitempty"`
	ScrollX float64  `json:"scroll_x,omitempty"`
	ScrollY float64  `json:"scroll_y,omitempty"`
	Hidden  bool     `json:"hidden,omitempty"`
	Width   int      `json:"width,omitempty"`
	Height  int      `json:"height,omitempty"`
}

// Stats counts flush activity of the remote collector.
type Stats struct {
	Flushes     int            `json:"flushes"`
	Delivered   map[string]int `json:"delivered"`
	Dropped     int            `json:"dropped"`
	LastTrigger string         `json:"last_trigger,omitempty"`
	LastOutcome string         `json:"last_outcome,omitempty"`
}

// Status is the response of GET {base}/status.
type Status struct {
	Started           bool    `json:"started"`
	Unloaded          bool    `json:"unloaded"`
	Buffered          int     `json:"buffered"`
	Hesitation        string  `json:"hesitation"`
	LastInteractionMs float64 `json:"last_interaction_ms"`
	MethodSessionID   string  `json:"method_session_id,omitempty"`
	PageURL           string  `json:"page_url"`
	Stats             Stats   `json:"stats"`
}

// ErrorResponse is the body of a non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Index *int   `json:"index,omitempty"`
}

type signalsResponse struct {
	Accepted int `json:"accepted"`
}

type flushResponse struct {
	Outcome string `json:"outcome"`
}
