package event

// Batch is the body POSTed to the track endpoint.
type Batch struct {
	Events          []Record `json:"events"`
	MethodSessionID *string  `json:"method_session_id"`
}

// NewBatch builds the delivery payload. An empty correlation id is encoded as null.
func NewBatch(events []Record, methodSessionID string) Batch {
	b := Batch{Events: events}
	if methodSessionID != "" {
		id := methodSessionID
		b.MethodSessionID = &id
	}
	if b.Events == nil {
		b.Events = []Record{}
	}
	return b
}

// SessionID returns the correlation id or "" when it is null.
func (b Batch) SessionID() string {
	if b.MethodSessionID == nil {
		return ""
	}
	return *b.MethodSessionID
}

// SessionMeta describes the device and locale of a session.
type SessionMeta struct {
	ScreenWidth  int    `json:"screen_width"`
	ScreenHeight int    `json:"screen_height"`
	Language     string `json:"language"`
	Timezone     string `json:"timezone"`
	IsIframe     bool   `json:"is_iframe"`
}
