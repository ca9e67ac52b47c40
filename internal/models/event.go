package models

// EventKind identifies which aggregation family an event feeds.
type EventKind string

const (
	KindRequest EventKind = "request"
	KindEdge    EventKind = "edge"
)

// Event is a decoded access-log record ready for aggregation.
type Event interface {
	Kind() EventKind
	TimestampMillis() int64
}

// RequestEvent is one application access-log line: when it was received, what was
// requested and how long the server took to answer.
type RequestEvent struct {
	Timestamp        int64  `json:"timestamp"` // epoch millis
	URI              string `json:"uri"`
	ProcessingTimeMs uint64 `json:"processingTimeMs"`
}

func (e RequestEvent) Kind() EventKind        { return KindRequest }
func (e RequestEvent) TimestampMillis() int64 { return e.Timestamp }

// EdgeTrafficEvent is one load-balancer / CDN edge record.
//
// ResponseSizeBytes is kept as the raw decoded text because edge exports carry it as a
// string that is sometimes empty or "-". UserAgent and Referer are empty when absent.
type EdgeTrafficEvent struct {
	Timestamp         int64  `json:"timestamp"` // epoch millis
	URI               string `json:"uri"`
	ResponseSizeBytes string `json:"responseSizeBytes"`
	UserAgent         string `json:"userAgent,omitempty"`
	Referer           string `json:"referer,omitempty"`
}

func (e EdgeTrafficEvent) Kind() EventKind        { return KindEdge }
func (e EdgeTrafficEvent) TimestampMillis() int64 { return e.Timestamp }
