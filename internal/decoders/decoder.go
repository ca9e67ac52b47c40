package decoders

import (
	"bufio"
	"context"
	"io"
	"strings"

	"edge-log-analytics/internal/models"
)

const (
	DecoderAccessLog    = "access_log"
	DecoderLoadBalancer = "load_balancer"
)

// sniffSize is how far Format looks for the first meaningful byte.
const sniffSize = 512

// Stats summarises one decoded input stream.
type Stats struct {
	Decoded int // events handed to emit
	Ignored int // records dropped on purpose, e.g. health checks
	Failed  int // records that could not be decoded
}

// EmitFunc receives every decoded event. A non-nil error stops decoding and is returned as is.
type EmitFunc func(event models.Event) error

//go:generate mockgen -source=decoder.go -destination=./mocks/decoder_mock.go -package=mocks
type Decoder interface {
	// Name identifies the decoder in logs and metrics.
	Name() string
	// Decode reads r to the end. Undecodable records are counted and skipped; only read
	// errors, cancellation and emit errors abort.
	Decode(ctx context.Context, r io.Reader, emit EmitFunc) (Stats, error)
}

// ignored reports whether s contains one of the ignore substrings.
func ignored(s string, substrings []string) bool {
	for _, sub := range substrings {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

type autoDecoder struct {
	accessLog    Decoder
	loadBalancer Decoder
}

// NewAutoDecoder picks the load balancer decoder for JSON array exports and the access log
// decoder for anything else, by looking at the first non-blank byte of the stream.
func NewAutoDecoder(accessLog, loadBalancer Decoder) Decoder {
	return &autoDecoder{accessLog: accessLog, loadBalancer: loadBalancer}
}

func (d *autoDecoder) Name() string { return "auto" }

func (d *autoDecoder) Decode(ctx context.Context, r io.Reader, emit EmitFunc) (Stats, error) {
	br := bufio.NewReader(r)
	return d.pick(br).Decode(ctx, br, emit)
}

func (d *autoDecoder) pick(br *bufio.Reader) Decoder {
	head, _ := br.Peek(sniffSize)
	for _, b := range head {
		switch b {
		case ' ', '\t', '\r', '\n', 0xEF, 0xBB, 0xBF:
			continue
		case '[':
			return d.loadBalancer
		default:
			return d.accessLog
		}
	}
	return d.accessLog
}
