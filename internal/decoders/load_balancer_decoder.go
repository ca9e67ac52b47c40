package decoders

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"edge-log-analytics/internal/models"
	"edge-log-analytics/internal/shared/loggers"
)

var (
	ErrNotAnArray     = errors.New("load balancer export must be a JSON array")
	ErrMalformedEntry = errors.New("malformed load balancer entry")
)

// lbEntry is one element of a load balancer request log export.
type lbEntry struct {
	HTTPRequest lbHTTPRequest `json:"httpRequest"`
	Timestamp   string        `json:"timestamp"`
}

type lbHTTPRequest struct {
	RequestMethod string    `json:"requestMethod"`
	RequestURL    string    `json:"requestUrl"`
	ResponseSize  rawScalar `json:"responseSize"`
	UserAgent     string    `json:"userAgent"`
	Referer       string    `json:"referer"`
	Status        int       `json:"status"`
	CacheHit      bool      `json:"cacheHit"`
}

// rawScalar keeps the text of a JSON string or number as is, so sizes exported either as
// "1234" or 1234 reach the engine untouched.
type rawScalar string

func (s *rawScalar) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*s = ""
	case len(data) > 0 && data[0] == '"':
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = rawScalar(str)
	default:
		*s = rawScalar(data)
	}
	return nil
}

type loadBalancerDecoder struct {
	ignoreSubstrings []string
}

// NewLoadBalancerDecoder decodes a JSON array export of load balancer request logs into edge
// traffic events. The array is streamed, one element at a time.
func NewLoadBalancerDecoder(ignoreSubstrings []string) Decoder {
	return &loadBalancerDecoder{ignoreSubstrings: ignoreSubstrings}
}

func (d *loadBalancerDecoder) Name() string { return DecoderLoadBalancer }

func (d *loadBalancerDecoder) Decode(ctx context.Context, r io.Reader, emit EmitFunc) (Stats, error) {
	logger := loggers.Ctx(ctx).With().Str(loggers.FieldDecoder, DecoderLoadBalancer).Logger()
	dec := json.NewDecoder(r)

	var stats Stats
	defer func() { recordStats(DecoderLoadBalancer, stats) }()

	tok, err := dec.Token()
	if errors.Is(err, io.EOF) {
		return stats, nil
	}
	if err != nil {
		return stats, fmt.Errorf("%w: %w", ErrNotAnArray, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return stats, fmt.Errorf("%w: starts with %v", ErrNotAnArray, tok)
	}

	for index := 0; dec.More(); index++ {
		if index%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
		}

		var entry lbEntry
		if err := dec.Decode(&entry); err != nil {
			var typeErr *json.UnmarshalTypeError
			if !errors.As(err, &typeErr) {
				return stats, fmt.Errorf("failed to decode entry %d: %w", index, err)
			}
			stats.Failed++
			logger.Debug().Err(err).Int("index", index).Msg("skipped undecodable load balancer entry")
			continue
		}

		event, err := toEdgeEvent(entry)
		if err != nil {
			stats.Failed++
			logger.Debug().Err(err).Int("index", index).Msg("skipped undecodable load balancer entry")
			continue
		}
		if ignored(event.URI, d.ignoreSubstrings) {
			stats.Ignored++
			continue
		}
		if err := emit(event); err != nil {
			return stats, err
		}
		stats.Decoded++
	}

	if _, err := dec.Token(); err != nil {
		return stats, fmt.Errorf("%w: unterminated array: %w", ErrNotAnArray, err)
	}
	return stats, nil
}

func toEdgeEvent(entry lbEntry) (models.EdgeTrafficEvent, error) {
	ts, err := time.Parse(time.RFC3339Nano, entry.Timestamp)
	if err != nil {
		return models.EdgeTrafficEvent{}, fmt.Errorf("%w: timestamp %q: %w", ErrMalformedEntry, entry.Timestamp, err)
	}
	if strings.TrimSpace(entry.HTTPRequest.RequestURL) == "" {
		return models.EdgeTrafficEvent{}, fmt.Errorf("%w: missing requestUrl", ErrMalformedEntry)
	}

	return models.EdgeTrafficEvent{
		Timestamp:         ts.UnixMilli(),
		URI:               requestURI(entry.HTTPRequest.RequestURL),
		ResponseSizeBytes: string(entry.HTTPRequest.ResponseSize),
		UserAgent:         entry.HTTPRequest.UserAgent,
		Referer:           entry.HTTPRequest.Referer,
	}, nil
}

// requestURI reduces an absolute URL to its path and query. Anything else is kept as is.
func requestURI(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return raw
	}
	return u.RequestURI()
}
