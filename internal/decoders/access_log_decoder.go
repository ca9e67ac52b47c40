package decoders

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"edge-log-analytics/internal/models"
	"edge-log-analytics/internal/shared/loggers"
)

// accessLogRx matches the access log layout
//
//	%h - - [%{%a, %e %b %Y %T %Z}t] "%r" %>s %b "%{Referer}i" "%{User-Agent}i" %{ms}Tms
//
// Quoted fields may contain backslash escaped quotes.
var accessLogRx = regexp.MustCompile(`^(\S+) \S+ \S+ \[([^\]]+)\] "((?:[^"\\]|\\.)*)" (\d{3}|-) (\d+|-) "((?:[^"\\]|\\.)*)" "((?:[^"\\]|\\.)*)" (\d+)ms\s*$`)

// accessLogTimeLayout is %a, %e %b %Y %T %Z. The space padded day parses with _2.
const accessLogTimeLayout = "Mon, _2 Jan 2006 15:04:05 MST"

const ctxCheckEvery = 1024

var ErrMalformedLine = errors.New("malformed access log line")

type accessLogDecoder struct {
	ignoreSubstrings []string
}

// NewAccessLogDecoder decodes application access logs into request events. Lines containing
// one of ignoreSubstrings are dropped before parsing.
func NewAccessLogDecoder(ignoreSubstrings []string) Decoder {
	return &accessLogDecoder{ignoreSubstrings: ignoreSubstrings}
}

func (d *accessLogDecoder) Name() string { return DecoderAccessLog }

func (d *accessLogDecoder) Decode(ctx context.Context, r io.Reader, emit EmitFunc) (Stats, error) {
	logger := loggers.Ctx(ctx).With().Str(loggers.FieldDecoder, DecoderAccessLog).Logger()
	br := bufio.NewReader(r)

	var stats Stats
	defer func() { recordStats(DecoderAccessLog, stats) }()

	for lineNo := 1; ; lineNo++ {
		if lineNo%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
		}

		line, readErr := br.ReadString('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return stats, fmt.Errorf("failed to read line %d: %w", lineNo, readErr)
		}
		line = strings.TrimRight(line, "\r\n")

		switch {
		case strings.TrimSpace(line) == "":
		case ignored(line, d.ignoreSubstrings):
			stats.Ignored++
		default:
			event, err := ParseAccessLogLine(line)
			if err != nil {
				stats.Failed++
				logger.Debug().Err(err).Int("line", lineNo).Msg("skipped undecodable access log line")
				break
			}
			if err := emit(event); err != nil {
				return stats, err
			}
			stats.Decoded++
		}

		if readErr != nil {
			return stats, nil
		}
	}
}

// ParseAccessLogLine decodes a single access log line.
func ParseAccessLogLine(line string) (models.RequestEvent, error) {
	m := accessLogRx.FindStringSubmatch(line)
	if m == nil {
		return models.RequestEvent{}, ErrMalformedLine
	}

	receivedAt, err := time.Parse(accessLogTimeLayout, m[2])
	if err != nil {
		return models.RequestEvent{}, fmt.Errorf("%w: time %q: %w", ErrMalformedLine, m[2], err)
	}

	// %r is "METHOD URI PROTOCOL"; the protocol is missing for HTTP/0.9 style lines.
	requestLine := strings.Fields(m[3])
	if len(requestLine) < 2 {
		return models.RequestEvent{}, fmt.Errorf("%w: request line %q", ErrMalformedLine, m[3])
	}

	processingTime, err := strconv.ParseUint(m[8], 10, 64)
	if err != nil {
		return models.RequestEvent{}, fmt.Errorf("%w: processing time %q: %w", ErrMalformedLine, m[8], err)
	}

	return models.RequestEvent{
		Timestamp:        receivedAt.UnixMilli(),
		URI:              requestLine[1],
		ProcessingTimeMs: processingTime,
	}, nil
}
