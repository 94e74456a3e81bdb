// Package probe issues one instrumented request against the target
// endpoint and breaks its latency into connection phases. The run
// command uses it as a debug preflight, so a misconfigured target or a
// slow network path is visible before any load is generated.
package probe

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"net/http/httptrace"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// livenessQuery resolves on any GraphQL server without touching the
// schema's own fields.
const livenessQuery = `{"query":"{__typename}"}`

// PhaseTimings is where one request's time went. Phases are chained:
// TimeToFirstByte starts where connection setup ended, so it
// approximates server processing time rather than repeating the dial
// cost. Setup phases stay zero when the transport reuses a connection
// or the host is an IP literal.
type PhaseTimings struct {
	DNSLookup       time.Duration
	TCPConnect      time.Duration
	TLSHandshake    time.Duration
	TimeToFirstByte time.Duration
	ContentTransfer time.Duration
	Total           time.Duration
	StatusCode      int
	Bytes           int64
}

// Endpoint posts the liveness query to url on a cold connection and
// reports the phase breakdown. A non-2xx status is not an error here;
// the caller sees the code and decides.
func Endpoint(ctx context.Context, url string, headers map[string]string) (PhaseTimings, error) {
	var timings PhaseTimings

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(livenessQuery))
	if err != nil {
		return timings, errors.Wrap(err, "building probe request")
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	lastPhaseEnd := start

	var dnsStart, connectStart, tlsStart time.Time
	trace := &httptrace.ClientTrace{
		DNSStart: func(httptrace.DNSStartInfo) {
			dnsStart = time.Now()
		},
		DNSDone: func(httptrace.DNSDoneInfo) {
			now := time.Now()
			timings.DNSLookup = now.Sub(dnsStart)
			lastPhaseEnd = now
		},
		ConnectStart: func(network, addr string) {
			connectStart = time.Now()
		},
		ConnectDone: func(network, addr string, err error) {
			if err == nil {
				now := time.Now()
				timings.TCPConnect = now.Sub(connectStart)
				lastPhaseEnd = now
			}
		},
		TLSHandshakeStart: func() {
			tlsStart = time.Now()
		},
		TLSHandshakeDone: func(state tls.ConnectionState, err error) {
			if err == nil {
				now := time.Now()
				timings.TLSHandshake = now.Sub(tlsStart)
				lastPhaseEnd = now
			}
		},
		GotFirstResponseByte: func() {
			timings.TimeToFirstByte = time.Since(lastPhaseEnd)
		},
	}
	req = req.WithContext(httptrace.WithClientTrace(req.Context(), trace))

	// A private client with keep-alives off keeps the dial phases real
	// instead of measuring a pooled connection.
	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Do(req)
	if err != nil {
		return timings, errors.Wrap(err, "probing target")
	}
	defer resp.Body.Close()

	transferStart := time.Now()
	n, _ := io.Copy(io.Discard, resp.Body)
	timings.ContentTransfer = time.Since(transferStart)
	timings.Total = time.Since(start)
	timings.StatusCode = resp.StatusCode
	timings.Bytes = n

	return timings, nil
}

// Fields flattens the timings for structured logging.
func (t PhaseTimings) Fields() logrus.Fields {
	return logrus.Fields{
		"status":      t.StatusCode,
		"bytes":       t.Bytes,
		"dns_ms":      millis(t.DNSLookup),
		"connect_ms":  millis(t.TCPConnect),
		"tls_ms":      millis(t.TLSHandshake),
		"ttfb_ms":     millis(t.TimeToFirstByte),
		"transfer_ms": millis(t.ContentTransfer),
		"total_ms":    millis(t.Total),
	}
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
