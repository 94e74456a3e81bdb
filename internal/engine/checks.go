package engine

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/querybench/querybench/internal/report"
)

const rtsProbeTimeout = 5 * time.Second

// rtsChecker probes the Hasura RTS stats endpoint that lives next to
// the query endpoint. Probes are best-effort: any failure yields a nil
// sample and the run proceeds without memory deltas.
type rtsChecker struct {
	url    string
	client *http.Client
}

func newRTSChecker(target string) *rtsChecker {
	statsURL, err := rtsStatsURL(target)
	if err != nil {
		return &rtsChecker{}
	}
	return &rtsChecker{
		url:    statsURL,
		client: &http.Client{Timeout: rtsProbeTimeout},
	}
}

// rtsStatsURL swaps the query path for the server's /dev/rts_stats
// endpoint, keeping scheme, host and credentials.
func rtsStatsURL(target string) (string, error) {
	u, err := url.Parse(target)
	if err != nil {
		return "", err
	}
	u.Path = "/dev/rts_stats"
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}

func (c *rtsChecker) sample(log *logrus.Entry) *report.RTSSample {
	if c == nil || c.url == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), rtsProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil
	}
	resp, err := c.client.Do(req)
	if err != nil {
		log.WithError(err).Debug("rts stats probe failed")
		return nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil || resp.StatusCode != http.StatusOK {
		log.WithField("status", resp.StatusCode).Debug("rts stats probe rejected")
		return nil
	}

	stats := gjson.ParseBytes(body)
	return &report.RTSSample{
		Timestamp:      time.Now(),
		AllocatedBytes: rtsField(stats, "allocated_bytes"),
		LiveBytes:      rtsField(stats, "live_bytes"),
		MemInUseBytes:  rtsField(stats, "mem_in_use_bytes"),
	}
}

// rtsField reads a counter from the flat RTS document, falling back to
// the gc subsection where newer server versions nest the GC counters.
func rtsField(stats gjson.Result, key string) int64 {
	if v := stats.Get(key); v.Exists() {
		return v.Int()
	}
	return stats.Get("gc." + key).Int()
}
