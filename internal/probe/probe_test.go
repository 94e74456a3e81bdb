package probe

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEndpointMeasuresPhases(t *testing.T) {
	var mu sync.Mutex
	var gotBody, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		gotBody = string(body)
		gotAuth = r.Header.Get("Authorization")
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"__typename":"query_root"}}`))
	}))
	defer server.Close()

	timings, err := Endpoint(context.Background(), server.URL,
		map[string]string{"Authorization": "Bearer t"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, timings.StatusCode)
	mu.Lock()
	assert.Contains(t, gotBody, "__typename")
	assert.Equal(t, "Bearer t", gotAuth)
	mu.Unlock()

	assert.Greater(t, timings.Total, time.Duration(0))
	assert.Greater(t, timings.TCPConnect, time.Duration(0))
	assert.Greater(t, timings.TimeToFirstByte, time.Duration(0))
	assert.EqualValues(t, 36, timings.Bytes)

	// httptest binds to an IP literal, so no DNS lookup happens.
	assert.Equal(t, time.Duration(0), timings.DNSLookup)
	assert.Equal(t, time.Duration(0), timings.TLSHandshake)
}

func TestEndpointSurfacesNonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	timings, err := Endpoint(context.Background(), server.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, timings.StatusCode)
}

func TestEndpointUnreachableTarget(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := Endpoint(ctx, "http://127.0.0.1:1/v1/graphql", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "probing target")
}

func TestFieldsFlattenTimings(t *testing.T) {
	timings := PhaseTimings{
		TimeToFirstByte: 1500 * time.Microsecond,
		Total:           3 * time.Millisecond,
		StatusCode:      200,
	}

	fields := timings.Fields()
	assert.Equal(t, 200, fields["status"])
	assert.Equal(t, 1.5, fields["ttfb_ms"])
	assert.Equal(t, 3.0, fields["total_ms"])
}

func TestLivenessQueryIsValidJSON(t *testing.T) {
	if !strings.Contains(livenessQuery, `"query"`) {
		t.Errorf("livenessQuery = %s, want a GraphQL request document", livenessQuery)
	}
}
