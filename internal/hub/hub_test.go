package hub

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readLine(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimSpace(line)
		if line != "" {
			return line
		}
	}
}

// readFrame returns the id, event and data lines of the next frame
func readFrame(t *testing.T, r *bufio.Reader) []string {
	t.Helper()
	return []string{readLine(t, r), readLine(t, r), readLine(t, r)}
}

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	h := New(zerolog.Nop())
	go h.Run()
	t.Cleanup(h.Stop)

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return h, srv
}

func connect(t *testing.T, url string, header http.Header) *bufio.Reader {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	require.NoError(t, err)
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	require.Equal(t, ": connected", readLine(t, reader))
	return reader
}

func TestHubStreamsTypedFrames(t *testing.T) {
	h, srv := startHub(t)
	reader := connect(t, srv.URL, nil)
	assert.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	h.Publish("reconcile_started", map[string]string{"pass_id": "p1"})
	assert.Equal(t, []string{
		"id: 1",
		"event: reconcile_started",
		`data: {"pass_id":"p1"}`,
	}, readFrame(t, reader))
}

func TestHubFiltersByType(t *testing.T) {
	h, srv := startHub(t)
	reader := connect(t, srv.URL+"?types=action_applied,+reconcile_complete", nil)
	assert.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	h.Publish("reconcile_started", map[string]int{"endpoints": 2})
	h.Publish("action_applied", map[string]string{"kind": "add_new"})

	assert.Equal(t, []string{
		"id: 2",
		"event: action_applied",
		`data: {"kind":"add_new"}`,
	}, readFrame(t, reader))
}

func TestHubResumesFromLastEventID(t *testing.T) {
	h, srv := startHub(t)

	h.Publish("reconcile_started", "a")
	h.Publish("action_applied", "b")
	h.Publish("reconcile_complete", "c")
	require.Eventually(t, func() bool { return h.LastID() == 3 }, time.Second, 10*time.Millisecond)

	reader := connect(t, srv.URL, http.Header{"Last-Event-Id": {"1"}})
	assert.Equal(t, []string{"id: 2", "event: action_applied", `data: "b"`}, readFrame(t, reader))
	assert.Equal(t, []string{"id: 3", "event: reconcile_complete", `data: "c"`}, readFrame(t, reader))
}

func TestHubRejectsBadLastEventID(t *testing.T) {
	_, srv := startHub(t)
	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	req.Header.Set("Last-Event-ID", "yesterday")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHubDropsUnmarshalableEvents(t *testing.T) {
	h := New(zerolog.Nop())
	go h.Run()
	defer h.Stop()

	h.Publish("bad", make(chan int))
	h.Publish("good", "still running")
	assert.Eventually(t, func() bool { return h.LastID() == 1 }, time.Second, 10*time.Millisecond)
}

func TestHubStopIsIdempotent(t *testing.T) {
	h := New(zerolog.Nop())
	done := make(chan struct{})
	go func() {
		h.Run()
		close(done)
	}()

	h.Stop()
	h.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}
}

func TestParseTypes(t *testing.T) {
	assert.Empty(t, parseTypes(""))
	assert.Equal(t, map[string]bool{"a": true, "b": true}, parseTypes(" a,,b "))
}
