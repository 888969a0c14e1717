package api

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sseFrame struct {
	ID    int64
	Event string
	Data  string
}

type sseClient struct {
	cancel context.CancelFunc
	body   *bufio.Reader
	closer func() error
}

func openSSE(t *testing.T, baseURL, bearer string) *sseClient {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/ims/api/eventsource", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", bearer)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	c := &sseClient{cancel: cancel, body: bufio.NewReader(resp.Body), closer: resp.Body.Close}
	t.Cleanup(func() {
		cancel()
		_ = c.closer()
	})
	return c
}

// next reads one frame, skipping retry hints and blank keep-alives.
func (c *sseClient) next(t *testing.T) sseFrame {
	t.Helper()

	var frame sseFrame
	for {
		line, err := c.body.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")

		switch {
		case line == "":
			if frame.Event != "" {
				return frame
			}
		case strings.HasPrefix(line, "id: "):
			id, err := strconv.ParseInt(strings.TrimPrefix(line, "id: "), 10, 64)
			require.NoError(t, err)
			frame.ID = id
		case strings.HasPrefix(line, "event: "):
			frame.Event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			frame.Data = strings.TrimPrefix(line, "data: ")
		}
	}
}

// S6: two connected clients both observe the incident write with the
// same monotonically increasing id; a late subscriber's InitialEvent
// carries the then-current counter.
func TestEventSource_S6_FanOut(t *testing.T) {
	e := newTestEnv(t, "admin")
	srv := httptest.NewServer(e.router)
	defer srv.Close()
	bearer := e.bearer(t, "admin")

	c1 := openSSE(t, srv.URL, bearer)
	c2 := openSSE(t, srv.URL, bearer)

	init1 := c1.next(t)
	init2 := c2.next(t)
	assert.Equal(t, "InitialEvent", init1.Event)
	assert.Equal(t, "InitialEvent", init2.Event)

	resp, err := http.Post(srv.URL+"/ims/api/events/2024/incidents/", "application/json",
		strings.NewReader(`{"summary":"Test"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/ims/api/events/2024/incidents/",
		strings.NewReader(`{"summary":"Test"}`))
	require.NoError(t, err)
	req.Header.Set("Authorization", bearer)
	created, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	created.Body.Close()
	require.Equal(t, http.StatusNoContent, created.StatusCode)

	f1 := c1.next(t)
	f2 := c2.next(t)
	assert.Equal(t, "Incident", f1.Event)
	assert.Equal(t, "Incident", f2.Event)
	assert.JSONEq(t, `{"event_id":"2024","incident_number":1}`, f1.Data)
	assert.Equal(t, f1.ID, f2.ID)
	assert.Greater(t, f1.ID, init1.ID)

	// A third client connecting after the write resynchronizes from
	// the InitialEvent counter.
	c3 := openSSE(t, srv.URL, bearer)
	init3 := c3.next(t)
	assert.Equal(t, "InitialEvent", init3.Event)
	assert.Equal(t, f1.ID, init3.ID)
}

func TestEventSource_RequiresAuthentication(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(t, http.MethodGet, "/ims/api/eventsource", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
