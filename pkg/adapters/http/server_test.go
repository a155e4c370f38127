package http_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	api "github.com/aretw0/notebook/pkg/adapters/http"
	"github.com/aretw0/notebook/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeKernel struct {
	workers   []domain.Worker
	cancelled []string
	closed    atomic.Bool
}

func (f *fakeKernel) Units() []string { return []string{"demo.Counter", "demo.Empty"} }

func (f *fakeKernel) Operations(unit string) []string {
	if unit == "demo.Counter" {
		return []string{"Increment"}
	}
	return nil
}

func (f *fakeKernel) Workers() []domain.Worker { return f.workers }

func (f *fakeKernel) CancelAll() int { return len(f.workers) }

func (f *fakeKernel) Cancel(id string) bool {
	for _, w := range f.workers {
		if w.ID == id {
			f.cancelled = append(f.cancelled, id)
			return true
		}
	}
	return false
}

func (f *fakeKernel) Closed() bool { return f.closed.Load() }

func newServer(t *testing.T, k *fakeKernel) *httptest.Server {
	t.Helper()
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "notebook_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Inc()

	srv := httptest.NewServer(api.NewHandler(k, api.WithGatherer(reg)))
	t.Cleanup(srv.Close)
	return srv
}

func TestHandler_Units(t *testing.T) {
	srv := newServer(t, &fakeKernel{})

	resp, err := http.Get(srv.URL + "/units")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var units []api.UnitView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&units))
	assert.Equal(t, []api.UnitView{
		{Name: "demo.Counter", Operations: []string{"Increment"}},
		{Name: "demo.Empty", Operations: []string{}},
	}, units)
}

func TestHandler_WorkersAndCancel(t *testing.T) {
	k := &fakeKernel{workers: []domain.Worker{{ID: "w1", Unit: "demo.Counter", Operation: "Loop", Started: time.Unix(0, 0).UTC()}}}
	srv := newServer(t, k)

	resp, err := http.Get(srv.URL + "/workers")
	require.NoError(t, err)
	var workers []domain.Worker
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&workers))
	resp.Body.Close()
	require.Len(t, workers, 1)
	assert.Equal(t, "Loop", workers[0].Operation)

	resp, err = http.Post(srv.URL+"/cancel", "application/json", nil)
	require.NoError(t, err)
	var body map[string]int
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, 1, body["interrupted"])

	resp, err = http.Post(srv.URL+"/workers/w1/cancel", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, []string{"w1"}, k.cancelled)

	resp, err = http.Post(srv.URL+"/workers/nope/cancel", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandler_Health(t *testing.T) {
	k := &fakeKernel{}
	srv := newServer(t, k)

	for _, path := range []string{"/live", "/ready"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}

	k.closed.Store(true)
	resp, err := http.Get(srv.URL + "/ready")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestHandler_Metrics(t *testing.T) {
	srv := newServer(t, &fakeKernel{})

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "notebook_test_total 1")
}
