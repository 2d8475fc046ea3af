package metrics

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestHandler_ExposesCollectors(t *testing.T) {
	m := New()
	m.BuildsTotal.WithLabelValues("success").Inc()
	m.SearchQueriesTotal.WithLabelValues("hit").Inc()

	body := scrape(t, m)
	assert.Contains(t, body, `index_builds_total{status="success"} 1`)
	assert.Contains(t, body, `search_queries_total{result_type="hit"} 1`)
}

func TestNew_IndependentRegistries(t *testing.T) {
	a := New()
	b := New()
	a.DocsIndexedTotal.Add(3)

	assert.Contains(t, scrape(t, a), "docs_indexed_total 3")
	assert.Contains(t, scrape(t, b), "docs_indexed_total 0")
}

func TestStartServer(t *testing.T) {
	m := New()
	m.DocsIndexedTotal.Add(2)
	shutdown, err := StartServer("127.0.0.1:0", m)
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestStartServer_BindError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	_, err = StartServer(ln.Addr().String(), New())
	assert.Error(t, err)
}
