package metrics

import (
	"context"
	"net"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersEveryCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.ArtifactLookupsTotal.WithLabelValues("ontology", "hit").Inc()
	m.HTTPRequestsInFlight.Set(1)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["artifact_lookups_total"])
	assert.True(t, names["http_requests_in_flight"])
}

func TestServeReportsBusyPort(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer ln.Close()

	_, err = Serve(ln.Addr().(*net.TCPAddr).Port)
	assert.Error(t, err)
}

func TestServeShutsDown(t *testing.T) {
	shutdown, err := Serve(0)
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
