package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type docCounter struct {
	n   uint64
	err error
}

func (d docCounter) DocCount() (uint64, error) { return d.n, d.err }

func TestPingCheck(t *testing.T) {
	ctx := context.Background()
	down := pingFunc(func(context.Context) error { return errors.New("refused") })
	up := pingFunc(func(context.Context) error { return nil })

	assert.Equal(t, StatusUp, PingCheck(up, true)(ctx).Status)
	assert.Equal(t, StatusDown, PingCheck(down, true)(ctx).Status)
	assert.Equal(t, StatusDegraded, PingCheck(down, false)(ctx).Status)
	assert.Equal(t, "not configured", PingCheck(nil, false)(ctx).Message)
}

func TestIndexCheck(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, StatusUp, IndexCheck(docCounter{n: 3})(ctx).Status)
	assert.Equal(t, StatusDown, IndexCheck(docCounter{})(ctx).Status)
	assert.Equal(t, StatusDown, IndexCheck(docCounter{err: errors.New("closed")})(ctx).Status)
}

func TestReadyReportsWorstStatus(t *testing.T) {
	c := NewChecker()
	c.Register("index", IndexCheck(docCounter{n: 1}))
	c.Register("redis", PingCheck(nil, false))

	rec := httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var report Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, StatusDegraded, report.Status)
	assert.Equal(t, StatusUp, report.Components["index"].Status)

	c.Register("index", IndexCheck(docCounter{}))
	rec = httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
