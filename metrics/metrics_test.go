package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersAndHandler(t *testing.T) {
	m := New()

	m.PresenceUpdates.WithLabelValues("online").Inc()
	m.PresenceUpdates.WithLabelValues("online").Inc()
	m.EventsQueued.WithLabelValues("status_changed").Add(3)
	m.OnlineUsers.Set(2)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.PresenceUpdates.WithLabelValues("online")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.EventsQueued.WithLabelValues("status_changed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.OnlineUsers))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "kinship_presence_updates_total"))
	assert.True(t, strings.Contains(body, "kinship_online_users 2"))
}

func TestSeparateRegistries(t *testing.T) {
	// two instances must not collide on registration
	a := New()
	b := New()
	a.Evictions.Inc()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.Evictions))
}
