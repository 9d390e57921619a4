package httpserver

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestZeroTimeoutsFallBackToDefaults(t *testing.T) {
	srv := New(Config{Addr: ":8080"}, http.NewServeMux())

	assert.Equal(t, ":8080", srv.Addr)
	assert.Equal(t, defaultReadTimeout, srv.ReadTimeout)
	assert.Equal(t, defaultReadTimeout, srv.ReadHeaderTimeout)
	assert.Equal(t, defaultWriteTimeout, srv.WriteTimeout)
	assert.Equal(t, defaultIdleTimeout, srv.IdleTimeout)
}

func TestConfiguredTimeoutsAreApplied(t *testing.T) {
	srv := New(Config{
		Addr:         ":9090",
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 30 * time.Second,
	}, http.NewServeMux())

	assert.Equal(t, 2*time.Second, srv.ReadTimeout)
	assert.Equal(t, 30*time.Second, srv.WriteTimeout)
}
