package pkg

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIPIsLocal(t *testing.T) {
	assert.True(t, IPIsLocal("127.0.0.1:8080"))
	assert.True(t, IPIsLocal("172.17.0.1:45678"))
	assert.False(t, IPIsLocal("192.168.1.10:8080"))
	assert.False(t, IPIsLocal("8.8.8.8:443"))
}

func TestReadUserIP(t *testing.T) {
	newReq := func() *http.Request {
		req, err := http.NewRequest("GET", "/a/login", nil)
		require.NoError(t, err)
		return req
	}

	t.Run("x-real-ip wins", func(t *testing.T) {
		req := newReq()
		req.Header.Set("X-Real-Ip", "8.8.8.8")
		req.Header.Set("X-Forwarded-For", "9.9.9.9")
		req.RemoteAddr = "10.0.0.1:5555"

		ipAddr, err := ReadUserIP(req)
		require.NoError(t, err)
		assert.Equal(t, "8.8.8.8", ipAddr)
	})

	t.Run("forwarded-for fallback", func(t *testing.T) {
		req := newReq()
		req.Header.Set("X-Forwarded-For", "9.9.9.9")
		req.RemoteAddr = "10.0.0.1:5555"

		ipAddr, err := ReadUserIP(req)
		require.NoError(t, err)
		assert.Equal(t, "9.9.9.9", ipAddr)
	})

	t.Run("remote addr port trimmed", func(t *testing.T) {
		req := newReq()
		req.RemoteAddr = "10.0.0.1:5555"

		ipAddr, err := ReadUserIP(req)
		require.NoError(t, err)
		assert.Equal(t, "10.0.0.1", ipAddr)
	})

	t.Run("local addr", func(t *testing.T) {
		req := newReq()
		req.RemoteAddr = "127.0.0.1:4321"

		ipAddr, err := ReadUserIP(req)
		require.NoError(t, err)
		assert.Equal(t, "localhost", ipAddr)
	})

	t.Run("garbage addr", func(t *testing.T) {
		req := newReq()
		req.RemoteAddr = "certainly-not-an-ip"

		_, err := ReadUserIP(req)
		assert.Error(t, err)
	})
}
