package proxy

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSocksClient_Direct(t *testing.T) {
	c, err := NewSocksClient("")
	require.NoError(t, err)
	assert.Nil(t, c.Transport)
	assert.Equal(t, clientTimeout, c.Timeout)
}

func TestNewSocksClient_Socks(t *testing.T) {
	c, err := NewSocksClient("127.0.0.1:1080")
	require.NoError(t, err)

	tr, ok := c.Transport.(*http.Transport)
	require.True(t, ok)
	assert.Nil(t, tr.Proxy)
	assert.NotNil(t, tr.DialContext)
}

type plainDialer struct{ called bool }

func (d *plainDialer) Dial(network, addr string) (net.Conn, error) {
	d.called = true
	return nil, errors.New("refused")
}

func TestDialContext_PlainDialer(t *testing.T) {
	d := &plainDialer{}
	_, err := dialContext(d)(context.Background(), "tcp", "example.com:443")
	assert.Error(t, err)
	assert.True(t, d.called)
}
