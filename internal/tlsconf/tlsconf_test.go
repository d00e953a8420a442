package tlsconf

import (
	"crypto/tls"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// handshake runs a TLS handshake between server and client configs over a
// loopback connection and returns the client-side error.
func handshake(t *testing.T, server, client *tls.Config) error {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	srvDone := make(chan struct{})
	go func() {
		defer close(srvDone)
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_ = tls.Server(conn, server).Handshake()
	}()

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	err = tls.Client(conn, client).Handshake()
	_ = conn.Close()
	<-srvDone
	return err
}

func TestDeriveKeyDeterministic(t *testing.T) {
	k1, err := deriveKey("token")
	require.NoError(t, err)
	k2, err := deriveKey("token")
	require.NoError(t, err)
	k3, err := deriveKey("other")
	require.NoError(t, err)

	assert.Equal(t, 0, k1.D.Cmp(k2.D))
	assert.NotEqual(t, 0, k1.D.Cmp(k3.D))
}

func TestSamePassphraseHandshakes(t *testing.T) {
	srv, err := Derive("shared")
	require.NoError(t, err)
	cli, err := Derive("shared")
	require.NoError(t, err)

	require.NoError(t, handshake(t, srv.Server, cli.Client))
}

func TestDifferentPassphraseFails(t *testing.T) {
	srv, err := Derive("shared")
	require.NoError(t, err)
	cli, err := Derive("wrong")
	require.NoError(t, err)

	err = handshake(t, srv.Server, cli.Client)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match token")
}

func TestEmptyPassphraseUsesDefault(t *testing.T) {
	a, err := Derive("")
	require.NoError(t, err)
	b, err := Derive(DefaultPassphrase)
	require.NoError(t, err)
	require.NoError(t, handshake(t, a.Server, b.Client))
	assert.NotNil(t, a.TransportCredentials())
}
