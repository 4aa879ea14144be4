package sip2

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeTestKeyPair generates a throwaway self-signed certificate and key in
// PEM form.
func makeTestKeyPair(t *testing.T) (certPEM, keyPEM []byte) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "sip2 test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})

	return certPEM, keyPEM
}

// tempFileNames lists the entries of the temp dir currently in effect.
func tempFileNames(t *testing.T) []string {
	t.Helper()

	entries, err := os.ReadDir(os.TempDir())
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}

	return names
}

func TestStageKeyPair(t *testing.T) {
	t.Setenv("TMPDIR", t.TempDir())

	certPEM, keyPEM := makeTestKeyPair(t)

	cert, err := stageKeyPair(certPEM, keyPEM)
	require.NoError(t, err)
	assert.NotEmpty(t, cert.Certificate)

	// No credential files survive the load.
	assert.Empty(t, tempFileNames(t))
}

func TestStageKeyPair_InvalidMaterial(t *testing.T) {
	t.Setenv("TMPDIR", t.TempDir())

	_, err := stageKeyPair([]byte("not a cert"), []byte("not a key"))
	require.Error(t, err)

	// The staged files are removed on the failure path too.
	assert.Empty(t, tempFileNames(t))
}

func TestStageTempFile(t *testing.T) {
	t.Setenv("TMPDIR", t.TempDir())

	path, err := stageTempFile("sip2cert", []byte("payload"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	require.NoError(t, os.Remove(path))
}

func TestTCPTransport_ReadWrite(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	tr := &tcpTransport{conn: client, timeout: time.Second}

	go func() {
		buf := make([]byte, 16)
		n, _ := server.Read(buf)
		_, _ = server.Write(buf[:n])
	}()

	require.NoError(t, tr.Write([]byte("ping\r")))

	buf := make([]byte, 16)
	n, err := tr.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "ping\r", string(buf[:n]))

	require.NoError(t, tr.Close())
}

func TestTCPTransport_ReadTimeout(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()
	defer client.Close()

	tr := &tcpTransport{conn: client, timeout: 20 * time.Millisecond}

	buf := make([]byte, 16)
	_, err := tr.Read(buf)
	require.Error(t, err)

	var nerr net.Error
	require.ErrorAs(t, err, &nerr)
	assert.True(t, nerr.Timeout())
}

func TestDial_ConnectionRefused(t *testing.T) {
	// Reserve a port and close it again so nothing is listening there.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().(*net.TCPAddr)
	require.NoError(t, l.Close())

	cfg, err := NewClientConfig("127.0.0.1", addr.Port, WithConnectTimeout(time.Second))
	require.NoError(t, err)

	_, err = Dial(cfg)
	require.Error(t, err)
}
