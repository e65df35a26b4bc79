package mqtt

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/collabsched/core/metrics"
)

type published struct {
	topic   string
	qos     byte
	retain  bool
	payload []byte
}

type mockClient struct {
	mu          sync.Mutex
	opts        *paho.ClientOptions
	published   []published
	publishErrs []error
	connectErr  error
}

func (m *mockClient) IsConnected() bool { return true }
func (m *mockClient) Connect() paho.Token {
	if m.connectErr != nil {
		return &dummyToken{err: m.connectErr}
	}
	return &dummyToken{}
}
func (m *mockClient) Disconnect(uint) {}
func (m *mockClient) Publish(topic string, qos byte, retain bool, payload interface{}) paho.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, published{topic, qos, retain, payload.([]byte)})
	if len(m.publishErrs) > 0 {
		err := m.publishErrs[0]
		m.publishErrs = m.publishErrs[1:]
		return &dummyToken{err: err}
	}
	return &dummyToken{}
}

func (m *mockClient) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.published)
}

type dummyToken struct{ err error }

func (d dummyToken) Wait() bool                     { return true }
func (d dummyToken) WaitTimeout(time.Duration) bool { return true }
func (d dummyToken) Done() <-chan struct{}          { ch := make(chan struct{}); close(ch); return ch }
func (d dummyToken) Error() error                   { return d.err }

func useMock(t *testing.T, mc *mockClient) {
	t.Helper()
	newMQTTClient = func(o *paho.ClientOptions) pahoClient { mc.opts = o; return mc }
	t.Cleanup(func() { newMQTTClient = func(opts *paho.ClientOptions) pahoClient { return paho.NewClient(opts) } })
}

func testConfig() Config {
	cfg := Config{Broker: "tcp://localhost:1883", QoS: 1, BackoffMS: 1}
	cfg.SetDefaults()
	return cfg
}

func TestNotifyCreatedSession(t *testing.T) {
	mc := &mockClient{}
	useMock(t, mc)
	n, err := NewNotifier(testConfig())
	require.NoError(t, err)

	now := time.Date(2021, 2, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, n.Notify(metrics.UploadEvent{
		RunID: "r1", Name: "T09A", SessionID: "s1", GuestURL: "https://example.com/g", Status: metrics.StatusCreated, Time: now,
	}))
	require.Len(t, mc.published, 1)
	assert.Equal(t, DefaultTopic, mc.published[0].topic)
	assert.Equal(t, byte(1), mc.published[0].qos)

	var msg Message
	require.NoError(t, json.Unmarshal(mc.published[0].payload, &msg))
	assert.Equal(t, Message{RunID: "r1", Name: "T09A", SessionID: "s1", GuestURL: "https://example.com/g", Timestamp: now}, msg)
}

func TestNotifyIgnoresOtherOutcomes(t *testing.T) {
	mc := &mockClient{}
	useMock(t, mc)
	n, err := NewNotifier(testConfig())
	require.NoError(t, err)

	for _, s := range []metrics.Status{metrics.StatusFailed, metrics.StatusInvalid, metrics.StatusSkipped, metrics.StatusDryRun} {
		require.NoError(t, n.Notify(metrics.UploadEvent{Name: "T09A", Status: s}))
	}
	assert.Empty(t, mc.published)
}

func TestNotifyRetries(t *testing.T) {
	mc := &mockClient{publishErrs: []error{errors.New("net fail"), nil}}
	useMock(t, mc)
	n, err := NewNotifier(testConfig())
	require.NoError(t, err)

	require.NoError(t, n.Notify(metrics.UploadEvent{Name: "T09A", Status: metrics.StatusCreated}))
	assert.Len(t, mc.published, 2)
}

func TestNotifyGivesUp(t *testing.T) {
	fail := errors.New("net fail")
	mc := &mockClient{publishErrs: []error{fail, fail, fail, fail}}
	useMock(t, mc)
	n, err := NewNotifier(testConfig())
	require.NoError(t, err)

	err = n.Notify(metrics.UploadEvent{Name: "T09A", Status: metrics.StatusCreated})
	assert.ErrorIs(t, err, fail)
	assert.Len(t, mc.published, 4)
}

func TestNewNotifierConnectError(t *testing.T) {
	useMock(t, &mockClient{connectErr: errors.New("refused")})
	_, err := NewNotifier(testConfig())
	assert.Error(t, err)
}

func TestRunDrainsChannel(t *testing.T) {
	mc := &mockClient{}
	useMock(t, mc)
	n, err := NewNotifier(testConfig())
	require.NoError(t, err)

	events := make(chan metrics.UploadEvent, 3)
	events <- metrics.UploadEvent{Name: "A", Status: metrics.StatusCreated}
	events <- metrics.UploadEvent{Name: "B", Status: metrics.StatusFailed}
	events <- metrics.UploadEvent{Name: "C", Status: metrics.StatusCreated}
	close(events)

	done := make(chan struct{})
	go func() {
		n.Run(context.Background(), events)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after channel close")
	}
	assert.Equal(t, 2, mc.count())
	n.Disconnect()
}

func TestConfigDefaultsAndValidate(t *testing.T) {
	var cfg Config
	assert.False(t, cfg.Enabled())
	cfg.SetDefaults()
	assert.Equal(t, DefaultTopic, cfg.Topic)
	assert.NotEmpty(t, cfg.ClientID)
	assert.NoError(t, cfg.Validate())

	bad := Config{Broker: "tcp://x:1883", QoS: 3}
	assert.Error(t, bad.Validate())
	tlsMissing := Config{Broker: "tcp://x:1883", UseTLS: true}
	assert.Error(t, tlsMissing.Validate())
}

func generateCert(t *testing.T) (certFile, keyFile, caFile string) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	tmpl := x509.Certificate{SerialNumber: big.NewInt(1), Subject: pkix.Name{CommonName: "test"}, NotBefore: time.Now(), NotAfter: time.Now().Add(time.Hour)}
	der, err := x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, &priv.PublicKey, priv)
	require.NoError(t, err)
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(priv)})

	dir := t.TempDir()
	certFile = filepath.Join(dir, "cert.pem")
	keyFile = filepath.Join(dir, "key.pem")
	caFile = filepath.Join(dir, "ca.pem")
	require.NoError(t, os.WriteFile(certFile, certPEM, 0o600))
	require.NoError(t, os.WriteFile(keyFile, keyPEM, 0o600))
	require.NoError(t, os.WriteFile(caFile, certPEM, 0o600))
	return
}

func TestLoadTLSConfig(t *testing.T) {
	cert, key, ca := generateCert(t)
	cfg := Config{Broker: "ssl://localhost:8883", UseTLS: true, ClientCert: cert, ClientKey: key, CABundle: ca}
	tlsCfg, err := cfg.LoadTLSConfig()
	require.NoError(t, err)
	assert.NotEmpty(t, tlsCfg.Certificates)
	assert.NotNil(t, tlsCfg.RootCAs)

	opts, err := NewClientOptions(cfg)
	require.NoError(t, err)
	assert.NotNil(t, opts.TLSConfig)
}

func TestNewClientOptionsAuth(t *testing.T) {
	opts, err := NewClientOptions(Config{Broker: "tcp://localhost:1883", ClientID: "id", Username: "u", Password: "p"})
	require.NoError(t, err)
	assert.Equal(t, "u", opts.Username)
	assert.Equal(t, "p", opts.Password)
	assert.Equal(t, "id", opts.ClientID)
}
