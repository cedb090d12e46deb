package session_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/multiwa/multiwa/core/config"
	domainSession "github.com/multiwa/multiwa/domains/session"
	"github.com/multiwa/multiwa/messaging"
	pkgError "github.com/multiwa/multiwa/pkg/error"
	"github.com/multiwa/multiwa/session"
)

// fakeClient is an in-memory messaging.Client driven by the test.
type fakeClient struct {
	mu         sync.Mutex
	events     chan messaging.Event
	phone      string
	connectErr error
	sendErr    error
	blockSend  chan struct{}
	sent       []string
	closeOnce  sync.Once
}

func newFakeClient(phone string) *fakeClient {
	return &fakeClient{
		events: make(chan messaging.Event, 16),
		phone:  phone,
	}
}

func (f *fakeClient) Connect(ctx context.Context) error { return f.connectErr }

func (f *fakeClient) Disconnect() {
	f.closeOnce.Do(func() { close(f.events) })
}

func (f *fakeClient) Logout(ctx context.Context) error {
	f.Disconnect()
	return nil
}

func (f *fakeClient) SendText(ctx context.Context, to, text string) (messaging.SendResult, error) {
	if f.blockSend != nil {
		select {
		case <-f.blockSend:
		case <-ctx.Done():
			return messaging.SendResult{}, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return messaging.SendResult{}, f.sendErr
	}
	f.sent = append(f.sent, to+"|"+text)
	return messaging.SendResult{MessageID: "msg-1", Timestamp: time.Now()}, nil
}

func (f *fakeClient) SendMedia(ctx context.Context, to string, media messaging.Media) (messaging.SendResult, error) {
	return f.SendText(ctx, to, "media:"+media.MimeType)
}

func (f *fakeClient) Events() <-chan messaging.Event { return f.events }
func (f *fakeClient) PhoneNumber() string            { return f.phone }
func (f *fakeClient) IsConnected() bool              { return true }

func (f *fakeClient) sentMessages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

// recordingSink captures emitted push events.
type recordingSink struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingSink) Emit(event string, payload map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingSink) count(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e == event {
			n++
		}
	}
	return n
}

func newTestConfig() *config.Config {
	return &config.Config{
		Session: config.SessionConfig{
			MaxSessions: 20,
			InitTimeout: time.Minute,
			SendTimeout: time.Second,
			QueueSize:   100,
		},
	}
}

func newTestManager(t *testing.T, cfg *config.Config, sink session.EventSink) (*session.Manager, map[string]*fakeClient) {
	t.Helper()
	clients := make(map[string]*fakeClient)
	var mu sync.Mutex
	factory := func(sessionID string) (messaging.Client, error) {
		mu.Lock()
		defer mu.Unlock()
		c := newFakeClient("6281361626766")
		clients[sessionID] = c
		return c, nil
	}
	store := session.NewStore(filepath.Join(t.TempDir(), "sessions.json"))
	return session.NewManager(cfg, factory, store, sink), clients
}

func waitForStatus(t *testing.T, mgr *session.Manager, id string, want domainSession.Status) {
	t.Helper()
	require.Eventually(t, func() bool {
		snap, err := mgr.GetSession(id)
		return err == nil && snap.Status == want
	}, time.Second, 5*time.Millisecond, "session %s never reached %s", id, want)
}

func TestManager_CreateSession_CapacityExceeded(t *testing.T) {
	cfg := newTestConfig()
	cfg.Session.MaxSessions = 2
	mgr, _ := newTestManager(t, cfg, nil)

	_, err := mgr.CreateSession(context.Background(), "one", "")
	require.NoError(t, err)
	_, err = mgr.CreateSession(context.Background(), "two", "")
	require.NoError(t, err)

	_, err = mgr.CreateSession(context.Background(), "three", "")
	require.Error(t, err)
	generic, ok := err.(pkgError.GenericError)
	require.True(t, ok)
	assert.Equal(t, "CAPACITY_EXCEEDED", generic.ErrCode())
}

func TestManager_CreateSession_Duplicate(t *testing.T) {
	mgr, _ := newTestManager(t, newTestConfig(), nil)

	_, err := mgr.CreateSession(context.Background(), "dup", "")
	require.NoError(t, err)
	_, err = mgr.CreateSession(context.Background(), "dup", "")
	require.Error(t, err)
}

func TestManager_StateTransitions(t *testing.T) {
	sink := &recordingSink{}
	mgr, clients := newTestManager(t, newTestConfig(), sink)

	snap, err := mgr.CreateSession(context.Background(), "s1", "Main")
	require.NoError(t, err)
	assert.Equal(t, domainSession.StatusConnecting, snap.Status)

	client := clients["s1"]
	client.events <- messaging.Event{Type: messaging.EventQR, QRCode: "qr-code-1"}
	waitForStatus(t, mgr, "s1", domainSession.StatusAwaitingScan)

	snap, _ = mgr.GetSession("s1")
	assert.Equal(t, "qr-code-1", snap.QRCode)

	client.events <- messaging.Event{Type: messaging.EventConnected}
	waitForStatus(t, mgr, "s1", domainSession.StatusConnected)

	snap, _ = mgr.GetSession("s1")
	assert.Empty(t, snap.QRCode)
	assert.Equal(t, "6281361626766", snap.PhoneNumber)
	require.NotNil(t, snap.ConnectedAt)

	// A late QR must never regress a connected session.
	client.events <- messaging.Event{Type: messaging.EventQR, QRCode: "stale"}
	time.Sleep(30 * time.Millisecond)
	snap, _ = mgr.GetSession("s1")
	assert.Equal(t, domainSession.StatusConnected, snap.Status)

	client.events <- messaging.Event{Type: messaging.EventDisconnected}
	waitForStatus(t, mgr, "s1", domainSession.StatusDisconnected)

	assert.Equal(t, 1, sink.count(session.EventSessionQR))
	assert.Equal(t, 1, sink.count(session.EventSessionReady))
	assert.Equal(t, 1, sink.count(session.EventSessionDisconnected))
}

func TestManager_SendMessage_SessionNotFound(t *testing.T) {
	mgr, _ := newTestManager(t, newTestConfig(), nil)

	_, err := mgr.SendMessage(context.Background(), domainSession.SendMessageRequest{
		SessionID: "ghost",
		Phone:     "6281361626766",
		Message:   "hi",
	})
	require.Error(t, err)
	generic, ok := err.(pkgError.GenericError)
	require.True(t, ok)
	assert.Equal(t, "NOT_FOUND_ERROR", generic.ErrCode())
}

func TestManager_SendMessage_NotConnected(t *testing.T) {
	mgr, _ := newTestManager(t, newTestConfig(), nil)
	_, err := mgr.CreateSession(context.Background(), "s1", "")
	require.NoError(t, err)

	_, err = mgr.SendMessage(context.Background(), domainSession.SendMessageRequest{
		SessionID: "s1",
		Phone:     "6281361626766",
		Message:   "hi",
	})
	require.Error(t, err)
	generic, ok := err.(pkgError.GenericError)
	require.True(t, ok)
	assert.Equal(t, "BAD_REQUEST_ERROR", generic.ErrCode())
}

func TestManager_SendMessage_FormatsRecipient(t *testing.T) {
	sink := &recordingSink{}
	mgr, clients := newTestManager(t, newTestConfig(), sink)
	_, err := mgr.CreateSession(context.Background(), "s1", "")
	require.NoError(t, err)

	client := clients["s1"]
	client.events <- messaging.Event{Type: messaging.EventConnected}
	waitForStatus(t, mgr, "s1", domainSession.StatusConnected)

	resp, err := mgr.SendMessage(context.Background(), domainSession.SendMessageRequest{
		SessionID: "s1",
		Phone:     "+62 813-6162-6766",
		Message:   "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, "msg-1", resp.MessageID)

	sent := client.sentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "6281361626766@s.whatsapp.net|hello", sent[0])
	assert.Equal(t, 1, sink.count(session.EventMessageSent))
}

func TestManager_SendMessage_DeliveryError(t *testing.T) {
	sink := &recordingSink{}
	mgr, clients := newTestManager(t, newTestConfig(), sink)
	_, err := mgr.CreateSession(context.Background(), "s1", "")
	require.NoError(t, err)

	client := clients["s1"]
	client.sendErr = errors.New("socket closed")
	client.events <- messaging.Event{Type: messaging.EventConnected}
	waitForStatus(t, mgr, "s1", domainSession.StatusConnected)

	_, err = mgr.SendMessage(context.Background(), domainSession.SendMessageRequest{
		SessionID: "s1",
		Phone:     "6281361626766",
		Message:   "hello",
	})
	require.Error(t, err)
	assert.Equal(t, 1, sink.count(session.EventMessageError))
}

func TestManager_DeleteSession_FailsQueuedSends(t *testing.T) {
	mgr, clients := newTestManager(t, newTestConfig(), nil)
	_, err := mgr.CreateSession(context.Background(), "s1", "")
	require.NoError(t, err)

	client := clients["s1"]
	client.blockSend = make(chan struct{})
	client.events <- messaging.Event{Type: messaging.EventConnected}
	waitForStatus(t, mgr, "s1", domainSession.StatusConnected)

	firstDone := make(chan error, 1)
	go func() {
		_, err := mgr.SendMessage(context.Background(), domainSession.SendMessageRequest{
			SessionID: "s1", Phone: "6281361626766", Message: "first",
		})
		firstDone <- err
	}()

	secondDone := make(chan error, 1)
	go func() {
		// Let the first send reach the transport before queueing.
		time.Sleep(30 * time.Millisecond)
		_, err := mgr.SendMessage(context.Background(), domainSession.SendMessageRequest{
			SessionID: "s1", Phone: "6281361626766", Message: "second",
		})
		secondDone <- err
	}()

	time.Sleep(80 * time.Millisecond)
	require.NoError(t, mgr.DeleteSession(context.Background(), "s1"))
	close(client.blockSend)

	err = <-secondDone
	require.Error(t, err)
	generic, ok := err.(pkgError.GenericError)
	require.True(t, ok)
	assert.Equal(t, "NOT_FOUND_ERROR", generic.ErrCode())

	<-firstDone

	_, err = mgr.GetSession("s1")
	require.Error(t, err)
}

func TestManager_Initialize_RestoresSessions(t *testing.T) {
	dir := t.TempDir()
	store := session.NewStore(filepath.Join(dir, "sessions.json"))
	require.NoError(t, store.Save([]session.Record{
		{ID: "restored", Name: "Restored", PhoneNumber: "628111", CreatedAt: time.Now().UTC()},
		{ID: "broken", CreatedAt: time.Now().UTC()},
	}))

	factory := func(sessionID string) (messaging.Client, error) {
		if sessionID == "broken" {
			return nil, errors.New("no transport")
		}
		return newFakeClient("628111"), nil
	}

	mgr := session.NewManager(newTestConfig(), factory, store, nil)
	require.NoError(t, mgr.Initialize(context.Background()))

	snap, err := mgr.GetSession("restored")
	require.NoError(t, err)
	assert.Equal(t, "628111", snap.PhoneNumber)

	// A failed restore keeps the session registered as disconnected.
	waitForStatus(t, mgr, "broken", domainSession.StatusDisconnected)
	assert.Len(t, mgr.GetAllSessions(), 2)
}

func TestManager_LastActiveTracksTraffic(t *testing.T) {
	mgr, clients := newTestManager(t, newTestConfig(), nil)

	snap, err := mgr.CreateSession(context.Background(), "s1", "")
	require.NoError(t, err)
	assert.Nil(t, snap.LastActiveAt)

	client := clients["s1"]
	client.events <- messaging.Event{Type: messaging.EventConnected}
	waitForStatus(t, mgr, "s1", domainSession.StatusConnected)

	snap, err = mgr.GetSession("s1")
	require.NoError(t, err)
	require.NotNil(t, snap.LastActiveAt)
	afterConnect := *snap.LastActiveAt

	time.Sleep(10 * time.Millisecond)
	_, err = mgr.SendMessage(context.Background(), domainSession.SendMessageRequest{
		SessionID: "s1",
		Phone:     "6281361626766",
		Message:   "ping",
	})
	require.NoError(t, err)

	snap, err = mgr.GetSession("s1")
	require.NoError(t, err)
	require.NotNil(t, snap.LastActiveAt)
	afterSend := *snap.LastActiveAt
	assert.True(t, afterSend.After(afterConnect), "send should advance last activity")

	time.Sleep(10 * time.Millisecond)
	client.events <- messaging.Event{Type: messaging.EventMessage, Message: &messaging.Incoming{
		MessageID: "in-1",
		Sender:    "628999@s.whatsapp.net",
		Text:      "hi",
	}}
	require.Eventually(t, func() bool {
		snap, err := mgr.GetSession("s1")
		return err == nil && snap.LastActiveAt != nil && snap.LastActiveAt.After(afterSend)
	}, time.Second, 5*time.Millisecond, "inbound message should advance last activity")
}

func TestManager_InboundMessageTriggersHandler(t *testing.T) {
	sink := &recordingSink{}
	mgr, clients := newTestManager(t, newTestConfig(), sink)

	received := make(chan messaging.Incoming, 1)
	mgr.SetInboundHandler(func(ctx context.Context, sessionID string, msg messaging.Incoming) {
		received <- msg
	})

	_, err := mgr.CreateSession(context.Background(), "s1", "")
	require.NoError(t, err)
	client := clients["s1"]
	client.events <- messaging.Event{Type: messaging.EventConnected}
	waitForStatus(t, mgr, "s1", domainSession.StatusConnected)

	client.events <- messaging.Event{Type: messaging.EventMessage, Message: &messaging.Incoming{
		MessageID: "in-1",
		Sender:    "628999@s.whatsapp.net",
		Text:      "hello there",
	}}

	select {
	case msg := <-received:
		assert.Equal(t, "hello there", msg.Text)
	case <-time.After(time.Second):
		t.Fatal("inbound handler never called")
	}
	require.Eventually(t, func() bool {
		return sink.count(session.EventMessageReceived) == 1
	}, time.Second, 5*time.Millisecond)

	// Own and group messages are ignored.
	client.events <- messaging.Event{Type: messaging.EventMessage, Message: &messaging.Incoming{IsFromMe: true, Text: "me"}}
	client.events <- messaging.Event{Type: messaging.EventMessage, Message: &messaging.Incoming{IsGroup: true, Text: "group"}}
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 1, sink.count(session.EventMessageReceived))
}
