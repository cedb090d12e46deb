package session

import (
	"context"
	"encoding/base64"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/multiwa/multiwa/core/config"
	domainSession "github.com/multiwa/multiwa/domains/session"
	"github.com/multiwa/multiwa/messaging"
	pkgError "github.com/multiwa/multiwa/pkg/error"
	"github.com/multiwa/multiwa/pkg/phone"
)

// InboundHandler receives inbound chat messages after the manager has
// emitted message:received. The auto-reply pipeline hooks in here.
type InboundHandler func(ctx context.Context, sessionID string, msg messaging.Incoming)

// managed is the internal mutable state of one session.
type managed struct {
	mu sync.RWMutex

	id          string
	name        string
	phoneNumber string
	status      domainSession.Status
	qrCode      string
	qrSeen      bool
	createdAt   time.Time
	connectedAt *time.Time
	lastActive  time.Time

	client    messaging.Client
	queue     *deliveryQueue
	initTimer *time.Timer
	loopDone  chan struct{}
}

// Manager owns every session: lifecycle, state machine, delivery queues
// and event fan-out. All public methods are safe for concurrent use.
type Manager struct {
	cfg     *config.Config
	factory messaging.ClientFactory
	store   *Store
	sink    EventSink

	mu       sync.RWMutex
	sessions map[string]*managed

	inboundMu sync.RWMutex
	inbound   InboundHandler
}

func NewManager(cfg *config.Config, factory messaging.ClientFactory, store *Store, sink EventSink) *Manager {
	if sink == nil {
		sink = NopSink{}
	}
	return &Manager{
		cfg:      cfg,
		factory:  factory,
		store:    store,
		sink:     sink,
		sessions: make(map[string]*managed),
	}
}

// SetInboundHandler wires the inbound message pipeline. Must be called
// before Initialize.
func (m *Manager) SetInboundHandler(h InboundHandler) {
	m.inboundMu.Lock()
	m.inbound = h
	m.inboundMu.Unlock()
}

// CreateSession registers a new session and starts connecting it in the
// background. The returned snapshot is taken right after registration.
func (m *Manager) CreateSession(ctx context.Context, sessionID, name string) (domainSession.Session, error) {
	m.mu.Lock()
	if _, exists := m.sessions[sessionID]; exists {
		m.mu.Unlock()
		return domainSession.Session{}, pkgError.BadRequestError(
			fmt.Sprintf("session %s already exists", sessionID))
	}
	if len(m.sessions) >= m.cfg.Session.MaxSessions {
		m.mu.Unlock()
		return domainSession.Session{}, pkgError.CapacityError(
			fmt.Sprintf("maximum of %d sessions reached", m.cfg.Session.MaxSessions))
	}

	s := &managed{
		id:        sessionID,
		name:      name,
		status:    domainSession.StatusConnecting,
		createdAt: time.Now().UTC(),
		queue:     newDeliveryQueue(m.cfg.Session.QueueSize, m.cfg.Session.SendTimeout),
		loopDone:  make(chan struct{}),
	}
	m.sessions[sessionID] = s
	m.mu.Unlock()

	if err := m.persist(); err != nil {
		logrus.WithError(err).Warn("[SESSION] Failed to persist session metadata")
	}

	if err := m.startSession(s); err != nil {
		return m.snapshot(s), err
	}
	return m.snapshot(s), nil
}

// startSession builds the transport client and launches the event loop,
// the connect attempt and the initialization timeout.
func (m *Manager) startSession(s *managed) error {
	client, err := m.factory(s.id)
	if err != nil {
		m.failSession(s, fmt.Errorf("client setup failed: %w", err))
		return pkgError.InternalServerError(fmt.Sprintf("failed to create client: %v", err))
	}

	s.mu.Lock()
	s.client = client
	s.mu.Unlock()

	go m.eventLoop(s, client)

	// The timer fires once; a QR issued before then suppresses it so a
	// pending scan is never cut off.
	s.mu.Lock()
	s.initTimer = time.AfterFunc(m.cfg.Session.InitTimeout, func() {
		m.initTimeout(s)
	})
	s.mu.Unlock()

	go func() {
		if err := client.Connect(context.Background()); err != nil {
			m.failSession(s, err)
		}
	}()
	return nil
}

func (m *Manager) initTimeout(s *managed) {
	s.mu.Lock()
	if s.qrSeen || s.status == domainSession.StatusConnected {
		s.mu.Unlock()
		return
	}
	changed := s.status != domainSession.StatusDisconnected
	s.status = domainSession.StatusDisconnected
	client := s.client
	s.mu.Unlock()

	if !changed {
		return
	}

	logrus.Warnf("[SESSION] Initialization timed out for session %s", s.id)
	if client != nil {
		client.Disconnect()
	}
	m.sink.Emit(EventSessionError, map[string]any{
		"session_id": s.id,
		"error":      "initialization timeout",
	})
	m.sink.Emit(EventSessionDisconnected, map[string]any{"session_id": s.id})
}

func (m *Manager) failSession(s *managed, err error) {
	s.mu.Lock()
	changed := s.status != domainSession.StatusDisconnected
	s.status = domainSession.StatusDisconnected
	s.mu.Unlock()

	logrus.WithError(err).Errorf("[SESSION] Session %s failed", s.id)
	if changed {
		m.sink.Emit(EventSessionError, map[string]any{
			"session_id": s.id,
			"error":      err.Error(),
		})
		m.sink.Emit(EventSessionDisconnected, map[string]any{"session_id": s.id})
	}
}

// eventLoop consumes the client's tagged event channel until it closes.
func (m *Manager) eventLoop(s *managed, client messaging.Client) {
	defer close(s.loopDone)

	for evt := range client.Events() {
		switch evt.Type {
		case messaging.EventQR:
			m.onQR(s, evt.QRCode)
		case messaging.EventConnected:
			m.onConnected(s, client)
		case messaging.EventDisconnected, messaging.EventLoggedOut:
			m.onDisconnected(s)
		case messaging.EventError:
			m.sink.Emit(EventSessionError, map[string]any{
				"session_id": s.id,
				"error":      fmt.Sprintf("%v", evt.Err),
			})
		case messaging.EventMessage:
			if evt.Message != nil {
				m.onMessage(s, *evt.Message)
			}
		}
	}
}

func (m *Manager) onQR(s *managed, code string) {
	s.mu.Lock()
	// A connected session never regresses to awaiting scan.
	if s.status == domainSession.StatusConnected {
		s.mu.Unlock()
		return
	}
	s.qrCode = code
	s.qrSeen = true
	s.status = domainSession.StatusAwaitingScan
	s.mu.Unlock()

	m.sink.Emit(EventSessionQR, map[string]any{
		"session_id": s.id,
		"qr":         code,
	})
}

func (m *Manager) onConnected(s *managed, client messaging.Client) {
	now := time.Now().UTC()

	s.mu.Lock()
	alreadyConnected := s.status == domainSession.StatusConnected
	s.status = domainSession.StatusConnected
	s.qrCode = ""
	s.connectedAt = &now
	s.lastActive = now
	s.phoneNumber = client.PhoneNumber()
	if s.initTimer != nil {
		s.initTimer.Stop()
	}
	phoneNumber := s.phoneNumber
	s.mu.Unlock()

	if alreadyConnected {
		return
	}

	logrus.Infof("[SESSION] Session %s connected as %s", s.id, phoneNumber)
	if err := m.persist(); err != nil {
		logrus.WithError(err).Warn("[SESSION] Failed to persist session metadata")
	}
	m.sink.Emit(EventSessionReady, map[string]any{
		"session_id":   s.id,
		"phone_number": phoneNumber,
	})
}

func (m *Manager) onDisconnected(s *managed) {
	s.mu.Lock()
	changed := s.status != domainSession.StatusDisconnected
	s.status = domainSession.StatusDisconnected
	s.mu.Unlock()

	if !changed {
		return
	}
	logrus.Infof("[SESSION] Session %s disconnected", s.id)
	m.sink.Emit(EventSessionDisconnected, map[string]any{"session_id": s.id})
}

func (m *Manager) onMessage(s *managed, msg messaging.Incoming) {
	if msg.IsFromMe || msg.IsGroup {
		return
	}
	s.touch()

	m.sink.Emit(EventMessageReceived, map[string]any{
		"session_id": s.id,
		"message_id": msg.MessageID,
		"sender":     msg.Sender,
		"text":       msg.Text,
	})

	m.inboundMu.RLock()
	handler := m.inbound
	m.inboundMu.RUnlock()
	if handler != nil {
		go handler(context.Background(), s.id, msg)
	}
}

// SendMessage queues a message for FIFO delivery on the session's queue
// and waits for its single resolution.
func (m *Manager) SendMessage(ctx context.Context, request domainSession.SendMessageRequest) (domainSession.SendMessageResponse, error) {
	s := m.get(request.SessionID)
	if s == nil {
		return domainSession.SendMessageResponse{}, pkgError.NotFoundError(
			fmt.Sprintf("session %s not found", request.SessionID))
	}

	s.mu.RLock()
	status := s.status
	client := s.client
	queue := s.queue
	s.mu.RUnlock()

	if status != domainSession.StatusConnected {
		return domainSession.SendMessageResponse{}, pkgError.BadRequestError(
			fmt.Sprintf("session %s is not connected", request.SessionID))
	}

	recipient, err := phone.Format(request.Phone)
	if err != nil {
		return domainSession.SendMessageResponse{}, err
	}

	job := &sendJob{
		result: make(chan sendOutcome, 1),
		run: func(ctx context.Context) (messaging.SendResult, error) {
			if request.Media != nil {
				data, decodeErr := base64.StdEncoding.DecodeString(request.Media.Data)
				if decodeErr != nil {
					return messaging.SendResult{}, pkgError.ValidationError("media data is not valid base64")
				}
				return client.SendMedia(ctx, recipient, messaging.Media{
					Data:     data,
					MimeType: request.Media.MimeType,
					FileName: request.Media.FileName,
					Caption:  request.Media.Caption,
				})
			}
			return client.SendText(ctx, recipient, request.Message)
		},
	}

	if err := queue.enqueue(job); err != nil {
		return domainSession.SendMessageResponse{}, err
	}

	select {
	case out := <-job.result:
		if out.err != nil {
			m.sink.Emit(EventMessageError, map[string]any{
				"session_id": request.SessionID,
				"recipient":  recipient,
				"error":      out.err.Error(),
			})
			return domainSession.SendMessageResponse{}, out.err
		}
		s.touch()
		m.sink.Emit(EventMessageSent, map[string]any{
			"session_id": request.SessionID,
			"recipient":  recipient,
			"message_id": out.result.MessageID,
		})
		return domainSession.SendMessageResponse{
			MessageID: out.result.MessageID,
			Timestamp: out.result.Timestamp,
		}, nil
	case <-ctx.Done():
		return domainSession.SendMessageResponse{}, ctx.Err()
	}
}

// DisconnectSession stops the transport but keeps the session registered.
func (m *Manager) DisconnectSession(ctx context.Context, sessionID string) error {
	s := m.get(sessionID)
	if s == nil {
		return pkgError.NotFoundError(fmt.Sprintf("session %s not found", sessionID))
	}

	s.mu.Lock()
	if s.initTimer != nil {
		s.initTimer.Stop()
	}
	client := s.client
	queue := s.queue
	s.mu.Unlock()

	queue.close(pkgError.BadRequestError(fmt.Sprintf("session %s is not connected", sessionID)))
	if client != nil {
		client.Disconnect()
	}
	m.onDisconnected(s)
	return nil
}

// DeleteSession logs the account out and removes all traces of the session.
func (m *Manager) DeleteSession(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if !ok {
		m.mu.Unlock()
		return pkgError.NotFoundError(fmt.Sprintf("session %s not found", sessionID))
	}
	delete(m.sessions, sessionID)
	m.mu.Unlock()

	s.mu.Lock()
	if s.initTimer != nil {
		s.initTimer.Stop()
	}
	client := s.client
	queue := s.queue
	s.mu.Unlock()

	queue.close(pkgError.NotFoundError(fmt.Sprintf("session %s not found", sessionID)))
	if client != nil {
		if err := client.Logout(ctx); err != nil {
			logrus.WithError(err).Warnf("[SESSION] Logout failed for session %s", sessionID)
		}
	}
	m.onDisconnected(s)

	if err := m.persist(); err != nil {
		logrus.WithError(err).Warn("[SESSION] Failed to persist session metadata")
	}
	return nil
}

// GetSession returns a point-in-time snapshot.
func (m *Manager) GetSession(sessionID string) (domainSession.Session, error) {
	s := m.get(sessionID)
	if s == nil {
		return domainSession.Session{}, pkgError.NotFoundError(
			fmt.Sprintf("session %s not found", sessionID))
	}
	return m.snapshot(s), nil
}

// GetAllSessions returns snapshots ordered by creation time.
func (m *Manager) GetAllSessions() []domainSession.Session {
	m.mu.RLock()
	all := make([]*managed, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.mu.RUnlock()

	result := make([]domainSession.Session, 0, len(all))
	for _, s := range all {
		result = append(result, m.snapshot(s))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

// Initialize restores persisted sessions. A failure on one record never
// blocks the others; failed sessions stay registered as disconnected.
func (m *Manager) Initialize(ctx context.Context) error {
	records, err := m.store.Load()
	if err != nil {
		return err
	}

	for _, rec := range records {
		m.mu.Lock()
		if _, exists := m.sessions[rec.ID]; exists {
			m.mu.Unlock()
			continue
		}
		if len(m.sessions) >= m.cfg.Session.MaxSessions {
			m.mu.Unlock()
			logrus.Warnf("[SESSION] Session cap reached, not restoring %s", rec.ID)
			continue
		}
		s := &managed{
			id:          rec.ID,
			name:        rec.Name,
			phoneNumber: rec.PhoneNumber,
			status:      domainSession.StatusConnecting,
			createdAt:   rec.CreatedAt,
			queue:       newDeliveryQueue(m.cfg.Session.QueueSize, m.cfg.Session.SendTimeout),
			loopDone:    make(chan struct{}),
		}
		m.sessions[rec.ID] = s
		m.mu.Unlock()

		if err := m.startSession(s); err != nil {
			logrus.WithError(err).Errorf("[SESSION] Failed to restore session %s", rec.ID)
		}
	}

	logrus.Infof("[SESSION] Restored %d session(s) from metadata", len(records))
	return nil
}

// Cleanup disconnects every session for shutdown. Session records are kept
// so they restore on the next boot.
func (m *Manager) Cleanup(ctx context.Context) {
	m.mu.RLock()
	all := make([]*managed, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.mu.RUnlock()

	for _, s := range all {
		s.mu.Lock()
		if s.initTimer != nil {
			s.initTimer.Stop()
		}
		client := s.client
		queue := s.queue
		s.mu.Unlock()

		queue.close(pkgError.BadRequestError("server shutting down"))
		if client != nil {
			client.Disconnect()
		}
	}

	if err := m.persist(); err != nil {
		logrus.WithError(err).Warn("[SESSION] Failed to persist session metadata")
	}
	logrus.Info("[SESSION] All sessions cleaned up")
}

func (m *Manager) get(sessionID string) *managed {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[sessionID]
}

func (m *Manager) snapshot(s *managed) domainSession.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := domainSession.Session{
		ID:          s.id,
		Name:        s.name,
		PhoneNumber: s.phoneNumber,
		Status:      s.status,
		QRCode:      s.qrCode,
		CreatedAt:   s.createdAt,
	}
	if s.connectedAt != nil {
		t := *s.connectedAt
		snap.ConnectedAt = &t
	}
	if !s.lastActive.IsZero() {
		t := s.lastActive
		snap.LastActiveAt = &t
	}
	return snap
}

// touch stamps the session's last activity: connects, sends and
// inbound traffic all count.
func (s *managed) touch() {
	s.mu.Lock()
	s.lastActive = time.Now().UTC()
	s.mu.Unlock()
}

func (m *Manager) persist() error {
	if m.store == nil {
		return nil
	}

	m.mu.RLock()
	records := make([]Record, 0, len(m.sessions))
	for _, s := range m.sessions {
		s.mu.RLock()
		records = append(records, Record{
			ID:          s.id,
			Name:        s.name,
			PhoneNumber: s.phoneNumber,
			CreatedAt:   s.createdAt,
		})
		s.mu.RUnlock()
	}
	m.mu.RUnlock()

	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
	return m.store.Save(records)
}
