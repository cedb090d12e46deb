package whatsmeow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waCompanionReg"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"

	"github.com/multiwa/multiwa/core/config"
	"github.com/multiwa/multiwa/messaging"
)

const eventBuffer = 64

// Client adapts a whatsmeow client to the messaging.Client capability.
// Each session gets its own credential store file under the storages dir.
type Client struct {
	sessionID string
	cfg       *config.Config

	client    *whatsmeow.Client
	container *sqlstore.Container
	handlerID uint32

	events    chan messaging.Event
	closeOnce sync.Once
}

// NewFactory returns a messaging.ClientFactory producing whatsmeow clients.
func NewFactory(cfg *config.Config) messaging.ClientFactory {
	return func(sessionID string) (messaging.Client, error) {
		if sessionID == "" {
			return nil, fmt.Errorf("session id is required")
		}
		return &Client{
			sessionID: sessionID,
			cfg:       cfg,
			events:    make(chan messaging.Event, eventBuffer),
		}, nil
	}
}

func (c *Client) Connect(ctx context.Context) error {
	if c.client != nil {
		if !c.client.IsConnected() {
			return c.client.Connect()
		}
		return nil
	}

	if err := os.MkdirAll(c.cfg.Paths.Storages, 0755); err != nil {
		return fmt.Errorf("failed to create storage dir: %w", err)
	}

	dbPath := filepath.Join(c.cfg.Paths.Storages, fmt.Sprintf("whatsapp-%s.db", c.sessionID))
	dbLog := waLog.Stdout("DB-"+shortID(c.sessionID), c.cfg.Whatsapp.LogLevel, true)

	container, err := sqlstore.New(ctx, "sqlite3", fmt.Sprintf("file:%s?_foreign_keys=on", dbPath), dbLog)
	if err != nil {
		return fmt.Errorf("failed to init session db: %w", err)
	}
	c.container = container

	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		return fmt.Errorf("failed to get device: %w", err)
	}
	if device == nil {
		device = container.NewDevice()
	}

	platform := waCompanionReg.DeviceProps_CHROME
	osName := c.cfg.Whatsapp.OSName
	store.DeviceProps.PlatformType = &platform
	store.DeviceProps.Os = &osName

	clientLog := waLog.Stdout("Client-"+shortID(c.sessionID), c.cfg.Whatsapp.LogLevel, true)
	c.client = whatsmeow.NewClient(device, clientLog)
	c.client.EnableAutoReconnect = c.cfg.Session.AutoReconnect
	c.client.AutoTrustIdentity = true
	c.handlerID = c.client.AddEventHandler(c.handleEvent)

	if err := c.client.Connect(); err != nil {
		return fmt.Errorf("failed to connect client: %w", err)
	}
	return nil
}

func (c *Client) Disconnect() {
	if c.client == nil {
		return
	}
	if c.handlerID != 0 {
		c.client.RemoveEventHandler(c.handlerID)
		c.handlerID = 0
	}
	c.client.Disconnect()
	c.closeEvents()
	if c.container != nil {
		_ = c.container.Close()
	}
}

func (c *Client) Logout(ctx context.Context) error {
	if c.client == nil {
		return nil
	}
	err := c.client.Logout(ctx)
	if err != nil {
		logrus.WithError(err).Warnf("[WHATSAPP] Logout failed for session %s", c.sessionID)
	}
	c.Disconnect()

	// Credentials are gone, remove the per-session store file too.
	dbPath := filepath.Join(c.cfg.Paths.Storages, fmt.Sprintf("whatsapp-%s.db", c.sessionID))
	_ = os.Remove(dbPath)
	return err
}

func (c *Client) SendText(ctx context.Context, to, text string) (messaging.SendResult, error) {
	if c.client == nil {
		return messaging.SendResult{}, fmt.Errorf("client not initialized")
	}

	jid, err := parseJID(to)
	if err != nil {
		return messaging.SendResult{}, err
	}

	msg := &waE2E.Message{
		ExtendedTextMessage: &waE2E.ExtendedTextMessage{
			Text: proto.String(text),
		},
	}

	resp, err := c.client.SendMessage(ctx, jid, msg)
	if err != nil {
		return messaging.SendResult{}, err
	}
	return messaging.SendResult{MessageID: resp.ID, Timestamp: resp.Timestamp}, nil
}

func (c *Client) SendMedia(ctx context.Context, to string, media messaging.Media) (messaging.SendResult, error) {
	if c.client == nil {
		return messaging.SendResult{}, fmt.Errorf("client not initialized")
	}

	jid, err := parseJID(to)
	if err != nil {
		return messaging.SendResult{}, err
	}

	var mType whatsmeow.MediaType
	switch {
	case strings.HasPrefix(media.MimeType, "image/"):
		mType = whatsmeow.MediaImage
	case strings.HasPrefix(media.MimeType, "video/"):
		mType = whatsmeow.MediaVideo
	case strings.HasPrefix(media.MimeType, "audio/"):
		mType = whatsmeow.MediaAudio
	default:
		mType = whatsmeow.MediaDocument
	}

	uploaded, err := c.client.Upload(ctx, media.Data, mType)
	if err != nil {
		return messaging.SendResult{}, fmt.Errorf("failed to upload media: %w", err)
	}

	msg := &waE2E.Message{}
	switch mType {
	case whatsmeow.MediaImage:
		msg.ImageMessage = &waE2E.ImageMessage{
			URL:           proto.String(uploaded.URL),
			DirectPath:    proto.String(uploaded.DirectPath),
			MediaKey:      uploaded.MediaKey,
			Mimetype:      proto.String(media.MimeType),
			FileEncSHA256: uploaded.FileEncSHA256,
			FileSHA256:    uploaded.FileSHA256,
			FileLength:    proto.Uint64(uploaded.FileLength),
			Caption:       proto.String(media.Caption),
		}
	case whatsmeow.MediaVideo:
		msg.VideoMessage = &waE2E.VideoMessage{
			URL:           proto.String(uploaded.URL),
			DirectPath:    proto.String(uploaded.DirectPath),
			MediaKey:      uploaded.MediaKey,
			Mimetype:      proto.String(media.MimeType),
			FileEncSHA256: uploaded.FileEncSHA256,
			FileSHA256:    uploaded.FileSHA256,
			FileLength:    proto.Uint64(uploaded.FileLength),
			Caption:       proto.String(media.Caption),
		}
	case whatsmeow.MediaAudio:
		msg.AudioMessage = &waE2E.AudioMessage{
			URL:           proto.String(uploaded.URL),
			DirectPath:    proto.String(uploaded.DirectPath),
			MediaKey:      uploaded.MediaKey,
			Mimetype:      proto.String(media.MimeType),
			FileEncSHA256: uploaded.FileEncSHA256,
			FileSHA256:    uploaded.FileSHA256,
			FileLength:    proto.Uint64(uploaded.FileLength),
		}
	default:
		msg.DocumentMessage = &waE2E.DocumentMessage{
			URL:           proto.String(uploaded.URL),
			DirectPath:    proto.String(uploaded.DirectPath),
			MediaKey:      uploaded.MediaKey,
			Mimetype:      proto.String(media.MimeType),
			FileEncSHA256: uploaded.FileEncSHA256,
			FileSHA256:    uploaded.FileSHA256,
			FileLength:    proto.Uint64(uploaded.FileLength),
			Caption:       proto.String(media.Caption),
			FileName:      proto.String(media.FileName),
		}
	}

	resp, err := c.client.SendMessage(ctx, jid, msg)
	if err != nil {
		return messaging.SendResult{}, err
	}
	return messaging.SendResult{MessageID: resp.ID, Timestamp: resp.Timestamp}, nil
}

func (c *Client) Events() <-chan messaging.Event {
	return c.events
}

func (c *Client) PhoneNumber() string {
	if c.client == nil || c.client.Store == nil || c.client.Store.ID == nil {
		return ""
	}
	return c.client.Store.ID.User
}

func (c *Client) IsConnected() bool {
	return c.client != nil && c.client.IsConnected() && c.client.IsLoggedIn()
}

// handleEvent maps whatsmeow events to the tagged messaging events.
func (c *Client) handleEvent(evt interface{}) {
	switch v := evt.(type) {
	case *events.QR:
		if len(v.Codes) > 0 {
			c.emit(messaging.Event{Type: messaging.EventQR, QRCode: v.Codes[0]})
		}

	case *events.Connected:
		c.emit(messaging.Event{Type: messaging.EventConnected})

	case *events.Disconnected:
		c.emit(messaging.Event{Type: messaging.EventDisconnected})

	case *events.LoggedOut:
		c.emit(messaging.Event{Type: messaging.EventLoggedOut})

	case *events.Message:
		if v.Info.Chat.String() == types.StatusBroadcastJID.String() || v.Info.IsIncomingBroadcast() {
			return
		}

		text := extractText(v.Message)
		c.emit(messaging.Event{
			Type: messaging.EventMessage,
			Message: &messaging.Incoming{
				MessageID:  v.Info.ID,
				Sender:     v.Info.Sender.ToNonAD().String(),
				SenderName: v.Info.PushName,
				Text:       text,
				IsGroup:    v.Info.IsGroup,
				IsFromMe:   v.Info.IsFromMe,
				Timestamp:  v.Info.Timestamp,
			},
		})
	}
}

func (c *Client) emit(evt messaging.Event) {
	select {
	case c.events <- evt:
	default:
		logrus.Warnf("[WHATSAPP] Event buffer full for session %s, dropping %s", c.sessionID, evt.Type)
	}
}

func (c *Client) closeEvents() {
	c.closeOnce.Do(func() {
		close(c.events)
	})
}

func parseJID(chatID string) (types.JID, error) {
	if strings.Contains(chatID, "@") {
		return types.ParseJID(chatID)
	}
	return types.NewJID(chatID, types.DefaultUserServer), nil
}

func extractText(msg *waE2E.Message) string {
	if msg == nil {
		return ""
	}
	if t := msg.GetConversation(); t != "" {
		return t
	}
	if ext := msg.GetExtendedTextMessage(); ext != nil {
		return ext.GetText()
	}
	if img := msg.GetImageMessage(); img != nil {
		return img.GetCaption()
	}
	if vid := msg.GetVideoMessage(); vid != nil {
		return vid.GetCaption()
	}
	if doc := msg.GetDocumentMessage(); doc != nil {
		return doc.GetCaption()
	}
	return ""
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
