package usecase

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	domainSession "github.com/multiwa/multiwa/domains/session"
	"github.com/multiwa/multiwa/repository"
	"github.com/multiwa/multiwa/session"
	"github.com/multiwa/multiwa/validations"
)

type serviceSession struct {
	manager *session.Manager
	logs    *repository.MessageLogStore
}

func NewSessionService(manager *session.Manager, logs *repository.MessageLogStore) domainSession.ISessionUsecase {
	return &serviceSession{
		manager: manager,
		logs:    logs,
	}
}

func (service serviceSession) Create(ctx context.Context, request domainSession.CreateRequest) (domainSession.Session, error) {
	if err := validations.ValidateCreateSession(ctx, request); err != nil {
		return domainSession.Session{}, err
	}
	return service.manager.CreateSession(ctx, request.SessionID, request.Name)
}

func (service serviceSession) List(ctx context.Context) []domainSession.Session {
	return service.manager.GetAllSessions()
}

func (service serviceSession) Get(ctx context.Context, sessionID string) (domainSession.Session, error) {
	return service.manager.GetSession(sessionID)
}

func (service serviceSession) SendMessage(ctx context.Context, request domainSession.SendMessageRequest) (domainSession.SendMessageResponse, error) {
	if err := validations.ValidateSendMessage(ctx, request); err != nil {
		return domainSession.SendMessageResponse{}, err
	}

	response, sendErr := service.manager.SendMessage(ctx, request)
	service.recordSend(request, response, sendErr)
	return response, sendErr
}

func (service serviceSession) recordSend(request domainSession.SendMessageRequest, response domainSession.SendMessageResponse, sendErr error) {
	if service.logs == nil {
		return
	}

	record := repository.MessageRecord{
		SessionID: request.SessionID,
		Direction: repository.DirectionOutbound,
		Remote:    request.Phone,
		Body:      request.Message,
		MessageID: response.MessageID,
		Success:   sendErr == nil,
		CreatedAt: time.Now().UTC(),
	}
	if request.Media != nil {
		record.MediaType = request.Media.MimeType
	}
	if sendErr != nil {
		record.Error = sendErr.Error()
	}

	logCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := service.logs.RecordMessage(logCtx, record); err != nil {
		logrus.WithError(err).Warn("[SESSION] Failed to record message history")
	}
}

func (service serviceSession) Disconnect(ctx context.Context, sessionID string) error {
	return service.manager.DisconnectSession(ctx, sessionID)
}

func (service serviceSession) Delete(ctx context.Context, sessionID string) error {
	return service.manager.DeleteSession(ctx, sessionID)
}
