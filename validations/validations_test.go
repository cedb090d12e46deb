package validations

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/multiwa/multiwa/core/config"
	domainAutoReply "github.com/multiwa/multiwa/domains/autoreply"
	domainCampaign "github.com/multiwa/multiwa/domains/campaign"
	domainSession "github.com/multiwa/multiwa/domains/session"
	pkgError "github.com/multiwa/multiwa/pkg/error"
)

func TestMain(m *testing.M) {
	if _, err := config.LoadConfig(); err != nil {
		panic(err)
	}
	m.Run()
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	genericErr, ok := err.(pkgError.GenericError)
	require.True(t, ok)
	assert.Equal(t, "VALIDATION_ERROR", genericErr.ErrCode())
}

func TestValidateCreateSession(t *testing.T) {
	ctx := context.Background()

	assert.NoError(t, ValidateCreateSession(ctx, domainSession.CreateRequest{SessionID: "work-1", Name: "Work"}))
	assertValidationError(t, ValidateCreateSession(ctx, domainSession.CreateRequest{}))
	assertValidationError(t, ValidateCreateSession(ctx, domainSession.CreateRequest{SessionID: "has spaces"}))
	assertValidationError(t, ValidateCreateSession(ctx, domainSession.CreateRequest{SessionID: strings.Repeat("x", 65)}))
}

func TestValidateSendMessage(t *testing.T) {
	ctx := context.Background()

	valid := domainSession.SendMessageRequest{SessionID: "work", Phone: "628111", Message: "hi"}
	assert.NoError(t, ValidateSendMessage(ctx, valid))

	assertValidationError(t, ValidateSendMessage(ctx, domainSession.SendMessageRequest{Phone: "628111", Message: "hi"}))
	assertValidationError(t, ValidateSendMessage(ctx, domainSession.SendMessageRequest{SessionID: "work", Message: "hi"}))

	// Text is mandatory only without media.
	assertValidationError(t, ValidateSendMessage(ctx, domainSession.SendMessageRequest{SessionID: "work", Phone: "628111"}))
}

func TestValidateSendMessage_Media(t *testing.T) {
	ctx := context.Background()
	payload := base64.StdEncoding.EncodeToString([]byte("fake image bytes"))

	withMedia := func(media domainSession.MediaPayload) domainSession.SendMessageRequest {
		return domainSession.SendMessageRequest{SessionID: "work", Phone: "628111", Media: &media}
	}

	assert.NoError(t, ValidateSendMessage(ctx, withMedia(domainSession.MediaPayload{Data: payload, MimeType: "image/png"})))

	assertValidationError(t, ValidateSendMessage(ctx, withMedia(domainSession.MediaPayload{MimeType: "image/png"})))
	assertValidationError(t, ValidateSendMessage(ctx, withMedia(domainSession.MediaPayload{Data: payload})))
	assertValidationError(t, ValidateSendMessage(ctx, withMedia(domainSession.MediaPayload{Data: payload, MimeType: "application/x-executable"})))
	assertValidationError(t, ValidateSendMessage(ctx, withMedia(domainSession.MediaPayload{Data: "!!!not base64!!!", MimeType: "image/png"})))

	huge := base64.StdEncoding.EncodeToString(make([]byte, config.Global.Whatsapp.MaxMediaSize+1))
	err := ValidateSendMessage(ctx, withMedia(domainSession.MediaPayload{Data: huge, MimeType: "image/png"}))
	assertValidationError(t, err)
	assert.Contains(t, err.Error(), "limit")
}

func TestValidateCreateCampaign(t *testing.T) {
	ctx := context.Background()

	valid := domainCampaign.CreateRequest{
		SessionID:  "work",
		Name:       "Promo",
		Template:   "Hi {name}",
		Recipients: []domainCampaign.RecipientInput{{Name: "Alice", Phone: "628111"}},
	}
	assert.NoError(t, ValidateCreateCampaign(ctx, valid))

	missingRecipients := valid
	missingRecipients.Recipients = nil
	assertValidationError(t, ValidateCreateCampaign(ctx, missingRecipients))

	blankPhone := valid
	blankPhone.Recipients = []domainCampaign.RecipientInput{{Name: "Bob"}}
	err := ValidateCreateCampaign(ctx, blankPhone)
	assertValidationError(t, err)
	assert.Contains(t, err.Error(), "index 0")
}

func TestValidateCreateAutoReply(t *testing.T) {
	ctx := context.Background()

	valid := domainAutoReply.CreateRequest{
		Keyword:   "hello",
		MatchType: domainAutoReply.MatchContains,
		Response:  "hi!",
	}
	assert.NoError(t, ValidateCreateAutoReply(ctx, valid))

	assertValidationError(t, ValidateCreateAutoReply(ctx, domainAutoReply.CreateRequest{MatchType: domainAutoReply.MatchExact, Response: "x"}))
	assertValidationError(t, ValidateCreateAutoReply(ctx, domainAutoReply.CreateRequest{Keyword: "x", MatchType: "fuzzy", Response: "x"}))

	// AI rules may omit the template response.
	aiRule := domainAutoReply.CreateRequest{Keyword: "help", MatchType: domainAutoReply.MatchContains, UseAI: true}
	assert.NoError(t, ValidateCreateAutoReply(ctx, aiRule))

	templateRule := aiRule
	templateRule.UseAI = false
	assertValidationError(t, ValidateCreateAutoReply(ctx, templateRule))
}

func TestValidateUpdateAutoReply(t *testing.T) {
	ctx := context.Background()

	assert.NoError(t, ValidateUpdateAutoReply(ctx, domainAutoReply.UpdateRequest{}))
	assert.NoError(t, ValidateUpdateAutoReply(ctx, domainAutoReply.UpdateRequest{MatchType: domainAutoReply.MatchRegex}))
	assertValidationError(t, ValidateUpdateAutoReply(ctx, domainAutoReply.UpdateRequest{MatchType: "fuzzy"}))
}
