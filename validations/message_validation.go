package validations

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/dustin/go-humanize"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/multiwa/multiwa/core/config"
	domainSession "github.com/multiwa/multiwa/domains/session"
	pkgError "github.com/multiwa/multiwa/pkg/error"
)

func ValidateSendMessage(ctx context.Context, request domainSession.SendMessageRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.SessionID, validation.Required),
		validation.Field(&request.Phone, validation.Required),
		validation.Field(&request.Message,
			validation.Required.When(request.Media == nil),
			validation.Length(0, 4096),
		),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	if request.Media != nil {
		return validateMedia(request.Media)
	}
	return nil
}

func validateMedia(media *domainSession.MediaPayload) error {
	if media.Data == "" {
		return pkgError.ValidationError("media: data cannot be blank.")
	}
	if media.MimeType == "" {
		return pkgError.ValidationError("media: mime_type cannot be blank.")
	}

	cfg := config.Global
	allowed := false
	for _, mime := range cfg.Whatsapp.AllowedMimes {
		if mime == media.MimeType {
			allowed = true
			break
		}
	}
	if !allowed {
		return pkgError.ValidationError(fmt.Sprintf("media: mime type %s is not allowed", media.MimeType))
	}

	decoded, err := base64.StdEncoding.DecodeString(media.Data)
	if err != nil {
		return pkgError.ValidationError("media: data must be valid base64")
	}
	if int64(len(decoded)) > cfg.Whatsapp.MaxMediaSize {
		return pkgError.ValidationError(fmt.Sprintf("media: size %s exceeds the %s limit",
			humanize.Bytes(uint64(len(decoded))), humanize.Bytes(uint64(cfg.Whatsapp.MaxMediaSize))))
	}

	return nil
}
