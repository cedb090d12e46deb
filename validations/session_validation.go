package validations

import (
	"context"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	domainSession "github.com/multiwa/multiwa/domains/session"
	pkgError "github.com/multiwa/multiwa/pkg/error"
)

var sessionIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

func ValidateCreateSession(ctx context.Context, request domainSession.CreateRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.SessionID,
			validation.Required,
			validation.Length(1, 64),
			validation.Match(sessionIDPattern).Error("must contain only letters, digits, dash and underscore"),
		),
		validation.Field(&request.Name, validation.Length(0, 128)),
	)

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}
