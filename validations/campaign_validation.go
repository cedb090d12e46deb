package validations

import (
	"context"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	domainCampaign "github.com/multiwa/multiwa/domains/campaign"
	pkgError "github.com/multiwa/multiwa/pkg/error"
)

func ValidateCreateCampaign(ctx context.Context, request domainCampaign.CreateRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.SessionID, validation.Required),
		validation.Field(&request.Name, validation.Required, validation.Length(1, 128)),
		validation.Field(&request.Template, validation.Required),
		validation.Field(&request.DelaySeconds, validation.Min(0), validation.Max(3600)),
		validation.Field(&request.Recipients, validation.Required, validation.Length(1, 10000)),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	for i, recipient := range request.Recipients {
		if recipient.Phone == "" {
			return pkgError.ValidationError(fmt.Sprintf("recipients: phone cannot be blank at index %d.", i))
		}
	}

	return nil
}
