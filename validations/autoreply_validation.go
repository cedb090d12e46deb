package validations

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	domainAutoReply "github.com/multiwa/multiwa/domains/autoreply"
	pkgError "github.com/multiwa/multiwa/pkg/error"
)

var matchTypes = []any{
	domainAutoReply.MatchExact,
	domainAutoReply.MatchContains,
	domainAutoReply.MatchStartsWith,
	domainAutoReply.MatchEndsWith,
	domainAutoReply.MatchRegex,
}

var priorities = []any{
	domainAutoReply.PriorityHigh,
	domainAutoReply.PriorityNormal,
	domainAutoReply.PriorityLow,
}

func ValidateCreateAutoReply(ctx context.Context, request domainAutoReply.CreateRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.Keyword, validation.Required, validation.Length(1, 256)),
		validation.Field(&request.MatchType, validation.Required, validation.In(matchTypes...)),
		validation.Field(&request.Priority, validation.In(priorities...)),
		validation.Field(&request.Response,
			validation.Required.When(!request.UseAI).Error("cannot be blank for template rules"),
		),
	)

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}

func ValidateUpdateAutoReply(ctx context.Context, request domainAutoReply.UpdateRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.Keyword, validation.Length(0, 256)),
		validation.Field(&request.MatchType, validation.In(matchTypes...)),
		validation.Field(&request.Priority, validation.In(priorities...)),
	)

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}
