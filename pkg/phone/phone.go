package phone

import (
	"regexp"
	"strings"

	pkgError "github.com/multiwa/multiwa/pkg/error"
)

// UserSuffix is the JID server suffix for individual WhatsApp accounts.
const UserSuffix = "@s.whatsapp.net"

var (
	validPattern = regexp.MustCompile(`^(\d+` + regexp.QuoteMeta(UserSuffix) + `|\d+)$`)
	nonDigits    = regexp.MustCompile(`\D`)
)

// IsValid reports whether the input is a bare number or an already
// formatted user JID.
func IsValid(number string) bool {
	return validPattern.MatchString(strings.TrimSpace(number))
}

// Format canonicalizes any phone-like input to digits plus the user JID
// suffix. "+62 813-6162-6766" and "6281361626766" format identically.
func Format(number string) (string, error) {
	trimmed := strings.TrimSpace(number)
	if strings.HasSuffix(trimmed, UserSuffix) {
		trimmed = strings.TrimSuffix(trimmed, UserSuffix)
	}

	digits := nonDigits.ReplaceAllString(trimmed, "")
	if digits == "" {
		return "", pkgError.ValidationError("phone number has no digits")
	}

	return digits + UserSuffix, nil
}
