// Package phone turns free-form phone input into E.164.
package phone

import (
	"fmt"
	"strings"

	"github.com/aniladanir/whatsapp-messenger-service/internal/domain"
	"github.com/nyaruka/phonenumbers"
)

var separators = strings.NewReplacer(
	" ", "", "\t", "", "\n", "", "\r", "",
	"-", "", "(", "", ")", "",
)

// Normalize strips separators from raw, treats the remainder as a full
// international number and returns it in E.164 form. No default country is
// inferred: a missing '+' is simply prepended.
func Normalize(raw string) (string, error) {
	cleaned := separators.Replace(raw)
	if !strings.HasPrefix(cleaned, "+") {
		cleaned = "+" + cleaned
	}

	num, err := phonenumbers.Parse(cleaned, phonenumbers.UNKNOWN_REGION)
	if err != nil {
		return "", domain.InvalidPhoneNumber(fmt.Sprintf("Could not parse phone number %s", raw), err)
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", domain.InvalidPhoneNumber(fmt.Sprintf("Phone number %s is not valid", raw), nil)
	}

	return phonenumbers.Format(num, phonenumbers.E164), nil
}
