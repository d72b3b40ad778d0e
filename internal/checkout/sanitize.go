package checkout

import (
	"regexp"
	"strings"

	"github.com/scentlab/storefront/internal/orders"
)

var (
	htmlTagRe    = regexp.MustCompile(`<[^>]*>`)
	eventAttrRe  = regexp.MustCompile(`(?i)on\w+\s*=\s*["'][^"']*["']`)
	jsProtoRe    = regexp.MustCompile(`(?i)javascript:`)
	whitespaceRe = regexp.MustCompile(`\s+`)
	emailRe      = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)
	postalRe     = regexp.MustCompile(`^[A-Z]\d[A-Z]\d[A-Z]\d$`)
	nonDigitRe   = regexp.MustCompile(`\D`)
)

var provinces = map[string]bool{
	"AB": true, "BC": true, "MB": true, "NB": true, "NL": true, "NT": true,
	"NS": true, "NU": true, "ON": true, "PE": true, "QC": true, "SK": true, "YT": true,
}

// sanitizeText strips markup and dangerous fragments from free-text input and
// enforces a length cap.
func sanitizeText(in string, maxLen int) string {
	s := strings.TrimSpace(in)
	s = htmlTagRe.ReplaceAllString(s, "")
	s = eventAttrRe.ReplaceAllString(s, "")
	s = jsProtoRe.ReplaceAllString(s, "")
	s = whitespaceRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	return s
}

func sanitizeEmail(in string) (string, string) {
	s := strings.ToLower(strings.TrimSpace(in))
	if len(s) > 254 {
		s = s[:254]
	}
	if s == "" {
		return "", "email is required"
	}
	if !emailRe.MatchString(s) {
		return "", "invalid email format"
	}
	return s, ""
}

func sanitizePostalCode(in string) (string, string) {
	s := strings.ToUpper(strings.ReplaceAll(in, " ", ""))
	if len(s) > 7 {
		s = s[:7]
	}
	if s == "" {
		return "", "postal code is required"
	}
	if !postalRe.MatchString(s) {
		return "", "invalid Canadian postal code format (A1A 1A1)"
	}
	return s[:3] + " " + s[3:], ""
}

func sanitizeProvince(in string) (string, string) {
	s := strings.ToUpper(strings.TrimSpace(in))
	if s == "" {
		return "", "province is required"
	}
	if !provinces[s] {
		return "", "invalid Canadian province"
	}
	return s, ""
}

// sanitizePhone accepts 10-digit Canadian numbers, optionally with a leading 1.
// Phone is optional; empty input is valid.
func sanitizePhone(in string) (string, string) {
	if strings.TrimSpace(in) == "" {
		return "", ""
	}
	digits := nonDigitRe.ReplaceAllString(in, "")
	switch {
	case len(digits) == 10:
		return "(" + digits[:3] + ") " + digits[3:6] + "-" + digits[6:], ""
	case len(digits) == 11 && strings.HasPrefix(digits, "1"):
		return "+1 (" + digits[1:4] + ") " + digits[4:7] + "-" + digits[7:], ""
	default:
		return "", "invalid phone number (10 digits required)"
	}
}

// SanitizeShippingInfo validates and normalizes the contact/shipping fields,
// accumulating every field error rather than stopping at the first.
func SanitizeShippingInfo(in orders.ShippingInfo) (orders.ShippingInfo, FieldErrors) {
	errs := FieldErrors{}
	out := orders.ShippingInfo{}

	out.Name = sanitizeText(in.Name, 100)
	if out.Name == "" {
		errs["name"] = "name is required"
	}

	if email, msg := sanitizeEmail(in.Email); msg != "" {
		errs["email"] = msg
	} else {
		out.Email = email
	}

	out.StreetAddress = sanitizeText(in.StreetAddress, 200)
	if out.StreetAddress == "" {
		errs["streetAddress"] = "street address is required"
	}
	out.AddressLine2 = sanitizeText(in.AddressLine2, 200)

	out.City = sanitizeText(in.City, 100)
	if out.City == "" {
		errs["city"] = "city is required"
	}

	if prov, msg := sanitizeProvince(in.Province); msg != "" {
		errs["province"] = msg
	} else {
		out.Province = prov
	}

	if pc, msg := sanitizePostalCode(in.PostalCode); msg != "" {
		errs["postalCode"] = msg
	} else {
		out.PostalCode = pc
	}

	out.Country = sanitizeText(in.Country, 50)
	if out.Country != "Canada" {
		errs["country"] = "only Canadian orders are accepted"
	}

	if phone, msg := sanitizePhone(in.Phone); msg != "" {
		errs["phone"] = msg
	} else {
		out.Phone = phone
	}

	if len(errs) > 0 {
		return orders.ShippingInfo{}, errs
	}
	return out, nil
}
