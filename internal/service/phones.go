package service

import (
	"strings"

	"github.com/nyaruka/phonenumbers"

	"github.com/octobees/directory-leads/internal/entity"
)

const (
	defaultPhoneRegion = "IT"
	phoneSeparator     = ", "
)

// PhoneFormatter rewrites listing phone numbers in E.164 form.
type PhoneFormatter struct {
	Region string
}

// NewPhoneFormatter builds a formatter parsing national numbers in region.
func NewPhoneFormatter(region string) *PhoneFormatter {
	region = strings.ToUpper(strings.TrimSpace(region))
	if region == "" {
		region = defaultPhoneRegion
	}
	return &PhoneFormatter{Region: region}
}

// Apply normalizes the phone and WhatsApp columns of listing in place.
// Numbers that do not parse are kept as they came.
func (f *PhoneFormatter) Apply(listing *entity.Listing) {
	if f == nil || listing == nil {
		return
	}
	listing.Phones = f.formatList(listing.Phones)
	listing.WhatsApp = f.formatList(listing.WhatsApp)
}

func (f *PhoneFormatter) formatList(joined string) string {
	if strings.TrimSpace(joined) == "" {
		return joined
	}
	parts := strings.Split(joined, phoneSeparator)
	for i, raw := range parts {
		if normalized := normalizePhone(raw, f.Region); normalized != "" {
			parts[i] = normalized
		}
	}
	return strings.Join(parts, phoneSeparator)
}

func normalizePhone(raw, region string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if region == "" {
		region = defaultPhoneRegion
	}
	number, err := phonenumbers.Parse(raw, region)
	if err != nil {
		return ""
	}
	if !phonenumbers.IsPossibleNumber(number) || !phonenumbers.IsValidNumber(number) {
		return ""
	}
	return phonenumbers.Format(number, phonenumbers.E164)
}
