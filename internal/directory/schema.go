package directory

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/octobees/directory-leads/internal/entity"
)

type fieldKind int

const (
	kindString fieldKind = iota
	kindList
)

// listSeparator joins multi-valued contact fields.
const listSeparator = ", "

type listingField struct {
	name string
	path []string
	kind fieldKind
	set  func(*entity.Listing, string)
}

// listingSchema maps directory record paths onto Listing fields.
// Every entry defaults to "" when any path element is missing.
var listingSchema = []listingField{
	{"name", []string{"ds_ragsoc"}, kindString, func(l *entity.Listing, v string) { l.Name = v }},
	{"address", []string{"addr"}, kindString, func(l *entity.Listing, v string) { l.Address = v }},
	{"province", []string{"prov"}, kindString, func(l *entity.Listing, v string) { l.Province = v }},
	{"city", []string{"loc"}, kindString, func(l *entity.Listing, v string) { l.City = v }},
	{"postal_code", []string{"ds_cap"}, kindString, func(l *entity.Listing, v string) { l.PostalCode = v }},
	{"tax_id", []string{"ds_pi"}, kindString, func(l *entity.Listing, v string) { l.TaxID = v }},
	{"phones", []string{"ds_ls_telefoni"}, kindList, func(l *entity.Listing, v string) { l.Phones = v }},
	{"whatsapp", []string{"ds_ls_telefoni_whatsapp"}, kindList, func(l *entity.Listing, v string) { l.WhatsApp = v }},
	{"emails", []string{"ds_ls_email"}, kindList, func(l *entity.Listing, v string) { l.Emails = v }},
	{"website", []string{"extra", "site_link", "url"}, kindString, func(l *entity.Listing, v string) { l.Website = v }},
	{"profile_url", []string{"extra", "urlms"}, kindString, func(l *entity.Listing, v string) { l.ProfileURL = v }},
}

// recordCity returns the record's loc field, or "" when absent.
func recordCity(record map[string]any) string {
	value, _ := lookup(record, "loc")
	return scalarString(value)
}

// MatchesCity reports whether the record belongs to city, ignoring case.
func MatchesCity(record map[string]any, city string) bool {
	return strings.EqualFold(recordCity(record), city)
}

// ExtractListing applies the listing schema to a raw search record.
func ExtractListing(record map[string]any) entity.Listing {
	var listing entity.Listing
	for _, field := range listingSchema {
		value, ok := lookup(record, field.path...)
		if !ok {
			continue
		}
		switch field.kind {
		case kindList:
			field.set(&listing, joinList(value))
		default:
			field.set(&listing, scalarString(value))
		}
	}
	return listing
}

// lookup walks nested objects; any missing level or non-object parent yields false.
func lookup(value any, path ...string) (any, bool) {
	current := value
	for _, key := range path {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func scalarString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func joinList(value any) string {
	switch v := value.(type) {
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			if item == nil {
				continue
			}
			parts = append(parts, scalarString(item))
		}
		return strings.Join(parts, listSeparator)
	default:
		// a bare scalar is a one-element list
		return scalarString(v)
	}
}
