package entity

// Table column headers, in render order.
const (
	ColumnName       = "Name"
	ColumnAddress    = "indirizzo"
	ColumnProvince   = "prov"
	ColumnCity       = "città"
	ColumnPostalCode = "cap"
	ColumnTaxID      = "P. IVA"
	ColumnPhones     = "telefoni"
	ColumnWhatsApp   = "whatsapp"
	ColumnEmails     = "email"
	ColumnWebsite    = "sito web"
	ColumnProfileURL = "pagine gialle"
)

// ListingColumns returns the table header for listing tables.
func ListingColumns() []string {
	return []string{
		ColumnName,
		ColumnAddress,
		ColumnProvince,
		ColumnCity,
		ColumnPostalCode,
		ColumnTaxID,
		ColumnPhones,
		ColumnWhatsApp,
		ColumnEmails,
		ColumnWebsite,
		ColumnProfileURL,
	}
}

// Listing is one business entry returned by the directory search endpoint.
// Multi-valued contacts are already joined into display strings.
type Listing struct {
	Name       string `json:"name"`
	Address    string `json:"address"`
	Province   string `json:"province"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	TaxID      string `json:"tax_id"`
	Phones     string `json:"phones"`
	WhatsApp   string `json:"whatsapp"`
	Emails     string `json:"emails"`
	Website    string `json:"website"`
	ProfileURL string `json:"profile_url"`
}

// Row renders the listing in ListingColumns order.
func (l Listing) Row() []string {
	return []string{
		l.Name,
		l.Address,
		l.Province,
		l.City,
		l.PostalCode,
		l.TaxID,
		l.Phones,
		l.WhatsApp,
		l.Emails,
		l.Website,
		l.ProfileURL,
	}
}
