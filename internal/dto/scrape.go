package dto

// ScrapeRequest is the payload used by the scrape and export endpoints.
type ScrapeRequest struct {
	Category      string   `json:"category"`
	Cities        []string `json:"cities"`
	Pages         int      `json:"pages"`
	FailurePolicy string   `json:"failure_policy,omitempty"`
}

// CityTable is one city's rendered listing table.
type CityTable struct {
	City     string        `json:"city"`
	Columns  []string      `json:"columns"`
	Rows     [][]string    `json:"rows"`
	Failures []PageFailure `json:"failures,omitempty"`
}

// PageFailure describes a page skipped under the isolate failure policy.
type PageFailure struct {
	Page  int    `json:"page"`
	URL   string `json:"url"`
	Error string `json:"error"`
}

// ScrapeResponse is returned by POST /scrape.
type ScrapeResponse struct {
	RunID    string      `json:"run_id"`
	Category string      `json:"category"`
	Pages    int         `json:"pages"`
	Results  []CityTable `json:"results"`
}

// CitiesResponse lists the city catalogue and the accepted page range.
type CitiesResponse struct {
	Cities   []string `json:"cities"`
	MinPages int      `json:"min_pages"`
	MaxPages int      `json:"max_pages"`
}
