package entity

// Table is a rendered result grid with a fixed header.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// NewListingTable builds a table with the listing header and no rows.
func NewListingTable() *Table {
	return &Table{Columns: ListingColumns(), Rows: [][]string{}}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}
