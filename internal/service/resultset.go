package service

import "github.com/octobees/directory-leads/internal/entity"

// CityResultSet is an insertion-ordered map from business name to listing for one city.
// Put on an existing name replaces the listing but keeps the name's original position.
type CityResultSet struct {
	keys   []string
	values map[string]entity.Listing
}

// NewCityResultSet returns an empty result set.
func NewCityResultSet() *CityResultSet {
	return &CityResultSet{values: make(map[string]entity.Listing)}
}

// Put stores listing under name and reports whether an earlier listing was replaced.
func (s *CityResultSet) Put(name string, listing entity.Listing) bool {
	_, replaced := s.values[name]
	if !replaced {
		s.keys = append(s.keys, name)
	}
	s.values[name] = listing
	return replaced
}

// Len returns the number of distinct names.
func (s *CityResultSet) Len() int {
	return len(s.keys)
}

// Table renders the set with the Name column taken from the keys.
func (s *CityResultSet) Table() *entity.Table {
	table := entity.NewListingTable()
	for _, name := range s.keys {
		row := s.values[name].Row()
		row[0] = name
		table.Rows = append(table.Rows, row)
	}
	return table
}
