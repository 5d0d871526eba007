package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/octobees/directory-leads/internal/entity"
)

// WriteCSV writes the header and rows of table to w.
func WriteCSV(w io.Writer, table *entity.Table) error {
	if table == nil {
		return errors.New("table is nil")
	}
	writer := csv.NewWriter(w)
	if err := writer.Write(table.Columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i, row := range table.Rows {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write csv row %d: %w", i+1, err)
		}
	}
	writer.Flush()
	return writer.Error()
}
