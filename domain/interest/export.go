package interest

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"
)

// CSVHeader is the first row of every export.
var CSVHeader = []string{"id", "name", "email", "phone", "created_at"}

// WriteCSV writes items with CSVHeader.
func WriteCSV(w io.Writer, items []Interest) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for i := range items {
		dto := items[i].ToDTO()
		if err := cw.Write([]string{
			strconv.FormatInt(dto.ID, 10),
			dto.Name,
			dto.Email,
			dto.Phone,
			dto.CreatedAt,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportFilename names an export made at now.
func ExportFilename(now time.Time) string {
	return "interests-" + now.UTC().Format(dateLayout) + ".csv"
}
