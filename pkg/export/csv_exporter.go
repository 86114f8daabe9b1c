package export

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// Dataset defines tabular export content.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// dayNames labels the grid columns; index 0 is Monday.
var dayNames = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// TimetableDataset flattens a timetable grid into one row per period with one
// column per school day. Cells show the subject id, or subject/teacher when a
// teacher is assigned.
func TimetableDataset(t *models.Timetable) Dataset {
	headers := []string{"Period"}
	for d := 0; d < t.Days && d < len(dayNames); d++ {
		headers = append(headers, dayNames[d])
	}

	rows := make([]map[string]string, 0, t.Periods)
	for p := 0; p < t.Periods; p++ {
		row := map[string]string{"Period": fmt.Sprintf("%d", p+1)}
		for d := 0; d < t.Days && d < len(dayNames); d++ {
			row[dayNames[d]] = cellLabel(t.At(d, p, 0))
		}
		rows = append(rows, row)
	}
	return Dataset{Headers: headers, Rows: rows}
}

func cellLabel(slot *models.TimetableSlot) string {
	if !slot.Assigned() {
		return ""
	}
	if slot.TeacherID != nil {
		return fmt.Sprintf("%s (%s)", *slot.SubjectID, *slot.TeacherID)
	}
	return *slot.SubjectID
}

// CSVExporter renders Dataset records into CSV bytes.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes for the dataset.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(data.Headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for _, row := range data.Rows {
		record := make([]string, len(data.Headers))
		for i, header := range data.Headers {
			record[i] = row[header]
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
