// Package sheets reads and writes events as .xlsx workbooks.
package sheets

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mroshb/friend_calendar/internal/models"
	"github.com/mroshb/friend_calendar/pkg/utils"
	"github.com/xuri/excelize/v2"
)

const (
	SheetName  = "Events"
	dateLayout = "2006-01-02"
)

// Columns of the events sheet, in order.
var Columns = []string{"Title", "Date", "Time", "End time", "All day", "Details", "Location", "Recurrence", "Completed", "Points"}

// Row is one imported event line.
type Row struct {
	Line     int
	Title    string
	Date     string
	Time     string
	EndTime  string
	AllDay   bool
	Details  string
	Location string
}

// WriteEvents renders events as a single-sheet workbook into w.
func WriteEvents(w io.Writer, events []models.Event) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return err
	}

	header := make([]interface{}, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	lastCol, _ := excelize.ColumnNumberToName(len(Columns))
	if err := f.SetCellStyle(SheetName, "A1", lastCol+"1", bold); err != nil {
		return err
	}

	for i := range events {
		e := &events[i]
		row := []interface{}{
			e.Title,
			e.Date.UTC().Format(dateLayout),
			e.Time,
			e.EndTime,
			yesNo(e.AllDay),
			e.Details,
			e.Location,
			recurrenceText(e.Recurrence),
			yesNo(e.Completed),
			e.PointsAwarded,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(SheetName, "A", "A", 30); err != nil {
		return err
	}
	_, err = f.WriteTo(w)
	return err
}

// ReadEvents parses the first sheet of r. The first row is a header; blank
// rows are skipped. Columns: title, date, time, end time, all day, details,
// location.
func ReadEvents(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}

	var out []Row
	for i, cells := range rows {
		if i == 0 || blank(cells) {
			continue
		}
		out = append(out, Row{
			Line:     i + 1,
			Title:    cell(cells, 0),
			Date:     normalizeDate(utils.NormalizeDigits(cell(cells, 1))),
			Time:     utils.NormalizeDigits(cell(cells, 2)),
			EndTime:  utils.NormalizeDigits(cell(cells, 3)),
			AllDay:   truthy(cell(cells, 4)),
			Details:  cell(cells, 5),
			Location: cell(cells, 6),
		})
	}
	return out, nil
}

func cell(cells []string, i int) string {
	if i >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[i])
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// normalizeDate accepts the spreadsheet's usual date renderings.
func normalizeDate(s string) string {
	for _, layout := range []string{dateLayout, "01-02-06", "1/2/2006", "2006/01/02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(dateLayout)
		}
	}
	return s
}

func truthy(s string) bool {
	switch strings.ToLower(s) {
	case "yes", "y", "true", "1", "x":
		return true
	}
	return false
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func recurrenceText(r models.Recurrence) string {
	if !r.IsSet() {
		return ""
	}
	s := fmt.Sprintf("%s every %d", r.Frequency, r.Interval)
	if r.Until != nil {
		s += " until " + r.Until.UTC().Format(dateLayout)
	}
	return s
}
