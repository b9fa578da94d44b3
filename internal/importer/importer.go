// Package importer turns an uploaded customer spreadsheet into validated
// records and commits them to storage.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/jmehdipour/visa-crm/internal/metrics"
	"github.com/jmehdipour/visa-crm/internal/model"
	"github.com/jmehdipour/visa-crm/internal/util"
)

var ErrMissingColumns = errors.New("missing columns")

// MissingColumnsError names the expected header columns that were not found.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return "missing columns: " + strings.Join(e.Columns, ", ")
}

func (e *MissingColumnsError) Unwrap() error { return ErrMissingColumns }

const (
	colName   = "Customer Name"
	colVisa   = "Visa Type"
	colExpiry = "Visa expiry date"
	colCC     = "CC"
	colPhone  = "phone"
)

var expectedColumns = []string{colName, colVisa, colExpiry, colCC, colPhone}

// textual layouts, tried in order; the first match wins
var dateLayouts = []string{
	"2006-1-2",
	"1/2/2006",
	"1/2/06",
	"2/1/2006",
	"2/1/06",
	"2-1-2006",
	"1-2-2006",
}

// Preview is the outcome of parsing a spreadsheet without touching storage.
type Preview struct {
	DataToPreview []model.ImportRecord `json:"data_to_preview"`
	Errors        []string             `json:"errors"`
}

// Parse reads the first sheet of an xlsx workbook. today is the business
// calendar date; expiries on or before it are rejected per row. A missing
// header column fails the whole file with ErrMissingColumns.
func Parse(r io.Reader, today time.Time) (Preview, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Preview{}, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Preview{}, errors.New("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return Preview{}, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) == 0 {
		return Preview{}, &MissingColumnsError{Columns: expectedColumns}
	}

	idx, missing := mapHeader(rows[0])
	if len(missing) > 0 {
		return Preview{}, &MissingColumnsError{Columns: missing}
	}

	todayDate := truncateDay(today)
	p := Preview{DataToPreview: []model.ImportRecord{}, Errors: []string{}}

	for i := 1; i < len(rows); i++ {
		rowNum := i + 1
		row := rows[i]
		cell := func(col string) string {
			j := idx[col]
			if j >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[j])
		}

		name := cell(colName)
		if name == "" {
			// blank rows and rows without a name are ignored
			continue
		}
		vtype := cell(colVisa)
		if vtype == "" {
			p.Errors = append(p.Errors, fmt.Sprintf("Row %d ('%s'): Missing Visa Type", rowNum, name))
			continue
		}
		rawExpiry := cell(colExpiry)
		if rawExpiry == "" {
			p.Errors = append(p.Errors, fmt.Sprintf("Row %d ('%s'): Missing Visa expiry date", rowNum, name))
			continue
		}
		expiry, err := ParseDate(rawExpiry)
		if err != nil {
			p.Errors = append(p.Errors, fmt.Sprintf("Row %d: Bad date format '%s'", rowNum, rawExpiry))
			continue
		}
		if !expiry.After(todayDate) {
			p.Errors = append(p.Errors, fmt.Sprintf("Row %d ('%s'): Expiry date '%s' is not in the future",
				rowNum, name, expiry.Format(model.DateLayout)))
			continue
		}

		p.DataToPreview = append(p.DataToPreview, model.ImportRecord{
			CustomerName: name,
			VisaType:     vtype,
			ExpiryDate:   expiry.Format(model.DateLayout),
			CountryCode:  model.StrPtr(numericText(cell(colCC))),
			PhoneNumber:  model.StrPtr(util.DigitsOnly(numericText(cell(colPhone)))),
		})
	}

	return p, nil
}

// mapHeader matches expected columns case-insensitively after trimming.
func mapHeader(header []string) (map[string]int, []string) {
	idx := make(map[string]int, len(expectedColumns))
	for j, h := range header {
		h = strings.TrimSpace(h)
		for _, want := range expectedColumns {
			if _, seen := idx[want]; !seen && strings.EqualFold(h, want) {
				idx[want] = j
			}
		}
	}

	var missing []string
	for _, want := range expectedColumns {
		if _, ok := idx[want]; !ok {
			missing = append(missing, want)
		}
	}
	return idx, missing
}

// ParseDate accepts an Excel serial date (years 1950-2100) or one of the
// textual layouts; anything after the first space is ignored.
func ParseDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if i := strings.IndexByte(s, ' '); i >= 0 {
		s = s[:i]
	}
	if s == "" {
		return time.Time{}, errors.New("empty date")
	}

	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}

	serial, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
	}
	if serial < 1 {
		return time.Time{}, fmt.Errorf("bad date number %v", serial)
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return time.Time{}, err
	}
	if t.Year() < 1950 || t.Year() > 2100 {
		return time.Time{}, fmt.Errorf("year %d out of range", t.Year())
	}
	return truncateDay(t), nil
}

// numericText renders integral numbers without a fractional part, so a
// numeric cell holding 971 does not become "971.0".
func numericText(s string) string {
	if s == "" || s[0] < '0' || s[0] > '9' {
		return s
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int64(f)) {
		return s
	}
	return strconv.FormatInt(int64(f), 10)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CustomerWriter is the storage the commit step needs.
type CustomerWriter interface {
	InsertIgnoreDuplicate(ctx context.Context, c model.Customer) (bool, error)
}

// CommitResult counts what Commit did with the submitted records.
type CommitResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// Commit inserts records one by one. Duplicates and records that fail to
// insert are counted as skipped; only a cancelled ctx aborts the loop.
func Commit(ctx context.Context, w CustomerWriter, records []model.ImportRecord, log *zap.Logger) (CommitResult, error) {
	if log == nil {
		log = zap.NewNop()
	}

	var res CommitResult
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		expiry, err := util.ParseDate(rec.ExpiryDate)
		if err != nil || strings.TrimSpace(rec.CustomerName) == "" || strings.TrimSpace(rec.VisaType) == "" {
			metrics.CustomersImportedTotal.WithLabelValues("invalid").Inc()
			log.Warn("import record rejected", zap.Int("index", i), zap.String("customer", rec.CustomerName))
			res.Skipped++
			continue
		}

		inserted, err := w.InsertIgnoreDuplicate(ctx, model.Customer{
			CustomerName:   strings.TrimSpace(rec.CustomerName),
			VisaType:       strings.TrimSpace(rec.VisaType),
			VisaExpiryDate: expiry,
			CountryCode:    derefTrim(rec.CountryCode),
			PhoneNumber:    derefTrim(rec.PhoneNumber),
		})
		if err != nil {
			metrics.CustomersImportedTotal.WithLabelValues("error").Inc()
			log.Error("import insert failed", zap.Int("index", i), zap.String("customer", rec.CustomerName), zap.Error(err))
			res.Skipped++
			continue
		}
		if !inserted {
			metrics.CustomersImportedTotal.WithLabelValues("duplicate").Inc()
			log.Debug("import duplicate skipped", zap.String("customer", rec.CustomerName), zap.String("expiry", rec.ExpiryDate))
			res.Skipped++
			continue
		}
		metrics.CustomersImportedTotal.WithLabelValues("imported").Inc()
		res.Imported++
	}

	log.Info("import committed", zap.Int("imported", res.Imported), zap.Int("skipped", res.Skipped))
	return res, nil
}

func derefTrim(s *string) *string {
	if s == nil {
		return nil
	}
	return model.StrPtr(*s)
}
