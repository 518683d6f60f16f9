// Package workbook reads schedule definitions from .xlsx spreadsheets and
// writes the sample template users start from.
//
// A workbook has two sheets. "Entries" has a header row naming at least
// TimeReference, Hour, Minute and Value (column order is free, Description is
// optional). "Configuration" holds key/value pairs in columns A and B.
package workbook

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	appLog "astrosched/internal/log"
	"astrosched/internal/model"
)

const (
	EntriesSheet       = "Entries"
	ConfigurationSheet = "Configuration"
)

var (
	ErrMissingSheet  = errors.New("workbook sheet not found")
	ErrMissingColumn = errors.New("workbook column missing")
	ErrBadCell       = errors.New("workbook cell invalid")
)

const (
	colTimeReference = "TimeReference"
	colHour          = "Hour"
	colMinute        = "Minute"
	colValue         = "Value"
	colDescription   = "Description"
)

var (
	requiredColumns = []string{colTimeReference, colHour, colMinute, colValue}
	knownColumns    = []string{colTimeReference, colHour, colMinute, colValue, colDescription}
)

// Configuration keys.
const (
	keyLatitude      = "Latitude"
	keyLongitude     = "Longitude"
	keyScheduleType  = "ScheduleType"
	keyDefaultValue  = "DefaultValue"
	keyReferenceYear = "ReferenceYear"
	keyEBOVersion    = "EBOVersion"
	keyScheduleName  = "ScheduleName"
)

// now is replaced in tests.
var now = time.Now

// Load reads the workbook at path.
func Load(path string) (model.ScheduleConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.ScheduleConfig{}, err
	}
	defer f.Close()

	cfg, err := Read(f)
	if err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Read parses a workbook from r. Settings absent from the Configuration sheet
// keep the values of model.DefaultScheduleConfig.
func Read(r io.Reader) (model.ScheduleConfig, error) {
	cfg := model.DefaultScheduleConfig()

	f, err := excelize.OpenReader(r)
	if err != nil {
		return cfg, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	if err := readEntries(f, &cfg); err != nil {
		return cfg, err
	}
	if err := readConfiguration(f, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func hasSheet(f *excelize.File, name string) bool {
	idx, err := f.GetSheetIndex(name)
	return err == nil && idx >= 0
}

func readEntries(f *excelize.File, cfg *model.ScheduleConfig) error {
	if !hasSheet(f, EntriesSheet) {
		return fmt.Errorf("%w: %q", ErrMissingSheet, EntriesSheet)
	}
	rows, err := f.GetRows(EntriesSheet)
	if err != nil {
		return fmt.Errorf("read sheet %q: %w", EntriesSheet, err)
	}

	var header []string
	if len(rows) > 0 {
		header = rows[0]
	}
	index := headerIndex(header)
	var missing []string
	for _, c := range requiredColumns {
		if _, ok := index[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: sheet %q lacks %s", ErrMissingColumn, EntriesSheet, strings.Join(missing, ", "))
	}

	cell := func(row []string, col string) string {
		idx, ok := index[col]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	for i := 1; i < len(rows); i++ {
		row := rows[i]
		rowNum := i + 1
		if isBlank(row) {
			continue
		}

		ref, err := model.ParseTimeReference(cell(row, colTimeReference))
		if err != nil {
			return cellError(EntriesSheet, rowNum, colTimeReference, err)
		}
		hour, err := parseWhole(cell(row, colHour))
		if err != nil {
			return cellError(EntriesSheet, rowNum, colHour, err)
		}
		minute, err := parseWhole(cell(row, colMinute))
		if err != nil {
			return cellError(EntriesSheet, rowNum, colMinute, err)
		}
		value, err := model.ParseValue(cell(row, colValue))
		if err != nil {
			return cellError(EntriesSheet, rowNum, colValue, err)
		}
		if err := cfg.AddRule(ref, hour, minute, value); err != nil {
			return fmt.Errorf("sheet %q row %d: %w", EntriesSheet, rowNum, err)
		}
		cfg.Rules[len(cfg.Rules)-1].Description = cell(row, colDescription)
	}
	return nil
}

func readConfiguration(f *excelize.File, cfg *model.ScheduleConfig) error {
	if !hasSheet(f, ConfigurationSheet) {
		return fmt.Errorf("%w: %q", ErrMissingSheet, ConfigurationSheet)
	}
	rows, err := f.GetRows(ConfigurationSheet)
	if err != nil {
		return fmt.Errorf("read sheet %q: %w", ConfigurationSheet, err)
	}

	for i, row := range rows {
		rowNum := i + 1
		if len(row) == 0 {
			continue
		}
		key := strings.TrimSpace(row[0])
		if key == "" {
			continue
		}
		val := ""
		if len(row) > 1 {
			val = strings.TrimSpace(row[1])
		}

		switch key {
		case keyLatitude, keyLongitude:
			var p *float64
			if val != "" {
				v, err := strconv.ParseFloat(val, 64)
				if err != nil {
					return cellError(ConfigurationSheet, rowNum, key, err)
				}
				p = &v
			}
			if key == keyLatitude {
				cfg.Latitude = p
			} else {
				cfg.Longitude = p
			}
		case keyScheduleType:
			if val != "" {
				cfg.ScheduleType = val
			}
		case keyDefaultValue:
			v, err := model.ParseValue(val)
			if err != nil {
				return cellError(ConfigurationSheet, rowNum, key, err)
			}
			cfg.DefaultValue = v
		case keyReferenceYear:
			year, err := parseWhole(val)
			if err != nil || year < 1 || year > 9999 {
				year = now().Year()
				appLog.Warn("unparsable ReferenceYear; using current year",
					"value", val, "year", year)
			}
			cfg.Year = year
		case keyEBOVersion:
			if val != "" {
				cfg.EBOVersion = val
			}
		case keyScheduleName:
			if val != "" {
				cfg.ScheduleName = val
			}
		default:
			appLog.Debug("ignoring unknown configuration key", "key", key, "row", rowNum)
		}
	}
	return nil
}

func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		for _, c := range knownColumns {
			if strings.EqualFold(h, c) {
				if _, seen := idx[c]; !seen {
					idx[c] = i
				}
			}
		}
	}
	return idx
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// parseWhole accepts integers and whole floats such as "-1" or "30.0".
func parseWhole(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return 0, fmt.Errorf("%q is not a whole number", s)
	}
	return int(f), nil
}

func cellError(sheet string, row int, col string, err error) error {
	return fmt.Errorf("%w: sheet %q row %d column %s: %w", ErrBadCell, sheet, row, col, err)
}
