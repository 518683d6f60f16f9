package workbook

import (
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"astrosched/internal/model"
	"astrosched/internal/output"
)

// SampleConfig is the schedule written by WriteTemplate: lights on 45 minutes
// before sunrise, off at 08:00, on at sunset and off at 22:00.
func SampleConfig() model.ScheduleConfig {
	cfg := model.DefaultScheduleConfig()
	cfg.ScheduleName = "Office Light Schedule"
	cfg.Latitude = model.FloatPtr(-27.467778)
	cfg.Longitude = model.FloatPtr(153.028056)
	cfg.Rules = []model.Rule{
		{TimeReference: model.SunriseOffset, Hour: 0, Minute: -45, Value: model.IntPtr(1), Description: "On before sunrise"},
		{TimeReference: model.Absolute, Hour: 8, Minute: 0, Value: nil, Description: "Back to default"},
		{TimeReference: model.SunsetOffset, Hour: 0, Minute: 0, Value: model.IntPtr(1), Description: "On at sunset"},
		{TimeReference: model.Absolute, Hour: 22, Minute: 0, Value: nil, Description: "Back to default"},
	}
	return cfg
}

// WriteTemplate writes SampleConfig as a workbook to path.
func WriteTemplate(path string) error {
	return output.WriteFile(path, 0o644, func(w io.Writer) error {
		return Write(w, SampleConfig())
	})
}

// Write renders cfg as a workbook that Read accepts.
func Write(w io.Writer, cfg model.ScheduleConfig) error {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(EntriesSheet)
	if err != nil {
		return err
	}
	f.SetActiveSheet(idx)
	if _, err := f.NewSheet(ConfigurationSheet); err != nil {
		return err
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return err
	}

	// Entries
	header := []interface{}{colTimeReference, colHour, colMinute, colValue, colDescription}
	if err := f.SetSheetRow(EntriesSheet, "A1", &header); err != nil {
		return err
	}
	last, _ := excelize.ColumnNumberToName(len(header))
	if err := f.SetCellStyle(EntriesSheet, "A1", last+"1", headerStyle); err != nil {
		return err
	}
	f.SetColWidth(EntriesSheet, "A", "A", 16)
	f.SetColWidth(EntriesSheet, "B", "D", 9)
	f.SetColWidth(EntriesSheet, "E", "E", 28)

	for i, r := range cfg.Rules {
		value := interface{}("null")
		if r.Value != nil {
			value = *r.Value
		}
		row := []interface{}{string(r.TimeReference), r.Hour, r.Minute, value, r.Description}
		if err := f.SetSheetRow(EntriesSheet, cell("A", i+2), &row); err != nil {
			return err
		}
	}

	// Configuration
	settings := [][]interface{}{
		{keyScheduleName, cfg.ScheduleName},
		{keyLatitude, floatCell(cfg.Latitude)},
		{keyLongitude, floatCell(cfg.Longitude)},
		{keyScheduleType, cfg.ScheduleType},
		{keyDefaultValue, model.FormatValue(cfg.DefaultValue)},
		{keyReferenceYear, cfg.Year},
		{keyEBOVersion, cfg.EBOVersion},
	}
	for i, row := range settings {
		if err := f.SetSheetRow(ConfigurationSheet, cell("A", i+1), &row); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(ConfigurationSheet, "A1", cell("A", len(settings)), headerStyle); err != nil {
		return err
	}
	f.SetColWidth(ConfigurationSheet, "A", "A", 16)
	f.SetColWidth(ConfigurationSheet, "B", "B", 24)

	return f.Write(w)
}

func floatCell(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
