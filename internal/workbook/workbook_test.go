package workbook

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"astrosched/internal/model"
)

func TestTemplateRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates", "TimeScheduleConfig.xlsx")
	require.NoError(t, WriteTemplate(path))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, SampleConfig(), cfg)
}

func TestWriteReadKeepsNullDefault(t *testing.T) {
	want := model.DefaultScheduleConfig()
	want.ScheduleName = "No location"
	want.DefaultValue = nil
	want.Year = 2024
	want.Rules = []model.Rule{{TimeReference: model.Absolute, Hour: 7, Minute: 30, Value: model.IntPtr(0)}}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, want))

	got, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

// build writes a workbook with the given sheets; each sheet is a list of rows.
func build(t *testing.T, sheets map[string][][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for name, rows := range sheets {
		_, err := f.NewSheet(name)
		require.NoError(t, err)
		for i := range rows {
			require.NoError(t, f.SetSheetRow(name, cell("A", i+1), &rows[i]))
		}
	}
	require.NoError(t, f.DeleteSheet("Sheet1"))

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return &buf
}

func TestReadLooseCells(t *testing.T) {
	buf := build(t, map[string][][]interface{}{
		EntriesSheet: {
			{"Value", "minute", "Hour", "TimeReference", "Notes"},
			{"None", -45, 0, "sunriseoffset", "ignored"},
			{},
			{"", "", "", ""},
			{"", 0, 18, "Absolute"},
			{"NULL", 30, -1, "SunsetOffset"},
			{3.0, 15, 12, "ABSOLUTE"},
		},
		ConfigurationSheet: {
			{"ScheduleName", "Brisbane"},
			{"Latitude", -27.467778},
			{"Longitude", 153.028056},
			{"DefaultValue", 2},
			{"ReferenceYear", 2026},
			{"Colour", "blue"},
			{"", "orphan"},
		},
	})

	cfg, err := Read(buf)
	require.NoError(t, err)

	assert.Equal(t, "Brisbane", cfg.ScheduleName)
	assert.Equal(t, 2026, cfg.Year)
	assert.Equal(t, 2, *cfg.DefaultValue)
	require.True(t, cfg.HasLocation())
	assert.InDelta(t, 153.028056, *cfg.Longitude, 1e-9)
	assert.Equal(t, model.DefaultEBOVersion, cfg.EBOVersion)

	assert.Equal(t, []model.Rule{
		{TimeReference: model.SunriseOffset, Hour: 0, Minute: -45, Value: nil},
		{TimeReference: model.Absolute, Hour: 18, Minute: 0, Value: nil},
		{TimeReference: model.SunsetOffset, Hour: -1, Minute: 30, Value: nil},
		{TimeReference: model.Absolute, Hour: 12, Minute: 15, Value: model.IntPtr(3)},
	}, cfg.Rules)
}

func TestReadReferenceYearFallback(t *testing.T) {
	orig := now
	now = func() time.Time { return time.Date(2031, 5, 1, 0, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { now = orig })

	buf := build(t, map[string][][]interface{}{
		EntriesSheet:       {{"TimeReference", "Hour", "Minute", "Value"}},
		ConfigurationSheet: {{"ReferenceYear", "next year"}},
	})

	cfg, err := Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 2031, cfg.Year)
	assert.Empty(t, cfg.Rules)
}

func TestReadErrors(t *testing.T) {
	validConfig := [][]interface{}{{"ScheduleName", "x"}}
	header := []interface{}{"TimeReference", "Hour", "Minute", "Value"}

	testCases := []struct {
		name     string
		sheets   map[string][][]interface{}
		target   error
		contains string
	}{
		{
			name:   "Missing entries sheet",
			sheets: map[string][][]interface{}{ConfigurationSheet: validConfig},
			target: ErrMissingSheet, contains: `"Entries"`,
		},
		{
			name:   "Missing configuration sheet",
			sheets: map[string][][]interface{}{EntriesSheet: {header}},
			target: ErrMissingSheet, contains: `"Configuration"`,
		},
		{
			name: "Missing columns",
			sheets: map[string][][]interface{}{
				EntriesSheet:       {{"TimeReference", "Hour"}},
				ConfigurationSheet: validConfig,
			},
			target: ErrMissingColumn, contains: "Minute, Value",
		},
		{
			name: "Bad value",
			sheets: map[string][][]interface{}{
				EntriesSheet:       {header, {"Absolute", 1, 0, 1}, {"Absolute", 2, 0, "on"}},
				ConfigurationSheet: validConfig,
			},
			target: ErrBadCell, contains: "row 3 column Value",
		},
		{
			name: "Bad reference",
			sheets: map[string][][]interface{}{
				EntriesSheet:       {header, {"Noon", 1, 0, 1}},
				ConfigurationSheet: validConfig,
			},
			target: model.ErrInvalidRule, contains: "column TimeReference",
		},
		{
			name: "Fractional minute",
			sheets: map[string][][]interface{}{
				EntriesSheet:       {header, {"Absolute", 1, 0.5, 1}},
				ConfigurationSheet: validConfig,
			},
			target: ErrBadCell, contains: "column Minute",
		},
		{
			name: "Absolute out of range",
			sheets: map[string][][]interface{}{
				EntriesSheet:       {header, {"Absolute", 24, 0, 1}},
				ConfigurationSheet: validConfig,
			},
			target: model.ErrInvalidRule, contains: "row 2",
		},
		{
			name: "Bad latitude",
			sheets: map[string][][]interface{}{
				EntriesSheet:       {header},
				ConfigurationSheet: {{"Latitude", "north"}},
			},
			target: ErrBadCell, contains: "column Latitude",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Read(build(t, tc.sheets))
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.target)
			assert.Contains(t, err.Error(), tc.contains)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.xlsx"))
	assert.Error(t, err)
}
