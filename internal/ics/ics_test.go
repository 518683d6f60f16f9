package ics

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"astrosched/internal/model"
)

func sampleEvents() []model.DayEvent {
	return []model.DayEvent{
		{
			Name: "06-21", DayOfMonth: 21, Month: 6,
			Entries: []model.ResolvedEntry{
				{Hour: 6, Minute: 33, Value: model.IntPtr(1)},
				{Hour: 17, Minute: 3, Value: nil},
			},
		},
		{
			Name: "06-22", DayOfMonth: 22, Month: 6,
			Entries: []model.ResolvedEntry{
				{Hour: 0, Minute: 0, Value: model.IntPtr(0)},
			},
		},
	}
}

func TestEncodeFloatingTimes(t *testing.T) {
	cal := NewCalendar("Office Lights")
	require.NoError(t, cal.Add("Office Lights", 2025, sampleEvents()))

	var buf bytes.Buffer
	require.NoError(t, cal.Encode(&buf))
	out := buf.String()

	assert.Contains(t, out, "BEGIN:VCALENDAR")
	assert.Contains(t, out, "X-WR-CALNAME:Office Lights")
	assert.Contains(t, out, "UID:office_lights-06-21-1")
	assert.Contains(t, out, "UID:office_lights-06-21-2")
	assert.Contains(t, out, "DTSTART:20250621T063300\r\n")
	assert.Contains(t, out, "DTSTART:20250621T170300\r\n")
	assert.Contains(t, out, "SUMMARY:Office Lights = 1")
	assert.Contains(t, out, "SUMMARY:Office Lights = default")
	assert.Contains(t, out, "SUMMARY:Office Lights = 0")
	assert.Equal(t, 3, strings.Count(out, "BEGIN:VEVENT"))
}

func TestEncodeUsesCRLFLineEndings(t *testing.T) {
	cal := NewCalendar("Office Lights")
	require.NoError(t, cal.Add("Office Lights", 2025, sampleEvents()))

	var buf bytes.Buffer
	require.NoError(t, cal.Encode(&buf))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "BEGIN:VCALENDAR\r\n"))
	assert.True(t, strings.HasSuffix(out, "END:VCALENDAR\r\n"))
	assert.Equal(t, strings.Count(out, "\n"), strings.Count(out, "\r\n"))
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cal := NewCalendar("Sites")
	require.NoError(t, cal.Add("Brisbane", 2025, sampleEvents()))
	require.NoError(t, cal.Add("Berlin", 2024, []model.DayEvent{{
		Name: "02-29", DayOfMonth: 29, Month: 2,
		Entries: []model.ResolvedEntry{{Hour: 23, Minute: 59, Value: model.IntPtr(4)}},
	}}))
	assert.Equal(t, 4, cal.Len())

	var buf bytes.Buffer
	require.NoError(t, cal.Encode(&buf))

	days, err := Decode(&buf)
	require.NoError(t, err)

	want := []Day{
		{
			Schedule: "Brisbane",
			Date:     time.Date(2025, 6, 21, 0, 0, 0, 0, time.UTC),
			Entries:  sampleEvents()[0].Entries,
		},
		{
			Schedule: "Brisbane",
			Date:     time.Date(2025, 6, 22, 0, 0, 0, 0, time.UTC),
			Entries:  sampleEvents()[1].Entries,
		},
		{
			Schedule: "Berlin",
			Date:     time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
			Entries:  []model.ResolvedEntry{{Hour: 23, Minute: 59, Value: model.IntPtr(4)}},
		},
	}
	if diff := cmp.Diff(want, days); diff != "" {
		t.Fatalf("decoded days mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "02-29", days[2].Name())
}

func TestAddRejectsDateOutsideYear(t *testing.T) {
	cal := NewCalendar("")
	err := cal.Add("S", 2025, []model.DayEvent{{Name: "02-29", DayOfMonth: 29, Month: 2,
		Entries: []model.ResolvedEntry{{Hour: 1}}}})
	assert.Error(t, err)
}

func TestDecodeSkipsForeignEvents(t *testing.T) {
	const payload = "BEGIN:VCALENDAR\r\n" +
		"VERSION:2.0\r\n" +
		"PRODID:-//test//EN\r\n" +
		"BEGIN:VEVENT\r\n" +
		"UID:meeting-1\r\n" +
		"DTSTAMP:20250101T000000Z\r\n" +
		"DTSTART:20250301T090000Z\r\n" +
		"SUMMARY:Weekly sync\r\n" +
		"END:VEVENT\r\n" +
		"BEGIN:VEVENT\r\n" +
		"UID:s-03-01-2\r\n" +
		"DTSTAMP:20250101T000000Z\r\n" +
		"DTSTART:20250301T183000\r\n" +
		"SUMMARY:S = default\r\n" +
		"END:VEVENT\r\n" +
		"BEGIN:VEVENT\r\n" +
		"UID:s-03-01-1\r\n" +
		"DTSTAMP:20250101T000000Z\r\n" +
		"DTSTART:20250301T061500\r\n" +
		"SUMMARY:S = 2\r\n" +
		"END:VEVENT\r\n" +
		"BEGIN:VEVENT\r\n" +
		"UID:s-03-02-1\r\n" +
		"DTSTAMP:20250101T000000Z\r\n" +
		"DTSTART:20250302T061500\r\n" +
		"SUMMARY:S = bright\r\n" +
		"END:VEVENT\r\n" +
		"END:VCALENDAR\r\n"

	days, err := Decode(strings.NewReader(payload))
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, "S", days[0].Schedule)
	assert.Equal(t, "03-01", days[0].Name())
	assert.Equal(t, []model.ResolvedEntry{
		{Hour: 6, Minute: 15, Value: model.IntPtr(2)},
		{Hour: 18, Minute: 30, Value: nil},
	}, days[0].Entries)
}

func TestSummaryAndUID(t *testing.T) {
	assert.Equal(t, "Pump = 3", Summary("Pump", model.IntPtr(3)))
	assert.Equal(t, "Pump = default", Summary("Pump", nil))
	assert.Equal(t, "east_wing_2-12-31-4", UID("East Wing/2", "12-31", 4))
}
