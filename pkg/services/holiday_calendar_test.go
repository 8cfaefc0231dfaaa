package services

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestDefaultHolidayCalendar(t *testing.T) {
	hc, err := LoadHolidayCalendar("")
	require.NoError(t, err)

	assert.Equal(t, 8*11, hc.Len())
	assert.True(t, hc.IsHoliday(date("2025-07-04")))
	assert.True(t, hc.IsHoliday(date("2025-12-25")))
	assert.True(t, hc.IsHoliday(date("2030-11-28")))
	assert.False(t, hc.IsHoliday(date("2025-07-05")))
}

func TestParseHolidayCSV(t *testing.T) {
	csvData := "Year,Holiday,Date\n" +
		"2025,Independence Day,2025/07/04\n" +
		"2025,broken row\n" +
		"2025,Bad Date,07-04-2025\n" +
		"2025,Christmas Day, 2025/12/25 \n"

	hc, err := ParseHolidayCSV(strings.NewReader(csvData))
	require.NoError(t, err)

	assert.Equal(t, 2, hc.Len())
	assert.True(t, hc.IsHoliday(date("2025-07-04")))
	assert.True(t, hc.IsHoliday(date("2025-12-25")))
}

func TestLoadHolidayCalendarFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "holidays.csv")
	require.NoError(t, os.WriteFile(path, []byte("Year,Holiday,Date\n2026,Founders Day,2026/03/03\n"), 0o644))

	hc, err := LoadHolidayCalendar(path)
	require.NoError(t, err)
	assert.True(t, hc.IsHoliday(date("2026-03-03")))

	_, err = LoadHolidayCalendar(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestNilHolidayCalendar(t *testing.T) {
	var hc *HolidayCalendar
	assert.False(t, hc.IsHoliday(date("2025-07-04")))
	assert.Equal(t, 0, hc.Len())
}

func TestWeekendAndDayOfWeek(t *testing.T) {
	testCases := []struct {
		day       string
		weekend   bool
		dayOfWeek int
	}{
		{"2025-06-02", false, 0}, // 月
		{"2025-06-06", false, 4}, // 金
		{"2025-06-07", true, 5},  // 土
		{"2025-06-08", true, 6},  // 日
	}

	for _, tc := range testCases {
		t.Run(tc.day, func(t *testing.T) {
			assert.Equal(t, tc.weekend, IsWeekend(date(tc.day)))
			assert.Equal(t, tc.dayOfWeek, DayOfWeekIndex(date(tc.day)))
		})
	}
}
