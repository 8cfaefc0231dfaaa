package services

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"sales-forecast-api/pkg/models"
)

//go:embed data/us_federal_holidays.csv
var defaultHolidayCSV []byte

// HolidayCalendar 祝日の集合。起動時に一度だけ読み込み、以降は読み取り専用。
type HolidayCalendar struct {
	holidays map[string]struct{}
}

// NewHolidayCalendar 指定された日付から祝日カレンダーを作成
func NewHolidayCalendar(dates ...time.Time) *HolidayCalendar {
	hc := &HolidayCalendar{holidays: make(map[string]struct{}, len(dates))}
	for _, d := range dates {
		hc.holidays[d.Format(models.DateLayout)] = struct{}{}
	}
	return hc
}

// LoadHolidayCalendar CSVファイルから祝日カレンダーを読み込みます。
// pathが空の場合は同梱の米国連邦祝日（2023〜2030年）を使用します。
func LoadHolidayCalendar(path string) (*HolidayCalendar, error) {
	if path == "" {
		return ParseHolidayCSV(bytes.NewReader(defaultHolidayCSV))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("祝日ファイルを開けません: %w", err)
	}
	defer f.Close()
	return ParseHolidayCSV(f)
}

// ParseHolidayCSV ヘッダー行付きCSVを解析します。日付は3列目 (yyyy/MM/dd)。
func ParseHolidayCSV(r io.Reader) (*HolidayCalendar, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return NewHolidayCalendar(), nil
		}
		return nil, fmt.Errorf("祝日CSVのヘッダー読み込みに失敗: %w", err)
	}

	hc := NewHolidayCalendar()
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("祝日CSVの読み込みに失敗 (行 %d): %w", line, err)
		}
		if len(record) < 3 {
			log.Printf("⚠️ [祝日] 行 %d: 列数が不足しているためスキップします", line)
			continue
		}
		date, err := time.Parse(models.DayKeyLayout, strings.TrimSpace(record[2]))
		if err != nil {
			log.Printf("⚠️ [祝日] 行 %d: 日付を解析できません (%s)", line, record[2])
			continue
		}
		hc.holidays[date.Format(models.DateLayout)] = struct{}{}
	}
	return hc, nil
}

// IsHoliday 祝日かどうか
func (hc *HolidayCalendar) IsHoliday(date time.Time) bool {
	if hc == nil {
		return false
	}
	_, ok := hc.holidays[date.Format(models.DateLayout)]
	return ok
}

// Len 登録されている祝日の数
func (hc *HolidayCalendar) Len() int {
	if hc == nil {
		return 0
	}
	return len(hc.holidays)
}

// IsWeekend 土曜または日曜
func IsWeekend(date time.Time) bool {
	wd := date.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// DayOfWeekIndex 月曜=0 〜 日曜=6
func DayOfWeekIndex(date time.Time) int {
	return (int(date.Weekday()) + 6) % 7
}
