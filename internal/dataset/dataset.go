// Package dataset loads the historical daily temperature corpus. The corpus is
// read once at startup and handed to callers as an ordered, read-only slice.
package dataset

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lox/tokyotemps/internal/models"
)

// ErrEmpty is returned when a source parses cleanly but holds no records.
var ErrEmpty = errors.New("dataset contains no records")

var dateLayouts = []string{"2006/1/2", "2006-01-02", "2006/01/02"}

// Load reads a corpus from a local path or an ftp:// URL. The format is picked
// from the extension: .csv is CSV, anything else is a JSON array.
func Load(ctx context.Context, src string) ([]models.DailyRecord, error) {
	var (
		body []byte
		err  error
		name = src
	)
	if u, perr := url.Parse(src); perr == nil && u.Scheme == "ftp" {
		body, err = fetchFTP(ctx, u)
		name = u.Path
	} else {
		body, err = os.ReadFile(src)
	}
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", src, err)
	}

	var records []models.DailyRecord
	if strings.EqualFold(filepath.Ext(name), ".csv") {
		records, err = ParseCSV(bytes.NewReader(body))
	} else {
		records, err = ParseJSON(bytes.NewReader(body))
	}
	if err != nil {
		return nil, fmt.Errorf("parse dataset %s: %w", src, err)
	}
	if len(records) == 0 {
		return nil, ErrEmpty
	}

	log.Printf("dataset: loaded %d records (%d-%d) from %s",
		len(records), records[0].Year, records[len(records)-1].Year, src)
	return records, nil
}

type jsonRecord struct {
	Date    string  `json:"date"`
	Year    int     `json:"year"`
	Month   int     `json:"month"`
	Day     int     `json:"day"`
	MaxTemp float64 `json:"max_temp"`
	MinTemp float64 `json:"min_temp"`
}

// ParseJSON decodes an array of {date, year, month, day, max_temp, min_temp}
// objects. When year/month/day are absent they are taken from date.
func ParseJSON(r io.Reader) ([]models.DailyRecord, error) {
	var raw []jsonRecord
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}

	records := make([]models.DailyRecord, 0, len(raw))
	for i, jr := range raw {
		rec, err := newRecord(jr.Date, jr.Year, jr.Month, jr.Day, jr.MaxTemp, jr.MinTemp)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		records = append(records, rec)
	}
	return normalize(records), nil
}

// ParseCSV reads a headered CSV with at least date, max_temp and min_temp
// columns. Rows with an empty temperature are skipped, matching how the
// upstream station export marks missing observations.
func ParseCSV(r io.Reader) ([]models.DailyRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"date", "max_temp", "min_temp"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}

	var records []models.DailyRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		field := func(name string) string {
			i := cols[name]
			if i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}
		maxStr, minStr := field("max_temp"), field("min_temp")
		if maxStr == "" || minStr == "" {
			continue
		}
		maxTemp, err := strconv.ParseFloat(maxStr, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: max_temp: %w", line, err)
		}
		minTemp, err := strconv.ParseFloat(minStr, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: min_temp: %w", line, err)
		}
		rec, err := newRecord(field("date"), 0, 0, 0, maxTemp, minTemp)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	return normalize(records), nil
}

func newRecord(date string, year, month, day int, maxTemp, minTemp float64) (models.DailyRecord, error) {
	rec := models.DailyRecord{Year: year, Month: month, Day: day, MaxTemp: maxTemp, MinTemp: minTemp}
	if date != "" {
		t, err := parseDate(date)
		if err != nil {
			return rec, err
		}
		rec.Date = t
		if rec.Year == 0 {
			rec.Year, rec.Month, rec.Day = t.Year(), int(t.Month()), t.Day()
		}
	} else if year != 0 {
		rec.Date = time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	} else {
		return rec, errors.New("record has neither date nor year")
	}
	return rec, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// normalize sorts by date and keeps the first record seen for each date.
func normalize(records []models.DailyRecord) []models.DailyRecord {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Date.Before(records[j].Date)
	})

	out := records[:0]
	var dupes int
	for i, r := range records {
		if i > 0 && r.Date.Equal(records[i-1].Date) {
			dupes++
			continue
		}
		out = append(out, r)
	}
	if dupes > 0 {
		log.Printf("dataset: dropped %d duplicate dates", dupes)
	}
	return out
}
