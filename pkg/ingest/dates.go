package ingest

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/vaultops/vault-audit-engine/pkg/models"
)

// displayLayout is the presentation form of the created-at timestamp.
const displayLayout = "01/02/06 15:04:05"

var (
	amPmPattern = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})\s+(\d{2}):(\d{2})\s+(AM|PM)\s+(\w+)`)
	datePattern = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})`)
)

// parseCreatedAt interprets the raw created-at cell. It tries, in order: an
// Excel serial number (a natively date-formatted cell read raw), a
// "YYYY-MM-DD HH:MM AM/PM TZ" string, and a bare "YYYY-MM-DD" prefix. On any
// failure it falls back to today's date with the raw text as the display
// string. The fallback is silent on purpose: dwell-time tracking then anchors
// to ingest time instead of document time.
func parseCreatedAt(raw string, today time.Time) (display string, date time.Time, parsed bool) {
	if raw == "" {
		return "", models.DateOnly(today), false
	}

	if serial, err := strconv.ParseFloat(raw, 64); err == nil {
		if dt, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return dt.Format(displayLayout), models.DateOnly(dt), true
		}
	}

	if m := amPmPattern.FindStringSubmatch(raw); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		hour, _ := strconv.Atoi(m[4])
		minute, _ := strconv.Atoi(m[5])

		switch {
		case m[6] == "PM" && hour != 12:
			hour += 12
		case m[6] == "AM" && hour == 12:
			hour = 0
		}

		dt := time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.UTC)
		return fmt.Sprintf("%s %s", dt.Format(displayLayout), m[7]), models.DateOnly(dt), true
	}

	if m := datePattern.FindStringSubmatch(raw); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])

		dt := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		return dt.Format(displayLayout), dt, true
	}

	return raw, models.DateOnly(today), false
}
