package core

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	dutchMonths      = []string{"januari", "februari", "maart", "april", "mei", "juni", "juli", "augustus", "september", "oktober", "november", "december"}
	dutchShortMonths = []string{"jan", "feb", "mrt", "apr", "mei", "jun", "jul", "aug", "sep", "okt", "nov", "dec"}

	gvizDate = regexp.MustCompile(`^Date\((\d{4}),\s*(\d{1,2}),\s*(\d{1,2})`)

	dateLayouts = []string{
		"2006-01-02",
		time.RFC3339,
		"2006-01-02 15:04:05",
		"02-01-2006",
		"2-1-2006",
		"02/01/2006",
		"2/1/2006",
		"02-01-2006 15:04",
		"2-1-2006 15:04:05",
	}
)

// MonthLabel returns the period label of a month, e.g. "januari 2024".
func MonthLabel(year int, month time.Month) string {
	return fmt.Sprintf("%s %d", dutchMonths[month-1], year)
}

// ShortMonthName returns the abbreviated Dutch month name ("mrt").
func ShortMonthName(month time.Month) string {
	return dutchShortMonths[month-1]
}

// YearPeriods returns the twelve month labels of a year in calendar order.
func YearPeriods(year int) []string {
	out := make([]string, 0, 12)
	for m := time.January; m <= time.December; m++ {
		out = append(out, MonthLabel(year, m))
	}
	return out
}

// ParseDate reads the "Datum" column. It understands ISO dates, Dutch
// day-first dates, the gviz "Date(y,m,d)" literal (zero-based month) and
// spreadsheet serial day numbers.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if m := gvizDate.FindStringSubmatch(s); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		if mo < 0 || mo > 11 || d < 1 || d > 31 {
			return time.Time{}, false
		}
		return time.Date(y, time.Month(mo+1), d, 0, 0, 0, 0, time.UTC), true
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial >= 20000 && serial <= 80000 {
		base := time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)
		return base.AddDate(0, 0, int(serial)), true
	}
	return time.Time{}, false
}
