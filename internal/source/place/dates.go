package place

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"tender_watch/internal/textutil"
)

// frenchMonths maps normalized month spellings, full and abbreviated,
// to month numbers. Keys are normalized with textutil.Key so accented
// and dotted variants ("déc.", "dec", "décembre") all land here.
var frenchMonths = map[string]time.Month{
	"janvier": time.January, "janv": time.January, "jan": time.January,
	"fevrier": time.February, "fevr": time.February, "fev": time.February,
	"mars": time.March, "mar": time.March,
	"avril": time.April, "avr": time.April,
	"mai":  time.May,
	"juin": time.June,
	"juillet": time.July, "juil": time.July,
	"aout": time.August, "aou": time.August,
	"septembre": time.September, "sept": time.September, "sep": time.September,
	"octobre": time.October, "oct": time.October,
	"novembre": time.November, "nov": time.November,
	"decembre": time.December, "dec": time.December,
}

var textualDateRe = regexp.MustCompile(`(\d{1,2})\s+(\p{L}+\.?)\s+(\d{4})`)

// ParseFrenchDate parses the date spellings the portal uses:
// "10/12/2025", "10 déc. 2025" and "10 décembre 2025".
func ParseFrenchDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	if d, err := time.Parse("02/01/2006", value); err == nil {
		return d, nil
	}

	m := textualDateRe.FindStringSubmatch(value)
	if m == nil {
		return time.Time{}, fmt.Errorf("unrecognized date %q", value)
	}

	day, err := strconv.Atoi(m[1])
	if err != nil || day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("bad day in %q", value)
	}
	month, ok := frenchMonths[textutil.Key(m[2])]
	if !ok {
		return time.Time{}, fmt.Errorf("unknown month %q", m[2])
	}
	year, err := strconv.Atoi(m[3])
	if err != nil {
		return time.Time{}, fmt.Errorf("bad year in %q", value)
	}

	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), nil
}
