package kvdoc

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sosodev/duration"
	"github.com/vjeantet/jodaTime"
)

// DefaultDateTimeLayout is used by TypeDateTime criteria without a pattern.
const DefaultDateTimeLayout = time.RFC3339

var goLayoutMarkers = []string{"2006", "15:04", "Jan", "Mon", "MST", "-0700", "Z07"}

// words that a layout-based parser reads as fields even inside literal text
var layoutWords = []string{"Jan", "Mon", "MST", "PM", "pm"}

// dateTimeFormat parses date-time values for one criterion pattern.
type dateTimeFormat struct {
	pattern string
	joda    bool
}

// compileDateTimePattern validates pattern. Patterns that already look like
// Go layouts (they mention 2006, Jan, 15:04 and so on) are used with
// time.Parse. Anything else is a Joda-style pattern such as
// "dd.MM.yyyy HH:mm". Literal text in a Joda pattern must not contain digits
// or month, weekday or zone names, since the parser would take them for
// fields.
func compileDateTimePattern(pattern string) (dateTimeFormat, error) {
	if pattern == "" {
		return dateTimeFormat{pattern: DefaultDateTimeLayout}, nil
	}
	bare := unquoted(pattern)
	for _, m := range goLayoutMarkers {
		if strings.Contains(bare, m) {
			return dateTimeFormat{pattern: pattern}, nil
		}
	}
	if err := checkPatternLiterals(pattern); err != nil {
		return dateTimeFormat{}, fmt.Errorf("date-time pattern %q: %w", pattern, err)
	}
	return dateTimeFormat{pattern: pattern, joda: true}, nil
}

func (f dateTimeFormat) parse(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if f.joda {
		return jodaTime.Parse(f.pattern, s)
	}
	return time.Parse(f.pattern, s)
}

// ParseDateTime parses value according to a Go layout or a Joda-style
// pattern. An empty pattern means DefaultDateTimeLayout.
func ParseDateTime(pattern, value string) (time.Time, error) {
	f, err := compileDateTimePattern(pattern)
	if err != nil {
		return time.Time{}, err
	}
	return f.parse(value)
}

// unquoted drops the quoted literals of a Joda-style pattern.
func unquoted(pattern string) string {
	var buf strings.Builder
	for i, part := range strings.Split(pattern, "'") {
		if i%2 == 0 {
			buf.WriteString(part)
		}
	}
	return buf.String()
}

func checkPatternLiterals(pattern string) error {
	quoted := false
	var lit strings.Builder
	for i := 0; i < len(pattern); i++ {
		ch := pattern[i]
		switch {
		case ch == '\'':
			if quoted {
				if err := checkLiteral(lit.String()); err != nil {
					return err
				}
				lit.Reset()
			}
			quoted = !quoted
		case quoted:
			lit.WriteByte(ch)
		case ch >= '0' && ch <= '9':
			return fmt.Errorf("digit %q outside quotes", ch)
		}
	}
	if quoted {
		return errors.New("unterminated quote")
	}
	return nil
}

func checkLiteral(s string) error {
	if strings.ContainsAny(s, "0123456789") {
		return fmt.Errorf("literal %q contains digits", s)
	}
	for _, w := range layoutWords {
		if strings.Contains(s, w) {
			return fmt.Errorf("literal %q contains %q", s, w)
		}
	}
	return nil
}

// ParseDuration accepts both Go durations ("1h30m") and ISO-8601 durations
// with week, day and time parts ("P1DT2H", "PT0.5S", "-PT15M"). A day is
// 24 hours. Years and months have no fixed length and are rejected.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}

	iso := strings.ToUpper(strings.Replace(s, ",", ".", 1))
	neg := false
	if rest, ok := strings.CutPrefix(iso, "-"); ok {
		neg, iso = true, rest
	} else {
		iso = strings.TrimPrefix(iso, "+")
	}
	if len(iso) < 2 || !strings.ContainsAny(iso[len(iso)-1:], "WDHMS") {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	pd, err := duration.Parse(iso)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if pd.Years != 0 || pd.Months != 0 {
		return 0, fmt.Errorf("invalid duration %q: years and months have no fixed length", s)
	}
	d := pd.ToTimeDuration()
	if neg {
		d = -d
	}
	return d, nil
}
