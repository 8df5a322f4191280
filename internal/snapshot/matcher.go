package snapshot

import (
	"fmt"
	"regexp"
	"time"

	"invcli/internal/errs"
)

// DateLayout is the snapshot date format captured from filenames and
// used everywhere dates are rendered.
const DateLayout = "2006-01-02"

// Reference identifies one remotely listed snapshot file and the date
// extracted from its name.
type Reference struct {
	Name     string
	Date     time.Time
	RemoteID string
}

// Matcher classifies candidate filenames against a date-capturing
// pattern and extracts the snapshot date.
type Matcher struct {
	re *regexp.Regexp
}

// NewMatcher compiles pattern, which must contain exactly one capture
// group yielding a YYYY-MM-DD substring.
func NewMatcher(pattern string) (*Matcher, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid file pattern %q: %w", pattern, err)
	}
	if n := re.NumSubexp(); n != 1 {
		return nil, fmt.Errorf("file pattern %q must contain exactly one capture group, found %d", pattern, n)
	}
	return &Matcher{re: re}, nil
}

// Match classifies name. matched=false means the file is simply not a
// snapshot and is excluded without error. A name that matches the
// pattern but whose captured substring is not a valid calendar date
// returns a DateParseError: that is a misconfigured pattern or a
// look-alike filename, never something to ignore silently.
func (m *Matcher) Match(name string) (date time.Time, matched bool, err error) {
	groups := m.re.FindStringSubmatch(name)
	if groups == nil {
		return time.Time{}, false, nil
	}

	captured := groups[1]
	date, perr := time.Parse(DateLayout, captured)
	if perr != nil {
		return time.Time{}, false, &errs.DateParseError{File: name, Captured: captured, Err: perr}
	}
	return date, true, nil
}
