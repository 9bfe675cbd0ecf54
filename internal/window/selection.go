package window

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/estimatelens/estimatelens/pkg/types"
)

// Selection is either a named window or an arbitrary look-back duration.
type Selection struct {
	Named Window
	Since time.Duration
	// Custom is true when Since applies instead of Named.
	Custom bool
}

// Named returns a Selection for w.
func Named(w Window) Selection { return Selection{Named: w} }

// Select resolves request parameters. since wins over name when both are
// set; with neither, def is used. since accepts Go durations plus a whole
// number of days ("14d").
func Select(name, since string, def Window) (Selection, error) {
	if since = strings.TrimSpace(since); since != "" {
		d, err := ParseSince(since)
		if err != nil {
			return Selection{}, err
		}
		return Selection{Since: d, Custom: true}, nil
	}
	if strings.TrimSpace(name) == "" {
		return Named(def), nil
	}
	w, err := Parse(name)
	if err != nil {
		return Selection{}, err
	}
	return Named(w), nil
}

// maxSinceDays is the largest day count a time.Duration can hold.
const maxSinceDays = int64(math.MaxInt64 / int64(day))

// ParseSince parses a non-negative look-back duration.
func ParseSince(s string) (time.Duration, error) {
	var d time.Duration
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.ParseInt(days, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("window: since %q: %w", s, ErrInvalidArgument)
		}
		if n < 0 {
			return 0, fmt.Errorf("window: negative since %q: %w", s, ErrInvalidArgument)
		}
		if n > maxSinceDays {
			return 0, fmt.Errorf("window: since %q exceeds %d days: %w", s, maxSinceDays, ErrInvalidArgument)
		}
		d = time.Duration(n) * day
	} else {
		var err error
		d, err = time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("window: since %q: %w", s, ErrInvalidArgument)
		}
	}
	if d < 0 {
		return 0, fmt.Errorf("window: negative since %q: %w", s, ErrInvalidArgument)
	}
	return d, nil
}

// Label names the selection in responses: the window name or the duration.
func (s Selection) Label() string {
	if s.Custom {
		return s.Since.String()
	}
	return s.Named.String()
}

// Apply filters records by the selection as of now.
func (s Selection) Apply(records []types.Record, now time.Time) ([]types.Record, error) {
	if s.Custom {
		return FilterDuration(records, s.Since, now)
	}
	return Filter(records, s.Named, now)
}
