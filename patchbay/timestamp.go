package patchbay

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// SecToStamp formats a number of seconds as m:ss. Values that are not a
// usable duration (NaN, infinite, negative) render as 0:00.
func SecToStamp(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return "0:00"
	}
	total := int(seconds)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// StampToSec parses an m:ss timestamp back into seconds.
func StampToSec(stamp string) (int, error) {
	parts := strings.Split(strings.TrimSpace(stamp), ":")
	if len(parts) != 2 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedStamp, stamp)
	}
	min, err := strconv.Atoi(parts[0])
	if err != nil || min < 0 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedStamp, stamp)
	}
	sec, err := strconv.Atoi(parts[1])
	if err != nil || sec < 0 || sec > 59 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedStamp, stamp)
	}
	return min*60 + sec, nil
}
