package audit

import (
	"fmt"
	"math"
)

// Score converts the performance fraction of r into a whole percentage,
// rounding halves up.
func Score(r *Result) (int, error) {
	if r == nil || r.Score == nil {
		url := ""
		if r != nil {
			url = r.URL
		}
		return 0, fmt.Errorf("%w: no performance score for %q", ErrMalformedResult, url)
	}
	return int(math.Floor(*r.Score*100 + 0.5)), nil
}
