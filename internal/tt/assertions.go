package tt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// AssertBarrier asserts that every span in before ended no later than every
// span in after started.
func AssertBarrier(t *testing.T, spans *SpanRecorder, before, after []string) {
	t.Helper()
	for _, b := range before {
		bs, ok := spans.Get(b)
		if !assert.True(t, ok, "span %q not recorded", b) {
			continue
		}
		for _, a := range after {
			as, ok := spans.Get(a)
			if !assert.True(t, ok, "span %q not recorded", a) {
				continue
			}
			assert.False(t, as.Start.Before(bs.End),
				"span %q started at %v before %q ended at %v", a, as.Start, b, bs.End)
		}
	}
}

// AssertDisjoint asserts that no two recorded spans overlap.
func AssertDisjoint(t *testing.T, spans *SpanRecorder) {
	t.Helper()
	all := spans.Spans()
	for i := range all {
		for j := i + 1; j < len(all); j++ {
			x, y := all[i], all[j]
			overlap := x.Start.Before(y.End) && y.Start.Before(x.End)
			assert.False(t, overlap, "spans %q and %q overlap", x.Label, y.Label)
		}
	}
}
