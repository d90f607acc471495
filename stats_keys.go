package hookable

// StatKey names a counter or gauge in [DispatchStats].
type StatKey string

// Standard key prefix for all hookable keys.
// Users should use their own prefix (e.g., "myapp:") for custom metrics
// to avoid collisions with the standard keys.
const KeyPrefix StatKey = "hookable:"

// Call tracking keys.
const (
	KeyCalls    StatKey = "hookable:calls"
	KeyCallsFor StatKey = "hookable:calls:" // + hook name
)

// Tap tracking keys.
const (
	KeyTaps    StatKey = "hookable:taps"
	KeyTapsFor StatKey = "hookable:taps:" // + hook name + "/" + tap name
)

// Bail tracking keys (bail calls answered by a callback).
const (
	KeyBails    StatKey = "hookable:bails"
	KeyBailsFor StatKey = "hookable:bails:" // + hook name + "/" + tap name that answered
)

// Error tracking keys (failed series and parallel calls).
const (
	KeyErrors    StatKey = "hookable:errors"
	KeyErrorsFor StatKey = "hookable:errors:" // + hook name
)

// Gauges.
const (
	// KeyInFlightCalls is the number of calls currently running.
	KeyInFlightCalls StatKey = "hookable:in_flight_calls"

	// KeyInFlightTaps is the number of callbacks currently running.
	KeyInFlightTaps StatKey = "hookable:in_flight_taps"
)

// For appends a suffix to a per-item key prefix:
//
//	hookable.KeyCallsFor.For("make")   // "hookable:calls:make"
func (k StatKey) For(suffix string) StatKey {
	return k + StatKey(suffix)
}

// tapStatName is the per-tap suffix used with [KeyTapsFor] and [KeyBailsFor].
func tapStatName(hook, tap string) string {
	return hook + "/" + tap
}
