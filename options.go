package hookable

// Option configures a hook collection at construction time.
type Option func(*settings)

type settings struct {
	observers      *Observers
	clock          TimeProvider
	maxConcurrency int
	stageOverrides map[string]int
}

func newSettings(opts []Option) settings {
	s := settings{
		clock:          NewDefaultTimeProvider(),
		stageOverrides: map[string]int{},
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithObservers attaches an observer registry. The registry may be shared
// between collections; see [Observers] for the concurrency contract.
func WithObservers(o *Observers) Option {
	return func(s *settings) {
		s.observers = o
	}
}

// WithTimeProvider replaces the clock used to timestamp observer events.
func WithTimeProvider(tp TimeProvider) Option {
	return func(s *settings) {
		if tp != nil {
			s.clock = tp
		}
	}
}

// WithMaxConcurrency bounds how many callbacks of one stage group an
// [AsyncParallelHook] runs at once. Zero or negative means unbounded.
// Other collections ignore it.
func WithMaxConcurrency(n int) Option {
	return func(s *settings) {
		if n < 0 {
			n = 0
		}
		s.maxConcurrency = n
	}
}

// WithStageOverrides re-stages callbacks by tap name at registration time.
// An override wins over both [WithTapStage] and the callback's own Stage().
func WithStageOverrides(overrides map[string]int) Option {
	return func(s *settings) {
		for name, stage := range overrides {
			s.stageOverrides[name] = stage
		}
	}
}
