package engine

// Options represents configuration options for the Engine.
type Options struct {
	// PinThread locks the worker goroutine to its OS thread, matching the
	// one-dedicated-thread-per-shard scheduling model.
	PinThread bool
}

// DefaultEngineOptions returns the default engine options.
func DefaultEngineOptions() *Options {
	return &Options{
		PinThread: false,
	}
}
