package search

import (
	"fmt"
	"log/slog"
	"time"
)

// DefaultProgressEvery is the default number of dequeues between progress reports.
const DefaultProgressEvery = 1000

// Option configures an Engine. Invalid values are recorded and surfaced
// as ErrInvalidOption by New.
type Option func(*Options)

// Options holds the tunables and hooks of an Engine.
type Options struct {
	// MaxRedirectDepth bounds chained redirects per resolution.
	MaxRedirectDepth int

	// Normalizer is the lookup fallback; nil disables it.
	Normalizer Normalizer

	// MaxExplored stops a run after this many dequeues. 0 means no limit.
	MaxExplored int

	// Timeout stops a run after this much wall time. 0 means no limit.
	Timeout time.Duration

	// ProgressEvery is the number of dequeues between OnProgress calls.
	// 0 disables progress reporting.
	ProgressEvery int

	// OnProgress receives a snapshot of the running statistics.
	OnProgress func(Stats)

	// OnPrune is called whenever a title is abandoned during resolution.
	OnPrune func(title string, reason Reason)

	// OnFinish is called once per completed run, including failed ones.
	// res is nil when err is not.
	OnFinish func(res *Result, err error)

	Logger *slog.Logger

	err error
}

// DefaultOptions returns the defaults: redirect depth 20, first-letter
// normalization, no budgets, progress every 1000 dequeues logged at debug.
func DefaultOptions() Options {
	return Options{
		MaxRedirectDepth: MaxRedirectDepth,
		Normalizer:       FirstLetter,
		ProgressEvery:    DefaultProgressEvery,
	}
}

// WithMaxRedirectDepth sets the redirect bound. It must be positive.
func WithMaxRedirectDepth(d int) Option {
	return func(o *Options) {
		if d <= 0 {
			o.err = fmt.Errorf("%w: max redirect depth must be positive (%d)", ErrInvalidOption, d)
			return
		}
		o.MaxRedirectDepth = d
	}
}

// WithNormalizer sets the lookup fallback. nil disables normalization.
func WithNormalizer(n Normalizer) Option {
	return func(o *Options) {
		o.Normalizer = n
	}
}

// WithMaxExplored bounds the number of dequeued titles per run.
func WithMaxExplored(n int) Option {
	return func(o *Options) {
		if n < 0 {
			o.err = fmt.Errorf("%w: max explored cannot be negative (%d)", ErrInvalidOption, n)
			return
		}
		o.MaxExplored = n
	}
}

// WithTimeout bounds the wall time of each run.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) {
		if d < 0 {
			o.err = fmt.Errorf("%w: timeout cannot be negative (%s)", ErrInvalidOption, d)
			return
		}
		o.Timeout = d
	}
}

// WithProgressEvery sets the progress interval. 0 disables it.
func WithProgressEvery(n int) Option {
	return func(o *Options) {
		if n < 0 {
			o.err = fmt.Errorf("%w: progress interval cannot be negative (%d)", ErrInvalidOption, n)
			return
		}
		o.ProgressEvery = n
	}
}

// WithOnProgress registers a progress callback.
func WithOnProgress(fn func(Stats)) Option {
	return func(o *Options) {
		if fn != nil {
			o.OnProgress = fn
		}
	}
}

// WithOnPrune registers a callback for abandoned titles.
func WithOnPrune(fn func(title string, reason Reason)) Option {
	return func(o *Options) {
		if fn != nil {
			o.OnPrune = fn
		}
	}
}

// WithOnFinish registers a callback run at the end of every search.
func WithOnFinish(fn func(res *Result, err error)) Option {
	return func(o *Options) {
		if fn != nil {
			o.OnFinish = fn
		}
	}
}

// WithLogger sets the logger. nil keeps slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}
