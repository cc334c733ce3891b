package querycache

import (
	"fmt"
	"math"
	"time"
)

// maxMinutes is the largest minute count a time.Duration can hold.
const maxMinutes = math.MaxInt64 / int64(time.Minute)

// DurationKind tells how long a cached result lives.
type DurationKind int

const (
	// DurationUnset disables caching.
	DurationUnset DurationKind = iota
	// DurationForever caches without expiration.
	DurationForever
	// DurationMinutes caches for a fixed number of minutes.
	DurationMinutes
)

// Duration is the lifetime part of a Directive. The zero value is unset.
type Duration struct {
	Kind    DurationKind
	Minutes int
}

// Forever returns a Duration that never expires.
func Forever() Duration {
	return Duration{Kind: DurationForever}
}

// Minutes returns a Duration of n minutes. Negative values, and values too
// large for a time.Duration, mean Forever. Zero is a valid duration: the
// store is consulted but nothing is retained.
func Minutes(n int) Duration {
	if n < 0 || int64(n) > maxMinutes {
		return Forever()
	}
	return Duration{Kind: DurationMinutes, Minutes: n}
}

// IsSet reports whether the duration enables caching.
func (d Duration) IsSet() bool {
	return d.Kind != DurationUnset
}

// IsForever reports whether the duration never expires.
func (d Duration) IsForever() bool {
	return d.Kind == DurationForever
}

// TTL converts a minutes duration to a time.Duration.
func (d Duration) TTL() time.Duration {
	if d.Kind != DurationMinutes || d.Minutes <= 0 {
		return 0
	}
	if int64(d.Minutes) > maxMinutes {
		return math.MaxInt64
	}
	return time.Duration(d.Minutes) * time.Minute
}

func (d Duration) String() string {
	switch d.Kind {
	case DurationForever:
		return "forever"
	case DurationMinutes:
		return fmt.Sprintf("%dm", d.Minutes)
	default:
		return "unset"
	}
}

// Directive is the caching configuration of a query in progress.
type Directive struct {
	// Key overrides the derived cache key when not empty.
	Key      string
	Duration Duration
	// Tags scope the cache entry for grouped invalidation.
	Tags []string
}

func (d Directive) clone() Directive {
	d.Tags = cloneStrings(d.Tags)
	return d
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string{}, s...)
}
