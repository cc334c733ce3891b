package querycache

import (
	"github.com/goliatone/go-query-cache/cache"
)

// Option configures builders and managers.
type Option func(*settings)

type settings struct {
	cache      cache.TaggableService[[]Row]
	serializer cache.KeySerializer
	grammar    Grammar
}

func newSettings(opts ...Option) settings {
	s := settings{
		serializer: cache.NewDefaultKeySerializer(),
		grammar:    NewGrammar(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithCache sets the cache service used by Remember and RememberForever.
func WithCache(svc cache.TaggableService[[]Row]) Option {
	return func(s *settings) {
		s.cache = svc
	}
}

// WithKeySerializer replaces the serializer used to derive cache keys.
func WithKeySerializer(serializer cache.KeySerializer) Option {
	return func(s *settings) {
		if serializer != nil {
			s.serializer = serializer
		}
	}
}

// WithGrammar replaces the SQL grammar.
func WithGrammar(grammar Grammar) Option {
	return func(s *settings) {
		if grammar != nil {
			s.grammar = grammar
		}
	}
}
