package querycache

import (
	"context"
)

type cacheTagsContextKey struct{}

// WithCacheTags attaches cache tags to the context. Cached queries executed
// with this context are stored under these tags in addition to the tags on
// their directive.
func WithCacheTags(ctx context.Context, tags ...string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(tags) == 0 {
		return ctx
	}

	existing := cacheTagsFromContext(ctx)
	combined := dedupeStrings(append(existing, tags...))
	if len(combined) == 0 {
		return ctx
	}

	return context.WithValue(ctx, cacheTagsContextKey{}, combined)
}

func cacheTagsFromContext(ctx context.Context) []string {
	if ctx == nil {
		return nil
	}
	if tags, ok := ctx.Value(cacheTagsContextKey{}).([]string); ok {
		return append([]string(nil), tags...)
	}
	return nil
}

// effectiveTags keeps the directive tags as given and appends context tags
// that are not already present.
func effectiveTags(ctx context.Context, directive []string) []string {
	extra := cacheTagsFromContext(ctx)
	if len(extra) == 0 {
		return directive
	}

	seen := make(map[string]struct{}, len(directive))
	for _, t := range directive {
		seen[t] = struct{}{}
	}

	tags := cloneStrings(directive)
	for _, t := range extra {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		tags = append(tags, t)
	}
	return tags
}

// dedupeStrings drops empty and repeated values, keeping first occurrences.
func dedupeStrings(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
