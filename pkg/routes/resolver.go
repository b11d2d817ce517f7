package routes

import (
	"sort"

	"github.com/ogulcanaydogan/transit-alert-push/pkg/model"
)

// Resolver derives notification audience tags for alerts.
type Resolver struct {
	tags *TagMap
}

// NewResolver creates a resolver backed by the given map.
func NewResolver(tags *TagMap) *Resolver {
	return &Resolver{tags: tags}
}

// TagsFor returns the deduplicated, sorted audience tags for an alert.
// Services on unmapped routes contribute nothing; the result may be empty.
func (r *Resolver) TagsFor(a model.Alert) []string {
	seen := make(map[string]struct{})
	for _, svc := range a.Services() {
		tag, ok := r.tags.Lookup(svc.RouteID)
		if !ok {
			continue
		}
		seen[tag] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for tag := range seen {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}
