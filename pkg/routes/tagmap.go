package routes

import (
	"sort"
	"strings"
)

// Route is one route id and the audience tag its riders subscribe to.
type Route struct {
	RouteID string `yaml:"route_id" json:"route_id"`
	Tag     string `yaml:"tag" json:"tag"`
}

// TagMap maps transit route ids to audience tags. It is immutable once built.
type TagMap struct {
	tags map[string]string
}

// DefaultTags is the subway route coverage of the MBTA rapid transit lines.
func DefaultTags() map[string]string {
	return map[string]string{
		"903_": "MBTA Line Orange",
		"913_": "MBTA Line Orange",
		"931_": "MBTA Line Red",
		"933_": "MBTA Line Red",
		"946_": "MBTA Line Blue",
		"9462": "MBTA Line Blue",
		"948":  "MBTA Line Blue",
		"9482": "MBTA Line Blue",
	}
}

// New copies m into a TagMap. Entries with a blank route id or tag are ignored.
func New(m map[string]string) *TagMap {
	tags := make(map[string]string, len(m))
	for route, tag := range m {
		route = strings.TrimSpace(route)
		tag = strings.TrimSpace(tag)
		if route == "" || tag == "" {
			continue
		}
		tags[route] = tag
	}
	return &TagMap{tags: tags}
}

// Lookup returns the tag for a route id.
func (m *TagMap) Lookup(routeID string) (string, bool) {
	if m == nil {
		return "", false
	}
	tag, ok := m.tags[routeID]
	return tag, ok
}

// Len returns the number of mapped routes.
func (m *TagMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.tags)
}

// Routes lists the mapping sorted by tag, then route id.
func (m *TagMap) Routes() []Route {
	if m == nil {
		return nil
	}
	out := make([]Route, 0, len(m.tags))
	for route, tag := range m.tags {
		out = append(out, Route{RouteID: route, Tag: tag})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Tag != out[j].Tag {
			return out[i].Tag < out[j].Tag
		}
		return out[i].RouteID < out[j].RouteID
	})
	return out
}
