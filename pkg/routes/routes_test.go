package routes_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogulcanaydogan/transit-alert-push/pkg/model"
	"github.com/ogulcanaydogan/transit-alert-push/pkg/routes"
)

func alertOn(routeIDs ...string) model.Alert {
	svcs := make([]model.Service, 0, len(routeIDs))
	for _, id := range routeIDs {
		svcs = append(svcs, model.Service{Mode: model.ModeSubway, RouteID: id})
	}
	return model.Alert{ID: "1", AffectedServices: &model.AffectedServices{Services: svcs}}
}

func TestNew_CopiesInput(t *testing.T) {
	src := map[string]string{"931_": "MBTA Line Red"}
	m := routes.New(src)
	src["931_"] = "changed"
	src["999"] = "new"

	tag, ok := m.Lookup("931_")
	assert.True(t, ok)
	assert.Equal(t, "MBTA Line Red", tag)
	_, ok = m.Lookup("999")
	assert.False(t, ok)
}

func TestNew_SkipsBlankEntries(t *testing.T) {
	m := routes.New(map[string]string{"": "x", "1": " ", "2": "Tag"})
	assert.Equal(t, 1, m.Len())
}

func TestDefaultTags(t *testing.T) {
	m := routes.New(routes.DefaultTags())
	assert.Equal(t, 8, m.Len())

	tag, ok := m.Lookup("948")
	require.True(t, ok)
	assert.Equal(t, "MBTA Line Blue", tag)
}

func TestRoutes_Sorted(t *testing.T) {
	m := routes.New(map[string]string{"b": "Red", "a": "Red", "c": "Blue"})
	got := m.Routes()
	require.Len(t, got, 3)
	assert.Equal(t, routes.Route{RouteID: "c", Tag: "Blue"}, got[0])
	assert.Equal(t, routes.Route{RouteID: "a", Tag: "Red"}, got[1])
	assert.Equal(t, routes.Route{RouteID: "b", Tag: "Red"}, got[2])
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "routes.yaml")
	data := []byte(`
routes:
  "931_": MBTA Line Red
  "903_": MBTA Line Orange
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	m, err := routes.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())
	tag, _ := m.Lookup("903_")
	assert.Equal(t, "MBTA Line Orange", tag)
}

func TestLoadFile_NotFound(t *testing.T) {
	_, err := routes.LoadFile("/nonexistent/routes.yaml")
	assert.Error(t, err)
}

func TestLoadBytes_InvalidYAML(t *testing.T) {
	_, err := routes.LoadBytes([]byte("routes: [yaml"))
	assert.Error(t, err)
}

func TestLoadBytes_Empty(t *testing.T) {
	_, err := routes.LoadBytes([]byte("routes: {}\n"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no routes")
}

func TestResolver_DedupesTags(t *testing.T) {
	r := routes.NewResolver(routes.New(routes.DefaultTags()))
	got := r.TagsFor(alertOn("931_", "933_", "903_"))
	assert.Equal(t, []string{"MBTA Line Orange", "MBTA Line Red"}, got)
}

func TestResolver_OrderIndependent(t *testing.T) {
	r := routes.NewResolver(routes.New(routes.DefaultTags()))
	a := r.TagsFor(alertOn("946_", "931_", "913_"))
	b := r.TagsFor(alertOn("913_", "946_", "931_"))
	assert.Equal(t, a, b)
	assert.Equal(t, a, r.TagsFor(alertOn("913_", "946_", "931_")))
}

func TestResolver_UnmappedRoutes(t *testing.T) {
	r := routes.NewResolver(routes.New(routes.DefaultTags()))
	assert.Empty(t, r.TagsFor(alertOn("Green-B", "742")))
	assert.Empty(t, r.TagsFor(model.Alert{ID: "2"}))
}
