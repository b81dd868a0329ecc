package category

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPathCandidates(t *testing.T) {
	assert.Equal(t,
		[]string{"products.electronics", "products/electronics"},
		PathCandidates("products.electronics"))

	assert.Equal(t,
		[]string{"products/electronics", "products.electronics"},
		PathCandidates("products/electronics"))

	assert.Equal(t, []string{"products"}, PathCandidates("products"))
	assert.Nil(t, PathCandidates("  "))
}

func TestPathSegments(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, PathSegments("a.b.c"))
	assert.Equal(t, []string{"a", "b", "c"}, PathSegments("a/b/c"))
	assert.Equal(t, []string{"a"}, PathSegments("a"))
	assert.Nil(t, PathSegments(""))
}

func TestParentPath(t *testing.T) {
	assert.Equal(t, "a.b", ParentPath("a.b.c"))
	assert.Equal(t, "a/b", ParentPath("a/b/c"))
	assert.Equal(t, "", ParentPath("a"))
}

func TestRootSegment(t *testing.T) {
	assert.Equal(t, "products", RootSegment("products.electronics.phones"))
	assert.Equal(t, "places", RootSegment("places/restaurants"))
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "real-estate", Slugify("Real Estate"))
	assert.Equal(t, "tech-startups", Slugify("  Tech  Startups  "))
	assert.Equal(t, "caf-24-7", Slugify("Café 24/7"))
	assert.Equal(t, "", Slugify("!!!"))
}
