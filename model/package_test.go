package model

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackageEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b *Package
		want bool
	}{
		{"identical", NewPackage("cairo", "1.16.0"), NewPackage("cairo", "1.16.0"), true},
		{"semver equal", NewPackage("cairo", "1.16"), NewPackage("cairo", "1.16.0"), true},
		{"semver v prefix", NewPackage("cairo", "v1.16.0"), NewPackage("cairo", "1.16.0"), true},
		{"different version", NewPackage("cairo", "1.16.0"), NewPackage("cairo", "1.17.0"), false},
		{"different name", NewPackage("cairo", "1.16.0"), NewPackage("pixman", "1.16.0"), false},
		{"non semver exact", NewPackage("busybox", "1.35.0-r3+git"), NewPackage("busybox", "1.35.0-r3+git"), true},
		{"non semver different", NewPackage("openssl", "1.1.1w"), NewPackage("openssl", "1.1.1v"), false},
		{"nil", NewPackage("cairo", "1"), nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Equal(tt.b))
		})
	}
}

func TestPackageIdentifiers(t *testing.T) {
	p := NewPackage("cairo", "1.16.0")
	assert.Equal(t, "cairo@1.16.0", p.ID())

	assert.False(t, p.AddCPE("not-a-cpe"))
	assert.True(t, p.AddCPE("cpe:2.3:a:cairographics:cairo:1.16.0:*:*:*:*:*:*:*"))
	assert.True(t, p.AddCPE("cpe:2.3:a:cairographics:cairo:1.16.0:*:*:*:*:*:*:*"))
	assert.Len(t, p.CPE, 1)

	assert.False(t, p.AddPURL("::::"))
	assert.True(t, p.AddPURL("pkg:deb/debian/libcairo2@1.16.0?arch=amd64&distro=bookworm"))
	assert.Equal(t, []string{"pkg:deb/debian/libcairo2@1.16.0"}, p.PURL)

	assert.Equal(t, "cpe:2.3:*:*:cairo:1.16.0:*:*:*:*:*:*:*", p.GenerateGenericCPE())
	assert.Equal(t, "pkg:generic/cairo@1.16.0", p.GenerateGenericPURL())
	assert.Contains(t, p.PURL, "pkg:generic/cairo@1.16.0")
	assert.Equal(t, "deb", p.Ecosystem())
}

func TestPackageMerge(t *testing.T) {
	a := NewPackage("cairo", "1.16.0")
	a.AddCPE("cpe:2.3:a:cairographics:cairo:1.16.0:*:*:*:*:*:*:*")
	b := NewPackage("cairo", "1.16")
	b.AddPURL("pkg:generic/cairo@1.16.0")

	require.True(t, a.Merge(b))
	assert.Len(t, a.CPE, 1)
	assert.Equal(t, []string{"pkg:generic/cairo@1.16.0"}, a.PURL)

	assert.False(t, a.Merge(NewPackage("cairo", "2.0.0")))
	assert.Len(t, a.PURL, 1)
}

func TestPackageCompare(t *testing.T) {
	pkgs := []*Package{
		NewPackage("zlib", "1.3"),
		NewPackage("cairo", "1.16.10"),
		NewPackage("cairo", "1.16.2"),
		NewPackage("busybox", "1.36.1"),
	}
	slices.SortFunc(pkgs, func(a, b *Package) int { return a.Compare(b) })

	ids := make([]string, 0, len(pkgs))
	for _, p := range pkgs {
		ids = append(ids, p.ID())
	}
	assert.Equal(t, []string{"busybox@1.36.1", "cairo@1.16.2", "cairo@1.16.10", "zlib@1.3"}, ids)
	assert.Zero(t, NewPackage("cairo", "1.16").Compare(NewPackage("cairo", "1.16.0")))
}
