package version

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func restoreVersion(t *testing.T) {
	t.Helper()
	v, r, b := Version, Revision, BuildDate
	t.Cleanup(func() {
		Version, Revision, BuildDate = v, r, b
	})
}

func TestVersionStrings(t *testing.T) {
	assert.NotEmpty(t, Version)
	assert.NotEmpty(t, Revision)

	assert.Contains(t, Short(), Version)
	assert.Contains(t, Detailed(), Revision)
	assert.True(t, strings.HasPrefix(DetailedWithApp(), AppName+" "))
	assert.True(t, strings.HasPrefix(UserAgent(), AppName+"/"+Version))

	info := Info()
	assert.Equal(t, Version, info.Version)
	assert.Contains(t, info.Platform, "/")
}

func TestFillFromVCS_DevBuild(t *testing.T) {
	restoreVersion(t)
	Version, Revision, BuildDate = devVersion, "HEAD", ""

	fillFromVCS("v1.4.0", map[string]string{
		"vcs.revision": "abc123",
		"vcs.modified": "true",
		"vcs.time":     "2026-01-02T03:04:05Z",
	})

	assert.Equal(t, "1.4.0", Version)
	assert.Equal(t, "abc123-dirty", Revision)
	assert.Equal(t, "2026-01-02T03:04:05Z", BuildDate)
}

func TestFillFromVCS_KeepsLdflags(t *testing.T) {
	restoreVersion(t)
	Version, Revision, BuildDate = "1.0.0", "deadbeef", "release"

	fillFromVCS("(devel)", map[string]string{"vcs.revision": "abc123"})

	assert.Equal(t, "1.0.0", Version)
	assert.Equal(t, "deadbeef", Revision)
	assert.Equal(t, "release", BuildDate)
}
