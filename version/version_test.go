package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfoString(t *testing.T) {
	info := Info{CommitHash: "0123456789abcdef", BuildTime: "2026-01-01", Version: "dev"}
	assert.Equal(t, "meridian-ml dev (commit 0123456789abcdef, built 2026-01-01)", info.String())

	info.Version = "v1.2.0"
	info.Modified = true
	assert.Equal(t, "meridian-ml v1.2.0 (commit 0123456789abcdef-dirty, built 2026-01-01)", info.String())
}

func TestInfoShort(t *testing.T) {
	assert.Equal(t, "0123456", Info{CommitHash: "0123456789"}.Short())
	assert.Equal(t, "dev", Info{CommitHash: "dev"}.Short())
}

func TestGetPrefersLdflags(t *testing.T) {
	prev := CommitHash
	CommitHash = "abc1234"
	t.Cleanup(func() { CommitHash = prev })

	info := Get()
	assert.Equal(t, "abc1234", info.CommitHash)
	assert.False(t, info.Modified)
	assert.NotEmpty(t, info.GoVersion)
	assert.Contains(t, info.Platform, "/")
}
