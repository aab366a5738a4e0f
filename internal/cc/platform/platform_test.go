package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateKnownPlatform(t *testing.T) {
	p, err := Create("macos", "arm64")
	require.NoError(t, err)
	assert.Equal(t, Platform{OS: osx, Arch: aarch64}, p)
}

func TestCreateUnknownOS(t *testing.T) {
	_, err := Create("beos", "x86_64")
	require.Error(t, err)
}

func TestKnownPlatformEnvLinux(t *testing.T) {
	env := KnownPlatformEnv[Platform{OS: linux, Arch: x86_64}]
	assert.Equal(t, 1, env["__linux__"])
	assert.Equal(t, 1, env["unix"])
}

func TestCompareOrdersByOSThenArch(t *testing.T) {
	a := Platform{OS: linux, Arch: x86_64}
	b := Platform{OS: osx, Arch: x86_64}
	assert.Negative(t, Compare(a, b))
	assert.Positive(t, Compare(b, a))
	assert.Zero(t, Compare(a, a))
}
