package platform

import (
	"testing"

	"github.com/felixgeelhaar/hostharden/internal/testutil/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ubuntuRelease = `PRETTY_NAME="Ubuntu 24.04.1 LTS"
NAME="Ubuntu"
VERSION_ID="24.04"
VERSION="24.04.1 LTS (Noble Numbat)"
ID=ubuntu
ID_LIKE=debian
HOME_URL="https://www.ubuntu.com/"
`

func TestParseRelease(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		input      string
		wantID     string
		wantDebian bool
		wantErr    bool
	}{
		{name: "ubuntu", input: ubuntuRelease, wantID: "ubuntu", wantDebian: true},
		{name: "debian", input: "ID=debian\nVERSION_ID=\"12\"\n", wantID: "debian", wantDebian: true},
		{name: "mint multi id_like", input: "ID=linuxmint\nID_LIKE=\"ubuntu debian\"\n", wantID: "linuxmint", wantDebian: true},
		{name: "fedora", input: "ID=fedora\nVERSION_ID=40\n", wantID: "fedora", wantDebian: false},
		{name: "missing id", input: "NAME=Nothing\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rel, err := ParseRelease([]byte(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, rel.ID)
			assert.Equal(t, tt.wantDebian, rel.DebianFamily())
		})
	}
}

func TestRelease_String(t *testing.T) {
	t.Parallel()

	rel, err := ParseRelease([]byte(ubuntuRelease))
	require.NoError(t, err)
	assert.Equal(t, "Ubuntu 24.04.1 LTS", rel.String())
	assert.Equal(t, "debian 12", Release{ID: "debian", VersionID: "12"}.String())
}

func TestDetect(t *testing.T) {
	t.Parallel()

	fs := mocks.NewFileSystem()
	fs.AddFile("/etc/os-release", ubuntuRelease)

	p, err := Detect(fs)

	require.NoError(t, err)
	assert.Equal(t, "ubuntu", p.Release.ID)
	assert.Equal(t, EnvNative, p.Environment)
	assert.Contains(t, p.String(), "Ubuntu 24.04.1 LTS")
}

func TestDetect_FallbackPathAndContainer(t *testing.T) {
	t.Parallel()

	fs := mocks.NewFileSystem()
	fs.AddFile("/usr/lib/os-release", "ID=debian\n")
	fs.AddFile("/.dockerenv", "")

	p, err := Detect(fs)

	require.NoError(t, err)
	assert.Equal(t, "debian", p.Release.ID)
	assert.Equal(t, EnvContainer, p.Environment)
	assert.Contains(t, p.String(), "(container)")
}

func TestDetect_NoRelease(t *testing.T) {
	t.Parallel()

	p, err := Detect(mocks.NewFileSystem())

	require.NoError(t, err)
	assert.Empty(t, p.Release.ID)
}
