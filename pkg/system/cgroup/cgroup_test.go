//go:build linux

package cgroup

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	_v2Line = "35 24 0:30 / /sys/fs/cgroup rw,nosuid,nodev,noexec,relatime shared:9 - cgroup2 cgroup2 rw,nsdelegate\n"
	_v1Line = "40 30 0:35 / /sys/fs/cgroup/memory rw,nosuid shared:20 - cgroup cgroup rw,memory\n"
	_ext4   = "26 1 8:1 / / rw,relatime shared:1 - ext4 /dev/sda1 rw\n"
)

func TestDetectFrom(t *testing.T) {
	cases := []struct {
		name   string
		in     string
		want   Version
		detail string
	}{
		{"v2", _ext4 + _v2Line, V2, "cgroup2 on /sys/fs/cgroup"},
		{"v1", _ext4 + _v1Line, V1, "cgroup v1 on /sys/fs/cgroup/memory"},
		{"hybrid", _v1Line + _v2Line, Hybrid, "cgroup2 on /sys/fs/cgroup; cgroup v1 on /sys/fs/cgroup/memory"},
		{"none", _ext4, Unsupported, "no cgroup mounts found"},
		{"garbage", "not a mountinfo line\n - \n", Unsupported, "no cgroup mounts found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m, err := DetectFrom(strings.NewReader(tc.in))
			require.NoError(t, err)
			assert.Equal(t, tc.want, m.Version)
			assert.Equal(t, tc.detail, m.Detail())
		})
	}
}

func TestVersionString(t *testing.T) {
	assert.Equal(t, "cgroup v2", V2.String())
	assert.Equal(t, "unsupported", Version(42).String())
}

func Test_Detect(t *testing.T) {
	m, err := Detect()
	require.NoError(t, err)
	t.Logf("detected %s: %s", m.Version, m.Detail())
}
