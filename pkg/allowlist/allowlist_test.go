package allowlist

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "NIC.txt")
	names := []string{"Wi-Fi", "Ethernet 2", "vEthernet (WSL)"}

	require.NoError(t, Save(path, names))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, names, got)
}

func TestSaveOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "NIC.txt")

	require.NoError(t, Save(path, []string{"eth0", "eth1"}))
	require.NoError(t, Save(path, []string{"wlan0"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "wlan0\n", string(data))

	_, err = os.Stat(path + ".tmp")
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestSaveEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "NIC.txt")

	require.NoError(t, Save(path, nil))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{
			name:    "unix line endings",
			content: "eth0\nwlan0\n",
			want:    []string{"eth0", "wlan0"},
		},
		{
			name:    "windows line endings",
			content: "Ethernet\r\nWi-Fi\r\n",
			want:    []string{"Ethernet", "Wi-Fi"},
		},
		{
			name:    "blank lines and missing trailing newline",
			content: "\nEthernet\n\n  \nWi-Fi",
			want:    []string{"Ethernet", "Wi-Fi"},
		},
		{
			name:    "byte order mark",
			content: "\ufeffEthernet\n",
			want:    []string{"Ethernet"},
		},
		{
			name:    "duplicates keep first position",
			content: "Wi-Fi\nEthernet\nWi-Fi\n",
			want:    []string{"Wi-Fi", "Ethernet"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "NIC.txt")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			got, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "NIC.txt"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}
