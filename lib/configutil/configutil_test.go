package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	BaseUrl  string            `json:"base_url" yaml:"base_url"`
	MaxPages int               `json:"max_pages" yaml:"max_pages"`
	Cookies  map[string]string `json:"cookies" yaml:"cookies"`
}

func writeFile(t testing.TB, path, contents string) {
	err := os.WriteFile(path, []byte(contents), 0600)
	require.NoError(t, err)
}

func TestReadConfigLocalOverride(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "elec.json5"), `{
		// comments are allowed
		base_url: "https://example.com/",
		max_pages: 10,
	}`)
	writeFile(t, filepath.Join(dir, "elec.local.json5"), `{max_pages: 3}`)

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "elec.json5"))
	require.NoError(t, err)
	require.Equal(t, "https://example.com/", cfg.BaseUrl)
	require.Equal(t, 3, cfg.MaxPages)
}

func TestReadConfigYaml(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "elec.yaml"), "base_url: https://example.com/\ncookies:\n  show_vpn: \"1\"\n")

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "elec.yaml"))
	require.NoError(t, err)
	require.Equal(t, "https://example.com/", cfg.BaseUrl)
	require.Equal(t, map[string]string{"show_vpn": "1"}, cfg.Cookies)
}

func TestReadConfigMissing(t *testing.T) {
	_, err := ReadConfig[testConfig](filepath.Join(t.TempDir(), "missing.json5"))
	require.True(t, os.IsNotExist(err))
}

func TestReadConfigWithDefaults(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "elec.json5"), `{base_url: "https://override.example/"}`)

	cfg, err := ReadConfigWithDefaults(filepath.Join(dir, "elec.json5"), testConfig{
		BaseUrl:  "https://default.example/",
		MaxPages: 64,
	})
	require.NoError(t, err)
	require.Equal(t, "https://override.example/", cfg.BaseUrl)
	require.Equal(t, 64, cfg.MaxPages)
}
