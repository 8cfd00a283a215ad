package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	defaultGeneral = General{
		Port: 15230,
	}
	flaggedGeneral = General{
		Host:    "127.0.0.1",
		Port:    9000,
		Cert:    "cert.pem",
		Key:     "key.pem",
		WebRoot: "web/",
		Debug:   true,
	}
)

func setArgs(t *testing.T, general General) {
	t.Helper()

	restore := os.Args
	t.Cleanup(func() { os.Args = restore })

	args := []string{"auxroom"}
	if general.Config != "" {
		args = append(args, "--config="+general.Config)
	}
	if general.Host != "" {
		args = append(args, "--host="+general.Host)
	}
	if general.Port != 0 {
		args = append(args, fmt.Sprintf("--port=%d", general.Port))
	}
	if general.Cert != "" {
		args = append(args, "--cert="+general.Cert)
	}
	if general.Key != "" {
		args = append(args, "--key="+general.Key)
	}
	if general.WebRoot != "" {
		args = append(args, "--webroot="+general.WebRoot)
	}
	if general.Debug {
		args = append(args, "--debug")
	}

	os.Args = args
}

func testGeneralsEqual(t *testing.T, expected General, actual General) {
	require.Equal(t, expected.Host, actual.Host)
	require.Equal(t, expected.Port, actual.Port)
	require.Equal(t, expected.Cert, actual.Cert)
	require.Equal(t, expected.Key, actual.Key)
	require.Equal(t, expected.WebRoot, actual.WebRoot)
	require.Equal(t, expected.Debug, actual.Debug)
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestGetConfigDefaults(t *testing.T) {
	setArgs(t, General{})

	config := GetConfig()
	testGeneralsEqual(t, defaultGeneral, config.General)
}

func TestGetConfigFlags(t *testing.T) {
	setArgs(t, flaggedGeneral)

	config := GetConfig()
	testGeneralsEqual(t, flaggedGeneral, config.General)
}

func TestGetConfigFile(t *testing.T) {
	path := writeConfigFile(t, "[General]\nHost = \"10.0.0.1\"\nPort = 8080\nWebRoot = \"assets/\"\n")
	setArgs(t, General{Config: path, Debug: true})

	config := GetConfig()
	testGeneralsEqual(t, General{
		Host:    "10.0.0.1",
		Port:    8080,
		WebRoot: "assets/",
		Debug:   true,
	}, config.General)
	require.Equal(t, path, config.General.Config)
}

func TestGetConfigFileFlagFallback(t *testing.T) {
	path := writeConfigFile(t, "[General]\nHost = \"10.0.0.1\"\n")
	setArgs(t, General{Config: path, Port: 9000})

	config := GetConfig()
	require.Equal(t, "10.0.0.1", config.General.Host)
	require.Equal(t, uint16(9000), config.General.Port)
}

func TestMissingConfigFilePanics(t *testing.T) {
	setArgs(t, General{Config: "does/not/exist.toml"})

	require.Panics(t, func() { GetConfig() })
}
