package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())

	var out, errOut bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.Execute()
	return out.String(), err
}

func TestListEmirates(t *testing.T) {
	out, err := execute(t, "--list-emirates")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 7)
	assert.Contains(t, lines, "Dubai")
}

func TestListCities(t *testing.T) {
	out, err := execute(t, "--list-cities", "--emirate", "dubai")
	require.NoError(t, err)
	assert.Contains(t, out, "Dubai (25.2048, 55.2708)")
}

func TestExitCodes(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code int
	}{
		{"list cities without emirate", []string{"--list-cities"}, 1},
		{"missing year", []string{"--month", "1", "--city", "Dubai", "--emirate", "Dubai"}, 1},
		{"month out of range", []string{"--year", "2025", "--month", "13", "--city", "Dubai", "--emirate", "Dubai"}, 1},
		{"day zero", []string{"--year", "2025", "--month", "1", "--day", "0", "--city", "Dubai", "--emirate", "Dubai"}, 1},
		{"day past month end", []string{"--year", "2025", "--month", "2", "--day", "30", "--city", "Dubai", "--emirate", "Dubai"}, 1},
		{"unknown city", []string{"--year", "2025", "--month", "1", "--city", "Atlantis", "--emirate", "Dubai"}, 4},
		{"unknown emirate", []string{"--list-cities", "--emirate", "Atlantis"}, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.code, exitCode(err))
		})
	}
}

func TestMissingFlagsAreListed(t *testing.T) {
	_, err := execute(t, "--city", "Dubai")
	require.Error(t, err)
	assert.Equal(t, "missing required flags: --emirate, --month, --year", err.Error())
}

func TestMissingConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PRAYER_CONFIG_FILE", filepath.Join(dir, "absent.json"))
	t.Setenv("PRAYER_TOKEN_FILE", filepath.Join(dir, "auth_token.json"))
	t.Setenv("PRAYER_API_BASE_URL", "http://127.0.0.1:1")

	_, err := execute(t, "--year", "2025", "--month", "1", "--day", "1",
		"--city", "Dubai", "--emirate", "Dubai", "--no-cache", "--output-dir", dir)
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(err))
}

func TestClearCache(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	require.NoError(t, os.MkdirAll(dir, 0755))
	entry := filepath.Join(dir, "dubai_dubai_2025-01-01_2025-01-31.json")
	require.NoError(t, os.WriteFile(entry, []byte(`{}`), 0644))
	t.Setenv("PRAYER_CACHE_DIR", dir)

	out, err := execute(t, "--clear-cache")
	require.NoError(t, err)
	assert.Equal(t, "Cache cleared: "+dir+"\n", out)
	assert.NoFileExists(t, entry)
}

func TestGenerateDay(t *testing.T) {
	var authCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/sso/ClientAuthorization":
			authCalls++
			fmt.Fprintf(w, `{"isSuccess":true,"clientAccessToken":"tok","clientRefreshToken":"ref","refreshTokenExpiryTime":%d}`,
				time.Now().Add(time.Hour).Unix())
		case strings.HasPrefix(r.URL.Path, "/prayer-time/prayertimes/"):
			json.NewEncoder(w).Encode(map[string]any{"prayerData": []map[string]string{{
				"gDate":      "2025-01-01T00:00:00",
				"areaNameEn": "Dubai",
				"fajr":       "2025-01-01T05:30:00",
				"zuhr":       "2025-01-01T12:25:00",
				"asr":        "2025-01-01T15:30:00",
				"maghrib":    "2025-01-01T17:50:00",
				"isha":       "2025-01-01T19:05:00",
			}}})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	configFile := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(configFile, []byte(`{"clientGuid":"g","clientSecret":"s"}`), 0644))
	t.Setenv("PRAYER_CONFIG_FILE", configFile)
	t.Setenv("PRAYER_TOKEN_FILE", filepath.Join(dir, "auth_token.json"))
	t.Setenv("PRAYER_CACHE_DIR", filepath.Join(dir, "cache"))
	t.Setenv("PRAYER_API_BASE_URL", srv.URL)

	outDir := filepath.Join(dir, "out")
	out, err := execute(t, "--year", "2025", "--month", "1", "--day", "1",
		"--city", "Dubai", "--emirate", "Dubai", "--output-dir", outDir)
	require.NoError(t, err)

	want := filepath.Join(outDir, "2025", "January", "Dubai", "Dubai", "01", "prayer-times-01January.ics")
	assert.Equal(t, "Calendar file generated: "+want+"\n", out)
	data, err := os.ReadFile(want)
	require.NoError(t, err)
	assert.Equal(t, 10, strings.Count(string(data), "BEGIN:VEVENT"))
	assert.Equal(t, 1, authCalls)
	assert.FileExists(t, filepath.Join(dir, "auth_token.json"))
}
