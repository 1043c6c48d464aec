package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// FuzzTrackerConfigTOML feeds arbitrary values into a tiny TOML and ensures
// the loader does not panic.
func FuzzTrackerConfigTOML(f *testing.F) {
	f.Add("http://localhost:5000", 64, "5s", "info")
	f.Add("", 0, "", "")
	f.Add("sqlite://x.db", -3, "-1ms", "debug")

	f.Fuzz(func(t *testing.T, endpoint string, queue int, timeout string, level string) {
		clean := func(s string) string {
			return strings.NewReplacer("\"", "", "\\", "", "\n", "", "\r", "").Replace(s)
		}
		var b strings.Builder
		b.WriteString("[tracker]\n")
		b.WriteString("endpoint = \"" + clean(endpoint) + "\"\n")
		b.WriteString("beacon_queue = " + strconv.Itoa(queue) + "\n")
		if timeout != "" {
			b.WriteString("request_timeout = \"" + clean(timeout) + "\"\n")
		}
		b.WriteString("[log]\nlevel = \"" + clean(level) + "\"\n")

		file := filepath.Join(t.TempDir(), "fuzz.toml")
		if err := os.WriteFile(file, []byte(b.String()), 0o644); err != nil {
			t.Skip()
		}
		fc, err := Load(file)
		if err == nil && fc.Tracker.BeaconQueue <= 0 {
			t.Fatalf("accepted non-positive queue %d", fc.Tracker.BeaconQueue)
		}
	})
}
