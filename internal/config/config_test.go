package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loykin/tracker/internal/session"
)

func writeTOML(t *testing.T, data string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "tracker.toml")
	require.NoError(t, os.WriteFile(file, []byte(data), 0o644))
	return file
}

func TestLoad_Defaults(t *testing.T) {
	fc, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultEndpoint, fc.Tracker.Endpoint)
	assert.Equal(t, DefaultBeaconQueue, fc.Tracker.BeaconQueue)
	assert.Equal(t, DefaultRequestTimeout, fc.Tracker.RequestTimeout)
	assert.Equal(t, DefaultUnloadGrace, fc.Tracker.UnloadGrace)
	assert.Equal(t, DefaultListen, fc.Server.Listen)
	assert.Equal(t, DefaultBasePath, fc.Server.BasePath)
	assert.False(t, fc.Metrics.Enabled)
	assert.Equal(t, "info", fc.Log.Level)
	assert.Equal(t, DefaultEndpoint, fc.SinkDSN())
}

func TestLoad_Full(t *testing.T) {
	file := writeTOML(t, `
[tracker]
endpoint = "http://collector:5000"
sink = "sqlite:///tmp/events.db"
beacon_queue = 8
request_timeout = "750ms"
unload_grace = "3s"

[page]
url = "http://collector:5000/experiment/7"
referrer = "http://portal/"
method_session_id = "abc"

[environment]
screen_width = 1280
screen_height = 720
language = "de-DE"
timezone = "Europe/Berlin"
is_iframe = true

[server]
listen = ":8089"
base_path = "/t"

[metrics]
enabled = true
listen = ":9100"

[log]
level = "debug"
format = "json"
file = "/tmp/tracker.log"
max_backups = 5
`)
	fc, err := Load(file)
	require.NoError(t, err)

	assert.Equal(t, 8, fc.Tracker.BeaconQueue)
	assert.Equal(t, 750*time.Millisecond, fc.Tracker.RequestTimeout)
	assert.Equal(t, 3*time.Second, fc.Tracker.UnloadGrace)
	assert.Equal(t, "sqlite:///tmp/events.db", fc.SinkDSN())
	assert.Equal(t, "/t", fc.Server.BasePath)
	assert.True(t, fc.Metrics.Enabled)
	assert.Equal(t, ":9100", fc.Metrics.Listen)

	doc := fc.Document()
	assert.Equal(t, "/experiment/7", doc.Path())
	assert.Equal(t, "http://portal/", doc.Referrer())
	assert.Equal(t, "abc", doc.BodyData(session.MethodSessionIDKey))

	env := fc.SessionEnvironment()
	w, h := env.Screen()
	assert.Equal(t, 1280, w)
	assert.Equal(t, 720, h)
	assert.Equal(t, "de-DE", env.Language())
	assert.Equal(t, "Europe/Berlin", env.Timezone())
	embedded, err := env.Embedded()
	require.NoError(t, err)
	assert.True(t, embedded)

	lc := fc.Logger()
	assert.Equal(t, "debug", lc.Level)
	assert.Equal(t, "json", lc.Format)
	assert.Equal(t, "/tmp/tracker.log", lc.File.Path)
	assert.Equal(t, 5, lc.File.MaxBackups)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("TRACKER_TRACKER_ENDPOINT", "http://from-env:1234")
	fc, err := Load(writeTOML(t, "[tracker]\nendpoint = \"http://from-file\"\n"))
	require.NoError(t, err)
	assert.Equal(t, "http://from-env:1234", fc.Tracker.Endpoint)
}

func TestLoad_Errors(t *testing.T) {
	cases := map[string]string{
		"bad duration":   "[tracker]\nrequest_timeout = \"soon\"\n",
		"zero queue":     "[tracker]\nbeacon_queue = 0\n",
		"no destination": "[tracker]\nendpoint = \"\"\nsink = \"\"\n",
		"bad level":      "[log]\nlevel = \"loud\"\n",
		"negative grace": "[tracker]\nunload_grace = \"-1s\"\n",
		"syntax":         "[tracker\n",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeTOML(t, data))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestSessionEnvironment_FallsBackToHost(t *testing.T) {
	t.Setenv("LANG", "fr_FR.UTF-8")
	t.Setenv("LC_ALL", "")
	t.Setenv("LC_MESSAGES", "")
	fc, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "fr-FR", fc.SessionEnvironment().Language())
	assert.NotEmpty(t, fc.SessionEnvironment().Timezone())
}

func TestServerTLS(t *testing.T) {
	fc, err := Load("")
	require.NoError(t, err)
	tlsCfg, err := fc.ServerTLS()
	require.NoError(t, err)
	assert.Nil(t, tlsCfg)

	dir := filepath.Join(t.TempDir(), "certs")
	fc, err = Load(writeTOML(t, "[server.tls]\nenabled = true\nauto_generate = true\ndir = \""+filepath.ToSlash(dir)+"\"\n"))
	require.NoError(t, err)
	tlsCfg, err = fc.ServerTLS()
	require.NoError(t, err)
	require.NotNil(t, tlsCfg)
	assert.NotNil(t, tlsCfg.GetCertificate)
}
