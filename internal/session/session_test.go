package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loykin/tracker/internal/event"
)

func TestStaticDocument(t *testing.T) {
	d := NewStaticDocument("https://study.example.org/experiment/3?step=2", "https://ref.example.org/")
	assert.Equal(t, "/experiment/3", d.Path())
	assert.Equal(t, "https://study.example.org/experiment/3?step=2", d.URL())
	assert.Equal(t, "https://ref.example.org/", d.Referrer())
	assert.Empty(t, d.BodyData(MethodSessionIDKey))

	d.SetBodyData(MethodSessionIDKey, "41")
	assert.Equal(t, "41", d.BodyData(MethodSessionIDKey))
	d.SetBodyData(MethodSessionIDKey, "")
	assert.Empty(t, d.BodyData(MethodSessionIDKey))

	d.SetURL("not a url\x7f")
	assert.Equal(t, "/", d.Path())
}

func TestContext_ReadsCorrelationIDLate(t *testing.T) {
	d := NewStaticDocument("http://localhost/m", "")
	c := NewContext(d, time.Now())
	assert.Empty(t, c.MethodSessionID())
	d.SetBodyData(MethodSessionIDKey, "99")
	assert.Equal(t, "99", c.MethodSessionID())
	assert.Equal(t, "/m", c.PagePath())

	var nilDoc Context
	assert.Empty(t, nilDoc.MethodSessionID())
	assert.Empty(t, nilDoc.PagePath())
}

func TestGather(t *testing.T) {
	m := Gather(StaticEnvironment{Width: 1440, Height: 900, Lang: "en-US", TZ: "America/New_York"})
	assert.Equal(t, event.SessionMeta{ScreenWidth: 1440, ScreenHeight: 900, Language: "en-US", Timezone: "America/New_York"}, m)

	m = Gather(StaticEnvironment{ParentErr: ErrParentInaccessible})
	assert.True(t, m.IsIframe, "inaccessible parent counts as embedded")

	m = Gather(StaticEnvironment{Iframe: true})
	assert.True(t, m.IsIframe)
}

func TestSystemEnvironment_Language(t *testing.T) {
	t.Setenv("LC_ALL", "")
	t.Setenv("LC_MESSAGES", "")
	t.Setenv("LANG", "de_DE.UTF-8")
	assert.Equal(t, "de-DE", SystemEnvironment{}.Language())

	t.Setenv("LANG", "C")
	assert.Equal(t, "", SystemEnvironment{}.Language())
}

func TestSystemEnvironment_Timezone(t *testing.T) {
	t.Setenv("TZ", ":Europe/Vienna")
	assert.Equal(t, "Europe/Vienna", SystemEnvironment{}.Timezone())
}

type metaRecorder struct {
	mu  sync.Mutex
	got []event.SessionMeta
	err error
}

func (m *metaRecorder) SendMeta(_ context.Context, meta event.SessionMeta) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.got = append(m.got, meta)
	return m.err
}

func TestReporter_ReportsOnce(t *testing.T) {
	rec := &metaRecorder{}
	r := NewReporter(StaticEnvironment{Width: 10, Height: 20, Lang: "en"}, rec, time.Second, nil)
	select {
	case <-r.Report():
	case <-time.After(5 * time.Second):
		t.Fatal("report did not finish")
	}
	require.Len(t, rec.got, 1)
	assert.Equal(t, 10, rec.got[0].ScreenWidth)
}

func TestReporter_FailureIsSwallowed(t *testing.T) {
	rec := &metaRecorder{err: errors.New("offline")}
	r := NewReporter(StaticEnvironment{}, rec, time.Second, nil)
	select {
	case <-r.Report():
	case <-time.After(5 * time.Second):
		t.Fatal("report did not finish")
	}
	assert.Len(t, rec.got, 1)
}

func TestReporter_NilSender(t *testing.T) {
	r := NewReporter(nil, nil, 0, nil)
	select {
	case <-r.Report():
	case <-time.After(5 * time.Second):
		t.Fatal("report did not finish")
	}
}

type brokenEnvironment struct{ StaticEnvironment }

func (brokenEnvironment) Language() string { panic("navigator gone") }

func TestReporter_EnvironmentPanicIsContained(t *testing.T) {
	rec := &metaRecorder{}
	r := NewReporter(brokenEnvironment{}, rec, time.Second, nil)
	var done <-chan struct{}
	require.NotPanics(t, func() { done = r.Report() })
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("report did not finish")
	}
	assert.Empty(t, rec.got)
}
