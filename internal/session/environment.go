package session

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/loykin/tracker/internal/event"
)

// Environment describes the device and embedding context of the page.
type Environment interface {
	Screen() (width, height int)
	Language() string
	Timezone() string
	// Embedded reports whether the page runs inside a frame. An error means
	// the parent context could not be inspected.
	Embedded() (bool, error)
}

// ErrParentInaccessible is returned by Embedded when the parent context
// cannot be compared with the current one.
var ErrParentInaccessible = errors.New("parent context inaccessible")

// StaticEnvironment is an Environment with fixed values.
type StaticEnvironment struct {
	Width, Height int
	Lang          string
	TZ            string
	Iframe        bool
	// ParentErr simulates a cross-origin parent.
	ParentErr error
}

func (e StaticEnvironment) Screen() (int, int)      { return e.Width, e.Height }
func (e StaticEnvironment) Language() string        { return e.Lang }
func (e StaticEnvironment) Timezone() string        { return e.TZ }
func (e StaticEnvironment) Embedded() (bool, error) { return e.Iframe, e.ParentErr }

// SystemEnvironment reads locale settings of the host process.
// It has no screen and is never embedded.
type SystemEnvironment struct{}

func (SystemEnvironment) Screen() (int, int) { return 0, 0 }

// Language converts LC_ALL/LANG (e.g. "de_DE.UTF-8") to a BCP 47 tag.
func (SystemEnvironment) Language() string {
	for _, k := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		v := os.Getenv(k)
		if v == "" || v == "C" || v == "POSIX" {
			continue
		}
		if i := strings.IndexAny(v, ".@"); i >= 0 {
			v = v[:i]
		}
		return strings.ReplaceAll(v, "_", "-")
	}
	return ""
}

func (SystemEnvironment) Timezone() string {
	if tz := os.Getenv("TZ"); tz != "" {
		return strings.TrimPrefix(tz, ":")
	}
	if name := time.Local.String(); name != "Local" {
		return name
	}
	return ""
}

func (SystemEnvironment) Embedded() (bool, error) { return false, nil }

// Gather builds the session metadata. An inaccessible parent counts as embedded.
func Gather(env Environment) event.SessionMeta {
	w, h := env.Screen()
	embedded, err := env.Embedded()
	if err != nil {
		embedded = true
	}
	return event.SessionMeta{
		ScreenWidth:  w,
		ScreenHeight: h,
		Language:     env.Language(),
		Timezone:     env.Timezone(),
		IsIframe:     embedded,
	}
}
