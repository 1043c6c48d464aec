package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/loykin/tracker"
	"github.com/loykin/tracker/pkg/client"
)

// replayEntry is one line of a recording.
type replayEntry struct {
	AtMs   float64        `json:"at_ms"`
	Signal tracker.Signal `json:"signal"`
}

// parseRecording reads JSON lines. Blank lines and lines starting with # are skipped.
func parseRecording(r io.Reader) ([]replayEntry, error) {
	var out []replayEntry
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		raw := sc.Bytes()
		if len(raw) == 0 || raw[0] == '#' {
			continue
		}
		var e replayEntry
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if e.Signal.Kind == "" {
			return nil, fmt.Errorf("line %d: signal kind required", line)
		}
		if n := len(out); n > 0 && e.AtMs < out[n-1].AtMs {
			return nil, fmt.Errorf("line %d: at_ms goes backwards", line)
		}
		out = append(out, e)
	}
	return out, sc.Err()
}

// signalTarget receives replayed signals.
type signalTarget interface {
	observe(ctx context.Context, sig tracker.Signal) error
	unload(ctx context.Context) error
}

type localTarget struct{ col *tracker.Collector }

func (l localTarget) observe(_ context.Context, sig tracker.Signal) error { return l.col.Observe(sig) }
func (l localTarget) unload(ctx context.Context) error                    { return l.col.Unload(ctx) }

type remoteTarget struct{ cl *client.Client }

func (r remoteTarget) observe(ctx context.Context, sig tracker.Signal) error {
	_, err := r.cl.Send(ctx, toClientSignal(sig))
	return err
}

func (r remoteTarget) unload(ctx context.Context) error { return r.cl.Unload(ctx) }

func toClientSignal(sig tracker.Signal) client.Signal {
	out := client.Signal{
		Kind:    string(sig.Kind),
		X:       sig.X,
		Y:       sig.Y,
		Value:   sig.Value,
		ScrollX: sig.ScrollX,
		ScrollY: sig.ScrollY,
		Hidden:  sig.Hidden,
		Width:   sig.Width,
		Height:  sig.Height,
	}
	if sig.Target != nil {
		out.Target = &client.Element{ID: sig.Target.ID, Tag: sig.Target.Tag, Class: sig.Target.Class}
	}
	return out
}

func runReplay(ctx context.Context, flags *ReplayFlags, out io.Writer) error {
	if flags.File == "" {
		return errors.New("--file is required")
	}
	if flags.Speed < 0 {
		return fmt.Errorf("--speed must not be negative, got %v", flags.Speed)
	}
	f, err := os.Open(filepath.Clean(flags.File))
	if err != nil {
		return err
	}
	entries, err := parseRecording(f)
	_ = f.Close()
	if err != nil {
		return fmt.Errorf("parse %s: %w", flags.File, err)
	}

	fc, logger, closer, err := loadConfig(flags.ConfigPath)
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	var target signalTarget
	if flags.APIUrl != "" {
		target = remoteTarget{cl: client.New(client.Config{BaseURL: flags.APIUrl, Timeout: flags.APITimeout, Logger: logger})}
	} else {
		col, err := tracker.NewFromConfig(fc, logger)
		if err != nil {
			return err
		}
		if _, err := col.Start(); err != nil {
			return err
		}
		target = localTarget{col: col}
	}

	var prev float64
	for i, e := range entries {
		if err := wait(ctx, e.AtMs-prev, flags.Speed); err != nil {
			return errors.Join(err, abandon(ctx, target, fc.Tracker.UnloadGrace))
		}
		prev = e.AtMs
		if err := target.observe(ctx, e.Signal); err != nil {
			logger.Warn("signal rejected", "index", i, "kind", e.Signal.Kind, "err", err)
		}
	}

	unloadCtx, cancel := context.WithTimeout(ctx, fc.Tracker.UnloadGrace+fc.Tracker.RequestTimeout)
	defer cancel()
	if err := target.unload(unloadCtx); err != nil {
		return fmt.Errorf("unload: %w", err)
	}
	_, _ = fmt.Fprintf(out, "replayed %d signals\n", len(entries))
	return nil
}

// abandon unloads target after ctx was cancelled so buffered signals are
// still delivered within grace.
func abandon(ctx context.Context, target signalTarget, grace time.Duration) error {
	uctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), grace)
	defer cancel()
	if err := target.unload(uctx); err != nil {
		return fmt.Errorf("unload: %w", err)
	}
	return nil
}

// wait sleeps for deltaMs scaled by speed. Speed 0 does not wait.
func wait(ctx context.Context, deltaMs, speed float64) error {
	if speed == 0 || deltaMs <= 0 {
		return ctx.Err()
	}
	d := time.Duration(deltaMs / speed * float64(time.Millisecond))
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
