package main

import (
	"context"
	"encoding/json"
	"io"

	"github.com/loykin/tracker"
)

func runMeta(ctx context.Context, flags *MetaFlags, out io.Writer) error {
	fc, _, closer, err := loadConfig(flags.ConfigPath)
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	meta, err := tracker.SendSessionMeta(ctx, fc)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}
