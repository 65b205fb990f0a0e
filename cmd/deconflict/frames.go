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

	"github.com/signalsfoundry/drone-deconfliction/kb"
	"github.com/signalsfoundry/drone-deconfliction/timectrl"
)

// frame is one line of the animation stream.
type frame struct {
	Time      string                `json:"time"`
	Positions map[string][3]float64 `json:"positions"`
}

// writeFrames samples every registered mission at each tick across the
// union of mission windows and writes one JSON object per line.
func writeFrames(ctx context.Context, w io.Writer, store *kb.KnowledgeBase, tick time.Duration) (int, error) {
	span, ok := store.Span()
	if !ok {
		return 0, errors.New("no missions registered")
	}

	enc := json.NewEncoder(w)
	tc := timectrl.NewTimeController(span.StartTime, tick, timectrl.Accelerated)
	tc.AddListener(func(now time.Time) error {
		positions, err := store.PositionsAt(now)
		if err != nil {
			return err
		}
		return enc.Encode(frame{Time: now.UTC().Format(time.RFC3339Nano), Positions: positions})
	})
	return tc.Run(ctx, span.EndTime)
}

func writeFramesFile(ctx context.Context, path string, store *kb.KnowledgeBase, tick time.Duration) (int, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	bw := bufio.NewWriter(f)
	n, err := writeFrames(ctx, bw, store, tick)
	if err == nil {
		err = bw.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fmt.Errorf("%s: %w", path, err)
	}
	return n, nil
}
