package logging

import (
	"context"
	"errors"
	"log/slog"
)

// fanout duplicates records to several handlers, each applying its own
// level gate. Handler errors are collected rather than dropped.
type fanout struct {
	targets []slog.Handler
}

func newFanout(targets ...slog.Handler) *fanout {
	return &fanout{targets: targets}
}

func (f *fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f.targets {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f *fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f.targets {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	targets := make([]slog.Handler, len(f.targets))
	for i, h := range f.targets {
		targets[i] = h.WithAttrs(attrs)
	}
	return &fanout{targets: targets}
}

func (f *fanout) WithGroup(name string) slog.Handler {
	targets := make([]slog.Handler, len(f.targets))
	for i, h := range f.targets {
		targets[i] = h.WithGroup(name)
	}
	return &fanout{targets: targets}
}
