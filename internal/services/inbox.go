package services

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/miradorstack/mirador-triage/internal/repo"
)

// isBundle reports whether name is a bundle the inbox should pick up.
func isBundle(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, reportSuffix) {
		return false
	}
	_, err := repo.FormatOf(base)
	return err == nil
}

// DrainInbox processes every bundle already present in dir, in name order.
func (s *TriageService) DrainInbox(ctx context.Context, dir, outDir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && isBundle(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.processLogged(ctx, filepath.Join(dir, name), outDir)
	}
	return nil
}

// WatchInbox drains dir and then triages every bundle created or rewritten in
// it, writing reports into outDir. It blocks until ctx is done.
func (s *TriageService) WatchInbox(ctx context.Context, dir, outDir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return err
	}
	s.logger.Info("watching inbox", slog.String("dir", dir), slog.String("out", outDir))

	if err := s.DrainInbox(ctx, dir, outDir); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !isBundle(event.Name) {
				continue
			}
			s.processLogged(ctx, event.Name, outDir)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("inbox watcher error", slog.Any("error", err))
		}
	}
}

func (s *TriageService) processLogged(ctx context.Context, path, outDir string) {
	if _, err := s.ProcessFile(ctx, path, outDir); err != nil {
		// partial writes fail to parse and are retried on the next Write event
		s.logger.Error("bundle processing failed", slog.String("bundle", path), slog.Any("error", err))
	}
}
