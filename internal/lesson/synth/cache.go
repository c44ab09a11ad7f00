package synth

import (
	"context"
	"crypto/md5"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// CachedEngine wraps an engine with a content-addressed audio cache: one
// file per text+voice+speed combination, keyed by md5. Re-generating a
// lesson with an unchanged script touches the synthesis service only for
// changed lines.
type CachedEngine struct {
	inner Engine
	dir   string
}

func NewCachedEngine(inner Engine, dir string) (*CachedEngine, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}
	return &CachedEngine{inner: inner, dir: dir}, nil
}

func (c *CachedEngine) Name() string { return c.inner.Name() }

func (c *CachedEngine) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	path := filepath.Join(c.dir, c.key(req)+".audio")

	if data, err := os.ReadFile(path); err == nil && len(data) > 0 {
		logrus.WithField("path", path).Debug("synthesis cache hit")
		return data, nil
	}

	data, err := c.inner.Synthesize(ctx, req)
	if err != nil {
		return nil, err
	}
	if writeErr := os.WriteFile(path, data, 0644); writeErr != nil {
		logrus.WithError(writeErr).Warn("failed to write synthesis cache entry")
	}
	return data, nil
}

func (c *CachedEngine) Voices(ctx context.Context) ([]string, error) {
	return c.inner.Voices(ctx)
}

func (c *CachedEngine) key(req Request) string {
	sum := md5Sum(strings.Join([]string{
		c.inner.Name(),
		req.Voice.SpeakerID,
		req.Voice.EngineVoice,
		string(req.Emotion),
		fmt.Sprintf("%.3f", req.Speed),
		fmt.Sprintf("%d", req.SampleRate),
		req.Text,
	}, "|"))
	return sum[:16]
}

// Stats walks the cache directory and reports file count and size.
func (c *CachedEngine) Stats() (CacheStats, error) {
	stats := CacheStats{Directory: c.dir}

	err := filepath.Walk(c.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // continue walking despite errors
		}
		if !info.IsDir() && strings.HasSuffix(info.Name(), ".audio") {
			stats.CachedFiles++
			stats.TotalSizeMB += float64(info.Size()) / (1024 * 1024)
		}
		return nil
	})
	return stats, err
}

// Clear removes all cached entries.
func (c *CachedEngine) Clear() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".audio") {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

func md5Sum(s string) string {
	h := md5.New()
	io.WriteString(h, s)
	return fmt.Sprintf("%x", h.Sum(nil))
}
