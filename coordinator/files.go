package coordinator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/absmach/fedavg/pkg/fl"
)

const (
	DefPollInterval  = time.Second
	GlobalFileName   = "global_parameters.cbor"
	clientFileFormat = "client_%d_parameters.cbor"
)

var _ Transport = (*fileTransport)(nil)

// fileTransport exchanges parameter sets through a shared directory. Each
// client overwrites its own file; a file is delivered again whenever its
// modification time changes.
type fileTransport struct {
	dir      string
	clients  int
	interval time.Duration
	logger   *slog.Logger
	stat     func(name string) (os.FileInfo, error)

	mu     sync.Mutex
	seen   map[int]time.Time
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewFileTransport(dir string, clients int, interval time.Duration, logger *slog.Logger) (Transport, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create exchange directory: %w", err)
	}
	if interval <= 0 {
		interval = DefPollInterval
	}

	return &fileTransport{
		dir:      dir,
		clients:  clients,
		interval: interval,
		logger:   logger,
		stat:     os.Stat,
		seen:     make(map[int]time.Time, clients),
	}, nil
}

// ClientFile returns the path client id writes its update to.
func ClientFile(dir string, id int) string {
	return filepath.Join(dir, fmt.Sprintf(clientFileFormat, id))
}

func (t *fileTransport) Subscribe(ctx context.Context, handler Handler) error {
	t.mu.Lock()
	if t.cancel != nil {
		t.mu.Unlock()

		return errors.New("already subscribed")
	}
	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.mu.Unlock()

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()

		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()

		for {
			t.poll(ctx, handler)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	t.logger.InfoContext(ctx, "Polling client parameter files",
		slog.String("dir", t.dir),
		slog.String("interval", t.interval.String()))

	return nil
}

// poll delivers every client file that changed since the previous poll,
// in ascending client order.
func (t *fileTransport) poll(ctx context.Context, handler Handler) {
	for id := range t.clients {
		if ctx.Err() != nil {
			return
		}

		path := ClientFile(t.dir, id)
		info, err := t.stat(path)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				t.logger.WarnContext(ctx, "Failed to stat client file", slog.String("path", path), slog.Any("error", err))
			}

			continue
		}

		t.mu.Lock()
		last, ok := t.seen[id]
		t.mu.Unlock()
		if ok && last.Equal(info.ModTime()) {
			continue
		}

		data, modTime, err := readClientFile(path)
		if err != nil {
			t.logger.WarnContext(ctx, "Failed to read client file", slog.String("path", path), slog.Any("error", err))

			continue
		}
		if ok && last.Equal(modTime) {
			continue
		}

		t.mu.Lock()
		t.seen[id] = modTime
		t.mu.Unlock()

		if err := handler(ctx, id, data); err != nil {
			t.logger.WarnContext(ctx, "Failed to handle client file", slog.Int("client_id", id), slog.Any("error", err))
		}
	}
}

// readClientFile returns the contents of path together with the modification
// time of the same open file, so a write landing after the directory stat is
// attributed to the bytes actually read.
func readClientFile(path string) ([]byte, time.Time, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, time.Time{}, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, time.Time{}, err
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, time.Time{}, err
	}

	return data, info.ModTime(), nil
}

func (t *fileTransport) Publish(_ context.Context, payload []byte) error {
	return fl.WriteFileAtomic(filepath.Join(t.dir, GlobalFileName), payload, 0o644)
}

func (t *fileTransport) Close(_ context.Context) error {
	t.mu.Lock()
	cancel := t.cancel
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	t.wg.Wait()

	return nil
}
