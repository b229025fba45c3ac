package coordinator

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/absmach/fedavg/pkg/fl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollRecordsModTimeOfReadFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tr, err := NewFileTransport(dir, 1, time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	ft := tr.(*fileTransport)

	path := ClientFile(dir, 0)
	older := time.Now().Add(-time.Minute)
	require.NoError(t, fl.WriteFileAtomic(path, []byte("first"), 0o644))
	require.NoError(t, os.Chtimes(path, older, older))

	// The client replaces its file right after the directory stat.
	replaced := false
	ft.stat = func(name string) (os.FileInfo, error) {
		info, err := os.Stat(name)
		if !replaced {
			replaced = true
			require.NoError(t, fl.WriteFileAtomic(path, []byte("second"), 0o644))
		}

		return info, err
	}

	var got []string
	handler := func(_ context.Context, _ int, payload []byte) error {
		got = append(got, string(payload))

		return nil
	}

	ft.poll(ctx, handler)
	ft.poll(ctx, handler)
	assert.Equal(t, []string{"second"}, got, "a replaced file must be delivered once")

	later := time.Now().Add(time.Minute)
	require.NoError(t, fl.WriteFileAtomic(path, []byte("third"), 0o644))
	require.NoError(t, os.Chtimes(path, later, later))
	ft.poll(ctx, handler)
	assert.Equal(t, []string{"second", "third"}, got)
}
