package intake

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextParser_ReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "order_001.txt")
	require.NoError(t, os.WriteFile(path, []byte("Penne 50\nMatite 80\n"), 0o600))

	doc, err := NewTextParser().Parse(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, path, doc.Source)
	assert.Equal(t, "Penne 50\nMatite 80\n", doc.Text)
}

func TestTextParser_MissingFile(t *testing.T) {
	_, err := NewTextParser().Parse(context.Background(), filepath.Join(t.TempDir(), "nope.txt"))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestTextParser_RejectsBinary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.pdf")
	require.NoError(t, os.WriteFile(path, []byte{0xff, 0xfe, 0x00, 0x81}, 0o600))

	_, err := NewTextParser().Parse(context.Background(), path)
	assert.ErrorIs(t, err, ErrNotText)
}

func TestTextParser_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewTextParser().Parse(ctx, "whatever.txt")
	assert.ErrorIs(t, err, context.Canceled)
}
