package intake

import (
	"context"
	"errors"
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/rl1809/stock-reconciler/internal/core/domain"
)

var ErrNotText = errors.New("document is not valid UTF-8 text")

// TextParser reads plain text documents from disk. The path is used as the
// document source.
type TextParser struct{}

func NewTextParser() *TextParser {
	return &TextParser{}
}

func (p *TextParser) Parse(ctx context.Context, path string) (domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return domain.Document{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Document{}, err
	}
	if !utf8.Valid(data) {
		return domain.Document{}, fmt.Errorf("%s: %w", path, ErrNotText)
	}

	return domain.Document{Source: path, Text: string(data)}, nil
}
