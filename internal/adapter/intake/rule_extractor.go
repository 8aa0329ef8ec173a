package intake

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/rl1809/stock-reconciler/internal/core/domain"
)

var (
	// "20 Matite", "- 20 x Matite"
	leadingQty = regexp.MustCompile(`^(\d+)\s*(?:x\s+|pz\.?\s+)?([\p{L}][\p{L}\p{N} .'-]*?)$`)

	// "Matite: 20", "Matite x20", "Matite - 20 pz"
	trailingQty = regexp.MustCompile(`^([\p{L}][\p{L}\p{N} .'-]*?)(?:\s*[:=-]|\s+x)?\s*(\d+)(?:\s*pz\.?)?$`)

	bullet = regexp.MustCompile(`^(?:[-*•]|\d+[.)])\s+`)
)

// RuleExtractor pulls one item per line (or comma separated entry) from
// order-style text. Entries that do not look like an item are ignored.
type RuleExtractor struct{}

func NewRuleExtractor() *RuleExtractor {
	return &RuleExtractor{}
}

func (e *RuleExtractor) Extract(ctx context.Context, text string) ([]domain.ItemRequest, error) {
	var items []domain.ItemRequest

	entries := strings.FieldsFunc(text, func(r rune) bool {
		return r == '\n' || r == ',' || r == ';'
	})
	for _, line := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if item, ok := parseLine(line); ok {
			items = append(items, item)
		}
	}

	return items, nil
}

func parseLine(line string) (domain.ItemRequest, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return domain.ItemRequest{}, false
	}
	// A numbered bullet like "1. 20 Matite" would otherwise read as quantity 1.
	if loc := bullet.FindStringIndex(line); loc != nil && loc[1] < len(line) {
		rest := line[loc[1]:]
		if _, ok := matchLine(rest); ok {
			line = rest
		}
	}
	return matchLine(line)
}

func matchLine(line string) (domain.ItemRequest, bool) {
	if m := leadingQty.FindStringSubmatch(line); m != nil {
		return newItem(m[2], m[1])
	}
	if m := trailingQty.FindStringSubmatch(line); m != nil {
		return newItem(m[1], m[2])
	}
	return domain.ItemRequest{}, false
}

func newItem(name, qty string) (domain.ItemRequest, bool) {
	name = strings.TrimSpace(name)
	n, err := strconv.Atoi(qty)
	if err != nil || name == "" {
		return domain.ItemRequest{}, false
	}
	return domain.ItemRequest{Name: name, QuantityNeeded: n}, true
}
