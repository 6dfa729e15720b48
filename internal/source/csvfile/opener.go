package csvfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"midas/internal/domain/models"
	"midas/internal/domain/repository"
	applogger "midas/pkg/logger"
)

// Opener locates and opens the raw CSV source for a symbol.
// The pattern is a file name template where "{symbol}" is replaced by
// the lowercased symbol, e.g. "{symbol}_1m.csv" -> "btcusdt_1m.csv".
type Opener struct {
	dir           string
	pattern       string
	reorderWindow int
	l             *applogger.Logger
}

func NewOpener(dir, pattern string, reorderWindow int, l *applogger.Logger) *Opener {
	if pattern == "" {
		pattern = "{symbol}_1m.csv"
	}
	if reorderWindow < 1 {
		reorderWindow = 1
	}
	return &Opener{dir: dir, pattern: pattern, reorderWindow: reorderWindow, l: l}
}

func (o *Opener) Open(ctx context.Context, symbol string) (repository.RecordReader, error) {
	name := strings.ReplaceAll(o.pattern, "{symbol}", strings.ToLower(symbol))
	path := filepath.Join(o.dir, name)

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", models.ErrSourceUnavailable, path, err)
	}

	r, err := newReader(f, symbol, o.reorderWindow, o.l)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %s: %v", models.ErrSourceUnavailable, path, err)
	}
	return r, nil
}
