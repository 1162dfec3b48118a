// Package materials loads the reference documents that make up the corpus.
package materials

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/capitalize-ai/sales-consultant/pkg/logger"
	"github.com/capitalize-ai/sales-consultant/pkg/tokens"
)

// Separator joins the extracted texts.
const Separator = "\n\n"

// FileStat describes one loaded file.
type FileStat struct {
	Name   string `json:"name"`
	Tokens int    `json:"tokens"`
	Chars  int    `json:"chars"`
}

// Corpus is the concatenated text of every loaded file.
type Corpus struct {
	Text    string
	Tokens  int
	Chars   int
	Files   []FileStat
	Skipped []string
}

// Loader reads a materials directory.
type Loader struct {
	extractors map[string]ExtractFunc
	logger     *logger.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithExtractor registers or replaces the extractor for an extension such as ".json".
func WithExtractor(ext string, fn ExtractFunc) Option {
	return func(l *Loader) {
		l.extractors[strings.ToLower(ext)] = fn
	}
}

// NewLoader creates a loader for the default file types.
func NewLoader(log *logger.Logger, opts ...Option) *Loader {
	l := &Loader{
		extractors: DefaultExtractors(),
		logger:     log,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Supports reports whether files named like name are loaded.
func (l *Loader) Supports(name string) bool {
	_, ok := l.extractors[strings.ToLower(filepath.Ext(name))]
	return ok
}

// Load extracts every supported file in dir. It never fails: a missing
// directory yields an empty corpus and broken files are skipped.
func (l *Loader) Load(ctx context.Context, dir string) *Corpus {
	corpus := &Corpus{}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			l.logger.Warn("materials directory not found", zap.String("dir", dir))
		} else {
			l.logger.Error("failed to read materials directory", zap.String("dir", dir), zap.Error(err))
		}
		return corpus
	}

	texts := make([]string, 0, len(entries))
	for _, entry := range entries {
		if ctx.Err() != nil {
			l.logger.Warn("materials load interrupted", zap.Error(ctx.Err()))
			break
		}
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		extract, ok := l.extractors[strings.ToLower(filepath.Ext(name))]
		if !ok {
			continue
		}

		text, err := safeExtract(extract, filepath.Join(dir, name))
		if err != nil {
			l.logger.Error("failed to load material", zap.String("file", name), zap.Error(err))
			corpus.Skipped = append(corpus.Skipped, name)
			continue
		}

		stat := FileStat{
			Name:   name,
			Tokens: tokens.Estimate(text),
			Chars:  tokens.Chars(text),
		}
		corpus.Files = append(corpus.Files, stat)
		corpus.Tokens += stat.Tokens
		corpus.Chars += stat.Chars
		texts = append(texts, text)
	}

	corpus.Text = strings.Join(texts, Separator)

	l.logger.Info("materials loaded",
		zap.String("dir", dir),
		zap.Int("files", len(corpus.Files)),
		zap.Int("skipped", len(corpus.Skipped)),
		zap.Int("tokens", corpus.Tokens),
		zap.Int("chars", corpus.Chars),
	)

	return corpus
}

// safeExtract turns parser panics on malformed input into errors.
func safeExtract(fn ExtractFunc, path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parser panic: %v", r)
		}
	}()
	return fn(path)
}
