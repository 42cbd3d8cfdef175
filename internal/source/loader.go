// Package source loads flashcard tables from tab-separated files.
package source

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/mnemosync/mnemosync/internal/reconcile"
)

// Column names the header row must contain. Matching is case-sensitive;
// surrounding whitespace is ignored and column order is free.
const (
	ColumnFront = "Front"
	ColumnBack  = "Back"
	ColumnTags  = "Tags"
)

const utf8BOM = "\ufeff"

// maxLineBytes bounds a single row.
const maxLineBytes = 16 * 1024 * 1024

// Options tunes how rows become records.
type Options struct {
	// TagSeparator splits the Tags cell into several tags when non-empty.
	// By default the whole cell is a single tag.
	TagSeparator string
}

// header maps required column names to their index in a row.
type header struct {
	front, back, tags int
}

// Load reads the table at path and returns one record per non-blank row, in
// file order. Rows sharing a front are all returned; callers decide which wins.
//
// A missing file yields an error matching ErrNotFound. Any other failure
// yields a *ParseError.
//
// Example:
//
//	records, err := source.Load("cards.tsv", source.Options{})
//	if errors.Is(err, source.ErrNotFound) {
//	    // fix the path
//	}
func Load(path string, opts Options) ([]reconcile.SourceRecord, error) {
	// #nosec G304 - path comes from the CLI
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, &ParseError{Path: path, Err: err}
	}
	defer f.Close()

	records, err := Read(f, opts)
	if err != nil {
		var perr *ParseError
		if errors.As(err, &perr) {
			perr.Path = path
			return nil, perr
		}
		return nil, &ParseError{Path: path, Err: err}
	}
	return records, nil
}

// Read parses a table from r. Errors are *ParseError values with an empty Path.
//
// Every line is one row and every tab starts a new cell. Quote characters are
// ordinary text, so a back such as `"Hello" means hi` is kept as written and
// cannot swallow the rows after it. A trailing carriage return is dropped.
func Read(r io.Reader, opts Options) ([]reconcile.SourceRecord, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	line := 0
	next := func() ([]string, bool) {
		if !sc.Scan() {
			return nil, false
		}
		line++
		text := strings.TrimSuffix(sc.Text(), "\r")
		return strings.Split(text, "\t"), true
	}

	first, ok := next()
	if !ok {
		if err := sc.Err(); err != nil {
			return nil, &ParseError{Line: 1, Err: err}
		}
		return nil, &ParseError{Err: errors.New("missing header row")}
	}

	cols, err := parseHeader(first)
	if err != nil {
		return nil, &ParseError{Line: 1, Err: err}
	}

	var records []reconcile.SourceRecord
	for {
		row, ok := next()
		if !ok {
			break
		}

		if isBlankRow(row) {
			continue
		}
		for _, c := range row {
			if !utf8.ValidString(c) {
				return nil, &ParseError{Line: line, Err: errors.New("invalid UTF-8")}
			}
		}

		rec := reconcile.SourceRecord{
			Front: cell(row, cols.front),
			Back:  cell(row, cols.back),
			Tags:  splitTags(cell(row, cols.tags), opts.TagSeparator),
		}
		if rec.Front == "" {
			return nil, &ParseError{Line: line, Err: fmt.Errorf("empty %s", ColumnFront)}
		}
		records = append(records, rec)
	}

	if err := sc.Err(); err != nil {
		return nil, &ParseError{Line: line + 1, Err: err}
	}

	return records, nil
}

func parseHeader(row []string) (header, error) {
	if len(row) > 0 {
		row[0] = strings.TrimPrefix(row[0], utf8BOM)
	}

	idx := make(map[string]int, len(row))
	for i, name := range row {
		name = strings.TrimSpace(name)
		if _, dup := idx[name]; dup && name != "" {
			return header{}, fmt.Errorf("duplicate column %q", name)
		}
		idx[name] = i
	}

	var missing []string
	for _, name := range []string{ColumnFront, ColumnBack, ColumnTags} {
		if _, ok := idx[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return header{}, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}

	return header{
		front: idx[ColumnFront],
		back:  idx[ColumnBack],
		tags:  idx[ColumnTags],
	}, nil
}

// cell returns row[i], or "" when the row is short.
func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func splitTags(raw, sep string) reconcile.Tags {
	if sep == "" {
		return reconcile.NewTags(raw)
	}
	return reconcile.NewTags(strings.Split(raw, sep)...)
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
