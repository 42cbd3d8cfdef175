package source

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/mnemosync/mnemosync/internal/reconcile"
)

// writeTable writes content to a temporary .tsv file and returns its path.
func writeTable(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "cards.tsv")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write table: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		content string
		opts    Options
		want    []reconcile.SourceRecord
	}{
		{
			name:    "single row",
			content: "Front\tBack\tTags\nfoo\tbar\tt1\n",
			want: []reconcile.SourceRecord{
				{Front: "foo", Back: "bar", Tags: reconcile.Tags{"t1"}},
			},
		},
		{
			name:    "columns in any order with extras",
			content: "Notes\tTags\tBack\tFront\nignored\tgreeting\thello world\thi\n",
			want: []reconcile.SourceRecord{
				{Front: "hi", Back: "hello world", Tags: reconcile.Tags{"greeting"}},
			},
		},
		{
			name:    "duplicates are kept in file order",
			content: "Front\tBack\tTags\nX\t1\t\nX\t2\t\n",
			want: []reconcile.SourceRecord{
				{Front: "X", Back: "1", Tags: reconcile.Tags{}},
				{Front: "X", Back: "2", Tags: reconcile.Tags{}},
			},
		},
		{
			name:    "tags cell is one tag by default",
			content: "Front\tBack\tTags\nq\ta\tverbs irregular\n",
			want: []reconcile.SourceRecord{
				{Front: "q", Back: "a", Tags: reconcile.Tags{"verbs irregular"}},
			},
		},
		{
			name:    "tag separator splits the cell",
			content: "Front\tBack\tTags\nq\ta\tverbs irregular verbs\n",
			opts:    Options{TagSeparator: " "},
			want: []reconcile.SourceRecord{
				{Front: "q", Back: "a", Tags: reconcile.Tags{"irregular", "verbs"}},
			},
		},
		{
			name:    "short rows are padded and blank rows skipped",
			content: "Front\tBack\tTags\nq\ta\n\t\t\n",
			want: []reconcile.SourceRecord{
				{Front: "q", Back: "a", Tags: reconcile.Tags{}},
			},
		},
		{
			name:    "byte order mark and windows line endings",
			content: "\ufeffFront\tBack\tTags\r\nq\ta\tx\r\n",
			want: []reconcile.SourceRecord{
				{Front: "q", Back: "a", Tags: reconcile.Tags{"x"}},
			},
		},
		{
			name:    "quotes are literal text",
			content: "Front\tBack\tTags\nhi\t\"Hello\" means hi\tgreet\ncat\tchat\tanimal\ndog\tchien\tanimal\n",
			want: []reconcile.SourceRecord{
				{Front: "hi", Back: "\"Hello\" means hi", Tags: reconcile.Tags{"greet"}},
				{Front: "cat", Back: "chat", Tags: reconcile.Tags{"animal"}},
				{Front: "dog", Back: "chien", Tags: reconcile.Tags{"animal"}},
			},
		},
		{
			name:    "unbalanced quote does not join rows",
			content: "Front\tBack\tTags\n\"open\tstill open\t\nnext\trow\t\n",
			want: []reconcile.SourceRecord{
				{Front: "\"open", Back: "still open", Tags: reconcile.Tags{}},
				{Front: "next", Back: "row", Tags: reconcile.Tags{}},
			},
		},
		{
			name:    "header only",
			content: "Front\tBack\tTags\n",
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTable(t, tt.content)

			got, err := Load(path, tt.opts)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Load() =\n%+v\nwant\n%+v", got, tt.want)
			}
		})
	}
}

func TestLoadNotFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.tsv")

	_, err := Load(path, Options{})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if errors.Is(err, ErrParse) {
		t.Error("not-found error should not match ErrParse")
	}
	if !strings.Contains(err.Error(), path) {
		t.Errorf("expected path in message, got %q", err.Error())
	}
}

func TestLoadParseErrors(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantLine int
		wantMsg  string
	}{
		{"empty file", "", 0, "missing header row"},
		{"missing column", "Front\tBack\nfoo\tbar\n", 1, "missing required columns: Tags"},
		{"duplicate column", "Front\tBack\tTags\tBack\n", 1, `duplicate column "Back"`},
		{"empty front", "Front\tBack\tTags\nfoo\tbar\t\n\tlonely\t\n", 3, "empty Front"},
		{"invalid utf-8", "Front\tBack\tTags\nfoo\t\xff\t\n", 2, "invalid UTF-8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTable(t, tt.content)

			_, err := Load(path, Options{})
			if !errors.Is(err, ErrParse) {
				t.Fatalf("expected ErrParse, got %v", err)
			}

			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("expected *ParseError, got %T", err)
			}
			if perr.Path != path {
				t.Errorf("expected path %s, got %s", path, perr.Path)
			}
			if perr.Line != tt.wantLine {
				t.Errorf("expected line %d, got %d", tt.wantLine, perr.Line)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("expected %q in %q", tt.wantMsg, err.Error())
			}
		})
	}
}

func TestLoadDirectoryIsParseError(t *testing.T) {
	_, err := Load(t.TempDir(), Options{})
	if !errors.Is(err, ErrParse) {
		t.Fatalf("expected ErrParse for a directory, got %v", err)
	}
}
