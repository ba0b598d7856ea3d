package ingest

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fastjson"
)

// maxLineSize bounds one JSON Lines record.
const maxLineSize = 64 << 20

// FileSource reads JSON and JSON Lines files, walking directories in
// lexical order. A .json file holding a top-level array yields one record
// per element; .jsonl and .ndjson files yield one record per line.
// Other files are skipped.
type FileSource struct {
	FS       billy.Filesystem
	Paths    []string
	Selector *Selector
	Log      logrus.FieldLogger
}

func (s *FileSource) Records(ctx context.Context, fn func(Record) error) error {
	for _, root := range s.Paths {
		err := util.Walk(s.FS, root, func(p string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				return nil
			}
			return s.readFile(ctx, p, fn)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *FileSource) readFile(ctx context.Context, path string, fn func(Record) error) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return s.readJSON(ctx, path, fn)
	case ".jsonl", ".ndjson":
		return s.readLines(ctx, path, fn)
	default:
		if s.Log != nil {
			s.Log.WithField("file", path).Debug("skipping unsupported file")
		}
		return nil
	}
}

func (s *FileSource) readJSON(ctx context.Context, path string, fn func(Record) error) error {
	content, err := util.ReadFile(s.FS, path)
	if err != nil {
		return err
	}
	return splitJSON(ctx, s.Selector, path, content, fn)
}

func (s *FileSource) readLines(ctx context.Context, path string, fn func(Record) error) error {
	f, err := s.FS.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }() // safe to ignore
	return scanLines(ctx, s.Selector, path, f, fn)
}

// BytesSource yields the documents of an in-memory payload, such as a
// request body. Lines selects JSON Lines framing.
type BytesSource struct {
	ID       string
	Data     []byte
	Lines    bool
	Selector *Selector
}

func (s *BytesSource) Records(ctx context.Context, fn func(Record) error) error {
	if s.Lines {
		return scanLines(ctx, s.Selector, s.ID, bytes.NewReader(s.Data), fn)
	}
	return splitJSON(ctx, s.Selector, s.ID, s.Data, fn)
}

// splitJSON emits content, or each element when it is a top-level array.
func splitJSON(ctx context.Context, sel *Selector, id string, content []byte, fn func(Record) error) error {
	v, err := fastjson.ParseBytes(content)
	if err != nil {
		return fmt.Errorf("failed to parse json %s: %w", id, err)
	}
	if v.Type() != fastjson.TypeArray {
		return emit(ctx, sel, id, content, fn)
	}
	elems, _ := v.Array()
	for i, el := range elems {
		if err := emit(ctx, sel, fmt.Sprintf("%s[%d]", id, i), el.MarshalTo(nil), fn); err != nil {
			return err
		}
	}
	return nil
}

func scanLines(ctx context.Context, sel *Selector, id string, r io.Reader, fn func(Record) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	line := 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		// the scanner reuses its buffer
		doc := append([]byte(nil), raw...)
		if err := emit(ctx, sel, fmt.Sprintf("%s:%d", id, line), doc, fn); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read %s: %w", id, err)
	}
	return nil
}

// Open builds a source for the given paths: .db files are read as SQLite
// result tables from the filesystem root, everything else through fs.
func Open(fs billy.Filesystem, paths []string, sel *Selector, log logrus.FieldLogger) Source {
	var (
		out   Multi
		files []string
	)
	flush := func() {
		if len(files) > 0 {
			out = append(out, &FileSource{FS: fs, Paths: files, Selector: sel, Log: log})
			files = nil
		}
	}
	for _, p := range paths {
		if strings.EqualFold(filepath.Ext(p), ".db") {
			flush()
			out = append(out, &SQLiteSource{Path: filepath.Join(fs.Root(), p), Selector: sel})
			continue
		}
		files = append(files, p)
	}
	flush()
	return out
}
