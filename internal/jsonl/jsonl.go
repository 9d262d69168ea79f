// Package jsonl is the append-only, one-object-per-line log the consumer writes
// and the report replays.
package jsonl

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// AppendLog is safe for concurrent use; every Append reaches the disk before it
// returns.
type AppendLog struct {
	mu   sync.Mutex
	path string
	file *os.File
}

func Open(path string) (*AppendLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory for %s: %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log %s: %w", path, err)
	}
	return &AppendLog{path: path, file: f}, nil
}

func (l *AppendLog) Path() string {
	return l.path
}

// Append writes obj as one compact line. obj must be a single JSON value.
func (l *AppendLog) Append(obj []byte) error {
	var buf bytes.Buffer
	if err := json.Compact(&buf, obj); err != nil {
		return fmt.Errorf("not a JSON value: %w", err)
	}
	buf.WriteByte('\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return fmt.Errorf("log %s is closed", l.path)
	}
	if _, err := l.file.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to append to %s: %w", l.path, err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync %s: %w", l.path, err)
	}
	return nil
}

func (l *AppendLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// Record is one decoded line.
type Record struct {
	Line   int
	Raw    []byte
	Object map[string]json.RawMessage
}

type ParseError struct {
	Path string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.Path, e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Replay reads path in order. Lines that are not JSON objects become parse
// errors and reading goes on; blank lines are ignored. A missing file replays
// as empty.
func Replay(path string) ([]Record, []*ParseError, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log %s: %w", path, err)
	}
	defer f.Close()

	var records []Record
	var parseErrs []*ParseError
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			parseErrs = append(parseErrs, &ParseError{Path: path, Line: line, Err: err})
			continue
		}
		if obj == nil {
			parseErrs = append(parseErrs, &ParseError{Path: path, Line: line, Err: errors.New("not a JSON object")})
			continue
		}
		records = append(records, Record{Line: line, Raw: bytes.Clone(raw), Object: obj})
	}
	if err := scanner.Err(); err != nil {
		return records, parseErrs, fmt.Errorf("failed to read log %s: %w", path, err)
	}
	return records, parseErrs, nil
}
