// Package tsv reads the tab-delimited, optionally gzipped tables used for
// evidence and reference inputs.
package tsv

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Reader reads header-led tab-delimited rows. Lines starting with # and
// blank lines are skipped.
type Reader struct {
	name       string
	reader     *bufio.Reader
	file       *os.File
	gzipReader *gzip.Reader
	lineNumber int
	header     []string
	columns    map[string]int
}

// Row is one data line addressed by header column name.
type Row struct {
	Line   int
	fields []string
	reader *Reader
}

// Open opens a plain or gzipped table and parses its header. "-" reads stdin.
// Every column in required must be present in the header.
func Open(path string, required ...string) (*Reader, error) {
	if path == "-" {
		return NewReader(os.Stdin, "stdin", required...)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open table: %w", err)
	}

	r := &Reader{name: path, file: file}

	// gzip magic number is 0x1f 0x8b
	buf := make([]byte, 2)
	n, err := io.ReadFull(file, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		file.Close()
		return nil, fmt.Errorf("read table header: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		file.Close()
		return nil, fmt.Errorf("seek table: %w", err)
	}

	if n == 2 && buf[0] == 0x1f && buf[1] == 0x8b {
		r.gzipReader, err = gzip.NewReader(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		r.reader = bufio.NewReader(r.gzipReader)
	} else {
		r.reader = bufio.NewReader(file)
	}

	if err := r.parseHeader(required); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

// NewReader creates a reader over an uncompressed stream.
func NewReader(rd io.Reader, name string, required ...string) (*Reader, error) {
	r := &Reader{name: name, reader: bufio.NewReader(rd)}
	if err := r.parseHeader(required); err != nil {
		return nil, err
	}
	return r, nil
}

// readLine returns the next non-comment, non-blank line or io.EOF.
func (r *Reader) readLine() (string, error) {
	for {
		line, err := r.reader.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			return "", err
		}
		r.lineNumber++

		line = strings.TrimRight(line, "\r\n")
		if line == "" || strings.HasPrefix(line, "#") {
			if err == io.EOF {
				return "", io.EOF
			}
			continue
		}
		return line, nil
	}
}

func (r *Reader) parseHeader(required []string) error {
	line, err := r.readLine()
	if err == io.EOF {
		return r.errorf("no header line found")
	}
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}

	r.header = strings.Split(line, "\t")
	r.columns = make(map[string]int, len(r.header))
	for i, col := range r.header {
		r.columns[strings.TrimSpace(col)] = i
	}
	for _, col := range required {
		if _, ok := r.columns[col]; !ok {
			return r.errorf("required column '%s' not found in header", col)
		}
	}
	return nil
}

// Next returns the next row, or nil, nil at end of input.
func (r *Reader) Next() (*Row, error) {
	line, err := r.readLine()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read line: %w", err)
	}
	return &Row{Line: r.lineNumber, fields: strings.Split(line, "\t"), reader: r}, nil
}

// Header returns the header column names.
func (r *Reader) Header() []string {
	return r.header
}

// HasColumn reports whether the header contains col.
func (r *Reader) HasColumn(col string) bool {
	_, ok := r.columns[col]
	return ok
}

// LineNumber returns the last line read.
func (r *Reader) LineNumber() int {
	return r.lineNumber
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	if r.gzipReader != nil {
		r.gzipReader.Close()
	}
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

func (r *Reader) errorf(format string, args ...any) *ParseError {
	return &ParseError{Name: r.name, Line: r.lineNumber, Message: fmt.Sprintf(format, args...)}
}

// Get returns the trimmed value of a column, or "" when the column is absent
// from the header or the row is short.
func (row *Row) Get(col string) string {
	i, ok := row.reader.columns[col]
	if !ok || i >= len(row.fields) {
		return ""
	}
	return strings.TrimSpace(row.fields[i])
}

// Require returns the value of a column, failing when it is empty.
func (row *Row) Require(col string) (string, error) {
	v := row.Get(col)
	if v == "" {
		return "", row.Errorf("empty value for column '%s'", col)
	}
	return v, nil
}

// Errorf returns a ParseError located at this row.
func (row *Row) Errorf(format string, args ...any) error {
	return &ParseError{Name: row.reader.name, Line: row.Line, Message: fmt.Sprintf(format, args...)}
}

// ParseError represents an error during table parsing with line context.
type ParseError struct {
	Name    string
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: parse error at line %d: %s", e.Name, e.Line, e.Message)
}
