package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pierrec/lz4/v4"
)

// lz4Suffix marks files stored as an LZ4 frame.
const lz4Suffix = ".lz4"

var recordValidate = validator.New()

// source is a header-aware CSV reader over one file.
type source struct {
	path    string
	file    *os.File
	reader  *csv.Reader
	columns map[string]int
	line    int
}

func openSource(path string) (*source, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	var in io.Reader = file
	if strings.HasSuffix(path, lz4Suffix) {
		in = lz4.NewReader(file)
	}

	reader := csv.NewReader(in)
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		file.Close()

		if errors.Is(err, io.EOF) {
			return nil, &LoadError{Path: path, Line: 1, Err: ErrEmptyTable}
		}

		return nil, &LoadError{Path: path, Line: 1, Err: fmt.Errorf("read header: %w", err)}
	}

	columns := make(map[string]int, len(header))

	for i, name := range header {
		columns[normalizeHeader(name)] = i
	}

	return &source{path: path, file: file, reader: reader, columns: columns, line: 1}, nil
}

func normalizeHeader(name string) string {
	name = strings.TrimPrefix(name, "\ufeff")

	return strings.ToLower(strings.TrimSpace(name))
}

// column resolves the first alias present in the header.
func (s *source) column(aliases ...string) (int, error) {
	for _, alias := range aliases {
		if idx, ok := s.columns[normalizeHeader(alias)]; ok {
			return idx, nil
		}
	}

	return -1, &LoadError{Path: s.path, Line: 1, Column: aliases[0], Err: ErrMissingColumn}
}

// optionalColumn resolves an alias or returns -1 when none is present.
func (s *source) optionalColumn(aliases ...string) int {
	idx, err := s.column(aliases...)
	if err != nil {
		return -1
	}

	return idx
}

// next returns the next data row, or io.EOF.
func (s *source) next() ([]string, error) {
	for {
		record, err := s.reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}

			return nil, &LoadError{Path: s.path, Line: s.line + 1, Err: err}
		}

		s.line++

		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}

		return record, nil
	}
}

func (s *source) close() error {
	err := s.file.Close()
	if err != nil {
		return &LoadError{Path: s.path, Err: err}
	}

	return nil
}

func (s *source) cellError(column string, err error) error {
	return &LoadError{Path: s.path, Line: s.line, Column: column, Err: err}
}

func (s *source) text(record []string, idx int, column string) (string, error) {
	if idx < 0 || idx >= len(record) {
		return "", s.cellError(column, fmt.Errorf("%w: row has %d fields", ErrInvalidValue, len(record)))
	}

	return strings.TrimSpace(record[idx]), nil
}

func (s *source) integer(record []string, idx int, column string) (int, error) {
	raw, err := s.text(record, idx, column)
	if err != nil {
		return 0, err
	}

	v, err := strconv.Atoi(raw)
	if err == nil {
		return v, nil
	}

	// Integer columns exported from dataframes often carry a ".0" suffix.
	f, ferr := strconv.ParseFloat(raw, 64)
	if ferr != nil || f != float64(int(f)) {
		return 0, s.cellError(column, fmt.Errorf("%w: %q is not an integer", ErrInvalidValue, raw))
	}

	return int(f), nil
}

func (s *source) float(record []string, idx int, column string) (float64, error) {
	raw, err := s.text(record, idx, column)
	if err != nil {
		return 0, err
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, s.cellError(column, fmt.Errorf("%w: %q is not a number", ErrInvalidValue, raw))
	}

	return v, nil
}

func (s *source) levels(record []string, idx [NumLevels]int, names [NumLevels]string) (Coverage, error) {
	var out Coverage

	for level := range NumLevels {
		v, err := s.float(record, idx[level], names[level])
		if err != nil {
			return Coverage{}, err
		}

		out[level] = v
	}

	return out, nil
}

func (s *source) levelColumns(format string) ([NumLevels]int, [NumLevels]string, error) {
	var (
		idx   [NumLevels]int
		names [NumLevels]string
	)

	for level := range NumLevels {
		names[level] = fmt.Sprintf(format, level+1)

		i, err := s.column(names[level])
		if err != nil {
			return idx, names, err
		}

		idx[level] = i
	}

	return idx, names, nil
}

func (s *source) validate(v any) error {
	err := recordValidate.Struct(v)
	if err != nil {
		return &LoadError{Path: s.path, Line: s.line, Err: fmt.Errorf("%w: %w", ErrInvalidValue, err)}
	}

	return nil
}

// sink is a CSV writer over one file, LZ4-framed when the path asks for it.
type sink struct {
	path   string
	file   *os.File
	frame  *lz4.Writer
	writer *csv.Writer
}

func createSink(path string) (*sink, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}

	out := &sink{path: path, file: file}

	var w io.Writer = file
	if strings.HasSuffix(path, lz4Suffix) {
		out.frame = lz4.NewWriter(file)
		w = out.frame
	}

	out.writer = csv.NewWriter(w)

	return out, nil
}

func (s *sink) write(record []string) error {
	err := s.writer.Write(record)
	if err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}

	return nil
}

// close flushes every layer; the file is closed even when a flush fails.
func (s *sink) close() error {
	s.writer.Flush()
	flushErr := s.writer.Error()

	var frameErr error
	if s.frame != nil {
		frameErr = s.frame.Close()
	}

	closeErr := s.file.Close()

	err := errors.Join(flushErr, frameErr, closeErr)
	if err != nil {
		return fmt.Errorf("close %s: %w", s.path, err)
	}

	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
