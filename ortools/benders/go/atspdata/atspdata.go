// Copyright 2010-2025 Google LLC
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package atspdata reads arc-cost matrices written as nested bracketed lists:
//
//	[[0, 12, 7],
//	 [3, 0, 9],
//	 [5, 4, 0]]
//
// Quotes count as whitespace, a comma after the last element of a list is
// optional, and '/' or '#' starts a comment that runs to the end of the line.
package atspdata

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"unicode"
)

// ErrFormat is wrapped by every parse error.
var ErrFormat = errors.New("atspdata: bad data format")

// ReadFile reads the cost matrix stored at path.
func ReadFile(path string) ([][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	costs, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return costs, nil
}

// Read parses one square, non-negative cost matrix from r. The diagonal is
// forced to zero.
func Read(r io.Reader) ([][]float64, error) {
	t := &tokenizer{r: bufio.NewReader(r), line: 1}
	rows, err := t.readMatrix()
	if err != nil {
		return nil, err
	}
	if tok, err := t.next(); err != io.EOF {
		if err != nil {
			return nil, err
		}
		return nil, t.errorf("unexpected %q after the matrix", tok)
	}

	n := len(rows)
	if n == 0 {
		return nil, fmt.Errorf("%w: empty matrix", ErrFormat)
	}
	for i, row := range rows {
		if len(row) != n {
			return nil, fmt.Errorf("%w: row %d has %d entries, want %d", ErrFormat, i, len(row), n)
		}
		for j, c := range row {
			if i == j {
				row[j] = 0
				continue
			}
			if c < 0 || math.IsInf(c, 0) || math.IsNaN(c) {
				return nil, fmt.Errorf("%w: cost (%d,%d) = %v, want a finite non-negative value", ErrFormat, i, j, c)
			}
		}
	}
	return rows, nil
}

type tokenizer struct {
	r    *bufio.Reader
	line int
}

func (t *tokenizer) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: line %d: %s", ErrFormat, t.line, fmt.Sprintf(format, args...))
}

// next returns "[", "]", "," or a number literal, and io.EOF at the end.
func (t *tokenizer) next() (string, error) {
	for {
		c, _, err := t.r.ReadRune()
		if err != nil {
			return "", err
		}
		switch {
		case c == '\n':
			t.line++
		case unicode.IsSpace(c) || c == '"' || c == '\'':
		case c == '/' || c == '#':
			if _, err := t.r.ReadString('\n'); err != nil {
				return "", err
			}
			t.line++
		case c == '[' || c == ']' || c == ',':
			return string(c), nil
		default:
			var sb strings.Builder
			sb.WriteRune(c)
			for {
				c, _, err := t.r.ReadRune()
				if err == io.EOF {
					break
				}
				if err != nil {
					return "", err
				}
				if unicode.IsSpace(c) || strings.ContainsRune("[],\"'/#", c) {
					if err := t.r.UnreadRune(); err != nil {
						return "", err
					}
					break
				}
				sb.WriteRune(c)
			}
			return sb.String(), nil
		}
	}
}

func (t *tokenizer) expect(want string) error {
	tok, err := t.next()
	if err == io.EOF {
		return t.errorf("unexpected end of input, want %q", want)
	}
	if err != nil {
		return err
	}
	if tok != want {
		return t.errorf("got %q, want %q", tok, want)
	}
	return nil
}

// readList reads the elements of a list whose "[" was consumed. Each element is
// read by elem, which receives its first token.
func (t *tokenizer) readList(elem func(first string) error) error {
	tok, err := t.next()
	for err == nil && tok != "]" {
		if err := elem(tok); err != nil {
			return err
		}
		if tok, err = t.next(); err != nil {
			break
		}
		switch tok {
		case ",":
			tok, err = t.next()
		case "]":
		default:
			return t.errorf("got %q, want \",\" or \"]\"", tok)
		}
	}
	if err == io.EOF {
		return t.errorf("unexpected end of input in a list")
	}
	return err
}

func (t *tokenizer) readMatrix() ([][]float64, error) {
	if err := t.expect("["); err != nil {
		return nil, err
	}
	var rows [][]float64
	err := t.readList(func(first string) error {
		if first != "[" {
			return t.errorf("got %q, want a row starting with \"[\"", first)
		}
		row := []float64{}
		err := t.readList(func(first string) error {
			v, err := strconv.ParseFloat(first, 64)
			if err != nil {
				return t.errorf("bad number %q", first)
			}
			row = append(row, v)
			return nil
		})
		rows = append(rows, row)
		return err
	})
	return rows, err
}
