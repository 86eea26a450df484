package vtkio

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// tokens walks the whitespace separated words of a legacy file.
type tokens struct {
	words []string
	pos   int
}

func (t *tokens) next() (string, bool) {
	if t.pos >= len(t.words) {
		return "", false
	}
	w := t.words[t.pos]
	t.pos++
	return w, true
}

func (t *tokens) peek() string {
	if t.pos >= len(t.words) {
		return ""
	}
	return t.words[t.pos]
}

func (t *tokens) int() (int, error) {
	w, ok := t.next()
	if !ok {
		return 0, fmt.Errorf("unexpected end of file")
	}
	n, err := strconv.Atoi(w)
	if err != nil {
		return 0, fmt.Errorf("expected integer, got %q", w)
	}
	return n, nil
}

func (t *tokens) skip(n int) error {
	if n < 0 || t.pos+n > len(t.words) {
		return fmt.Errorf("unexpected end of file skipping %d values", n)
	}
	t.pos += n
	return nil
}

func (t *tokens) values(n int, acc *accumulator) error {
	for range n {
		w, ok := t.next()
		if !ok {
			return fmt.Errorf("unexpected end of file reading values")
		}
		v, err := strconv.ParseFloat(w, 64)
		if err != nil {
			return fmt.Errorf("bad value %q", w)
		}
		acc.add(v)
	}
	return nil
}

// legacyWords splits the body of a legacy file into words, dropping the
// two header lines and any METADATA blocks (which end at a blank line).
func legacyWords(data []byte) ([]string, string, error) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)

	var (
		words    []string
		line     int
		encoding string
		metadata bool
	)
	for sc.Scan() {
		text := strings.TrimSpace(sc.Text())
		line++
		switch {
		case line <= 2:
			continue
		case line == 3:
			encoding = strings.ToUpper(text)
			continue
		case metadata:
			metadata = text != ""
			continue
		case strings.EqualFold(text, "METADATA"):
			metadata = true
			continue
		}
		words = append(words, strings.Fields(text)...)
	}
	return words, encoding, sc.Err()
}

// parseLegacy reads the attribute sections of an ASCII legacy file. Geometry
// and topology sections are skipped by count.
//
//nolint:gocognit,gocyclo // One case per legacy keyword.
func parseLegacy(data []byte) (Info, error) {
	words, encoding, err := legacyWords(data)
	if err != nil {
		return Info{}, err
	}
	if encoding != "ASCII" {
		return Info{}, fmt.Errorf("%w: legacy %s file", ErrUnsupported, strings.ToLower(encoding))
	}

	var (
		info    Info
		t       = &tokens{words: words}
		section string
		count   int
	)
	add := func(a Array) {
		switch section {
		case "":
			// Dataset-level field data is not attached to points or cells.
		case "POINT_DATA":
			info.Point = append(info.Point, a)
		default:
			info.Cell = append(info.Cell, a)
		}
	}
	read := func(name string, components, tuples int) error {
		acc := newAccumulator(components)
		if err := t.values(components*tuples, acc); err != nil {
			return fmt.Errorf("array %s: %w", name, err)
		}
		arr := Array{Name: name, Components: components}
		arr.Range, arr.HasRange = acc.result()
		add(arr)
		return nil
	}

	for {
		kw, ok := t.next()
		if !ok {
			return info, nil
		}
		switch strings.ToUpper(kw) {
		case "DATASET":
			_, _ = t.next()
		case "POINTS":
			n, err := t.int()
			if err != nil {
				return info, err
			}
			_, _ = t.next()
			if err := t.skip(3 * n); err != nil {
				return info, err
			}
		case "VERTICES", "LINES", "POLYGONS", "TRIANGLE_STRIPS", "CELLS":
			if _, err := t.int(); err != nil {
				return info, err
			}
			size, err := t.int()
			if err != nil {
				return info, err
			}
			if strings.EqualFold(t.peek(), "OFFSETS") {
				continue
			}
			if err := t.skip(size); err != nil {
				return info, err
			}
		case "OFFSETS", "CONNECTIVITY":
			_, _ = t.next()
			start := t.pos
			for t.pos < len(t.words) {
				if _, err := strconv.ParseFloat(t.peek(), 64); err != nil {
					break
				}
				t.pos++
			}
			if t.pos == start {
				return info, fmt.Errorf("empty %s block", kw)
			}
		case "CELL_TYPES":
			n, err := t.int()
			if err != nil {
				return info, err
			}
			if err := t.skip(n); err != nil {
				return info, err
			}
		case "DIMENSIONS", "ORIGIN", "SPACING", "ASPECT_RATIO":
			if err := t.skip(3); err != nil {
				return info, err
			}
		case "X_COORDINATES", "Y_COORDINATES", "Z_COORDINATES":
			n, err := t.int()
			if err != nil {
				return info, err
			}
			_, _ = t.next()
			if err := t.skip(n); err != nil {
				return info, err
			}
		case "POINT_DATA", "CELL_DATA":
			section = strings.ToUpper(kw)
			if count, err = t.int(); err != nil {
				return info, err
			}
		case "SCALARS":
			name, _ := t.next()
			_, _ = t.next()
			components := 1
			if n, err := strconv.Atoi(t.peek()); err == nil {
				components = n
				t.pos++
			}
			if strings.EqualFold(t.peek(), "LOOKUP_TABLE") {
				t.pos += 2
			}
			if err := read(name, components, count); err != nil {
				return info, err
			}
		case "COLOR_SCALARS":
			name, _ := t.next()
			components, err := t.int()
			if err != nil {
				return info, err
			}
			if err := read(name, components, count); err != nil {
				return info, err
			}
		case "LOOKUP_TABLE":
			_, _ = t.next()
			n, err := t.int()
			if err != nil {
				return info, err
			}
			if err := t.skip(4 * n); err != nil {
				return info, err
			}
		case "VECTORS", "NORMALS":
			name, _ := t.next()
			_, _ = t.next()
			if err := read(name, 3, count); err != nil {
				return info, err
			}
		case "TENSORS":
			name, _ := t.next()
			_, _ = t.next()
			if err := read(name, 9, count); err != nil {
				return info, err
			}
		case "TEXTURE_COORDINATES":
			name, _ := t.next()
			dim, err := t.int()
			if err != nil {
				return info, err
			}
			_, _ = t.next()
			if err := read(name, dim, count); err != nil {
				return info, err
			}
		case "FIELD":
			_, _ = t.next()
			arrays, err := t.int()
			if err != nil {
				return info, err
			}
			for range arrays {
				name, _ := t.next()
				components, err := t.int()
				if err != nil {
					return info, err
				}
				tuples, err := t.int()
				if err != nil {
					return info, err
				}
				_, _ = t.next()
				if err := read(name, components, tuples); err != nil {
					return info, err
				}
			}
		default:
			return info, fmt.Errorf("%w: unexpected legacy keyword %q", ErrUnsupported, kw)
		}
	}
}
