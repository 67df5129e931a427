package yololbl

// Class list handling: the ordered label <-> index mapping and its text file.

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding"

	"github.com/sensorable/yololbl/internal/logger"
)

// ClassesFileName is the class list file expected next to the annotation files.
const ClassesFileName = "classes.txt"

// ClassRegistry maps labels to class indices. The index of a label is its position in the list;
// labels are only ever appended, so an assigned index never changes.
//
// A registry belongs to one conversion session and is not safe for concurrent use.
type ClassRegistry struct {
	labels []string
	index  map[string]int
}

// NewClassRegistry returns a registry holding labels in order. Repeated labels keep their first
// index.
func NewClassRegistry(labels ...string) *ClassRegistry {
	r := &ClassRegistry{index: make(map[string]int, len(labels))}
	for _, l := range labels {
		r.IndexOf(l)
	}
	return r
}

// LoadClassRegistry builds a registry from the lines of a class list, in order.
//
// Fails with KindMalformedClassList if there are no labels, or if a label is empty or repeated.
func LoadClassRegistry(lines []string) (*ClassRegistry, error) {
	if len(lines) == 0 {
		return nil, &OpError{Op: "classes.load", Kind: KindMalformedClassList,
			Err: fmt.Errorf("no labels")}
	}

	r := &ClassRegistry{
		labels: make([]string, 0, len(lines)),
		index:  make(map[string]int, len(lines)),
	}
	for i, l := range lines {
		if l == "" {
			return nil, &OpError{Op: "classes.load", Kind: KindMalformedClassList, Line: i + 1,
				Err: fmt.Errorf("empty label")}
		}
		if prev, ok := r.index[l]; ok {
			return nil, &OpError{Op: "classes.load", Kind: KindMalformedClassList, Line: i + 1,
				Err: fmt.Errorf("label %q repeats line %d", l, prev+1)}
		}
		r.index[l] = len(r.labels)
		r.labels = append(r.labels, l)
	}

	return r, nil
}

// IndexOf returns the index of label, appending it to the registry first if it is new.
func (r *ClassRegistry) IndexOf(label string) int {
	if i, ok := r.index[label]; ok {
		return i
	}
	if r.index == nil {
		r.index = make(map[string]int)
	}

	i := len(r.labels)
	r.labels = append(r.labels, label)
	r.index[label] = i
	logger.L().Debug("classes.appended", "label", label, "index", i)
	return i
}

// Lookup returns the index of label without modifying the registry.
func (r *ClassRegistry) Lookup(label string) (int, bool) {
	i, ok := r.index[label]
	return i, ok
}

// LabelAt returns the label with class index i. Fails with KindOutOfRange for unknown indices.
func (r *ClassRegistry) LabelAt(i int) (string, error) {
	if i < 0 || i >= len(r.labels) {
		return "", &OpError{Op: "classes.label_at", Kind: KindOutOfRange,
			Err: fmt.Errorf("class index %d not in [0, %d)", i, len(r.labels))}
	}
	return r.labels[i], nil
}

// Len is the number of labels.
func (r *ClassRegistry) Len() int {
	return len(r.labels)
}

// Labels returns a copy of the labels in index order. It is the inverse of LoadClassRegistry.
func (r *ClassRegistry) Labels() []string {
	out := make([]string, len(r.labels))
	copy(out, r.labels)
	return out
}

// Clone returns an independent copy of r.
func (r *ClassRegistry) Clone() *ClassRegistry {
	return NewClassRegistry(r.labels...)
}

// ReadClassList parses a class list, one label per line. Leading and trailing newlines are
// ignored and carriage returns are stripped.
func ReadClassList(src io.Reader) (*ClassRegistry, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, &OpError{Op: "classes.read", Kind: KindMalformedClassList, Err: err}
	}

	text := strings.ReplaceAll(string(data), "\r", "")
	text = strings.Trim(text, "\n")
	if text == "" {
		return nil, &OpError{Op: "classes.read", Kind: KindMalformedClassList,
			Err: fmt.Errorf("empty class list")}
	}

	return LoadClassRegistry(strings.Split(text, "\n"))
}

// LoadClassList reads the class list file at path. A missing or unreadable file is reported as
// KindMalformedClassList, since the annotations cannot be interpreted without it.
func LoadClassList(path string, enc encoding.Encoding) (r *ClassRegistry, err error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &OpError{Op: "classes.open", Kind: KindMalformedClassList, Path: path, Err: err}
	}
	defer closeWithErrCheck(file, &err)

	r, err = ReadClassList(decodingReader(file, enc))
	if err != nil {
		if oe, ok := err.(*OpError); ok {
			oe.Path = path
		}
		return nil, err
	}
	return r, nil
}

// WriteClassList writes the labels of r to dst, one per line.
func WriteClassList(dst io.Writer, r *ClassRegistry) error {
	var buf bytes.Buffer
	for _, l := range r.labels {
		buf.WriteString(l)
		buf.WriteByte('\n')
	}
	_, err := dst.Write(buf.Bytes())
	return err
}

// SaveClassList writes the labels of r to the file at path, replacing its contents.
func SaveClassList(path string, r *ClassRegistry, enc encoding.Encoding) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return &OpError{Op: "classes.create", Kind: KindIO, Path: path, Err: err}
	}
	defer closeWithErrCheck(file, &err)

	w := encodingWriter(file, enc)
	if err := WriteClassList(w, r); err != nil {
		_ = w.Close()
		return &OpError{Op: "classes.write", Kind: KindIO, Path: path, Err: err}
	}
	if err := w.Close(); err != nil {
		return &OpError{Op: "classes.write", Kind: KindIO, Path: path, Err: err}
	}
	return nil
}
