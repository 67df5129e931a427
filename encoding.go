package yololbl

// Text encoding of annotation and class-list files.

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultEncoding names the encoding used when none is configured.
const DefaultEncoding = "utf-8"

// LookupEncoding resolves an encoding by its WHATWG name or label, e.g. "utf-8", "latin1" or
// "shift_jis". The empty name selects DefaultEncoding.
func LookupEncoding(name string) (encoding.Encoding, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultEncoding
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unknown text encoding %q: %v", name, err)
	}
	return enc, nil
}

func orDefaultEncoding(enc encoding.Encoding) encoding.Encoding {
	if enc == nil {
		return unicode.UTF8
	}
	return enc
}

// decodingReader returns a reader yielding UTF-8 text decoded from r.
func decodingReader(r io.Reader, enc encoding.Encoding) io.Reader {
	return transform.NewReader(r, orDefaultEncoding(enc).NewDecoder())
}

// encodingWriter returns a writer that encodes UTF-8 text to w. It must be closed to flush.
func encodingWriter(w io.Writer, enc encoding.Encoding) io.WriteCloser {
	return transform.NewWriter(w, orDefaultEncoding(enc).NewEncoder())
}
