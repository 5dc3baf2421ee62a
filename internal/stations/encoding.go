package stations

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"

	"github.com/sharksmhi/ctdstations/internal/errors"
)

// DefaultEncoding is the character encoding of the published station files.
const DefaultEncoding = "cp1252"

// Names whose meaning differs from the WHATWG table htmlindex follows;
// latin1 must stay ISO-8859-1 rather than be widened to windows-1252.
var exactEncodings = map[string]encoding.Encoding{
	"cp1252":       charmap.Windows1252,
	"windows-1252": charmap.Windows1252,
	"latin1":       charmap.ISO8859_1,
	"latin-1":      charmap.ISO8859_1,
	"iso-8859-1":   charmap.ISO8859_1,
	"iso8859-1":    charmap.ISO8859_1,
	"utf-8":        unicode.UTF8,
	"utf8":         unicode.UTF8,
}

// LookupEncoding resolves an encoding name such as "cp1252" or "utf-8".
// An empty name means DefaultEncoding.
func LookupEncoding(name string) (encoding.Encoding, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = DefaultEncoding
	}
	if enc, ok := exactEncodings[key]; ok {
		return enc, nil
	}
	enc, err := htmlindex.Get(key)
	if err != nil {
		return nil, errors.New(fmt.Errorf("unknown text encoding %q: %w", name, err)).
			Component("stations").
			Category(errors.CategoryEncoding).
			Build()
	}
	return enc, nil
}

// decodeText converts raw bytes in enc to a UTF-8 string.
func decodeText(data []byte, enc encoding.Encoding) (string, error) {
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", errors.New(fmt.Errorf("failed to decode text: %w", err)).
			Component("stations").
			Category(errors.CategoryEncoding).
			Build()
	}
	return string(out), nil
}

// encodeText converts a UTF-8 string to enc. Characters enc cannot represent fail.
func encodeText(text string, enc encoding.Encoding) ([]byte, error) {
	out, err := enc.NewEncoder().Bytes([]byte(text))
	if err != nil {
		return nil, errors.New(fmt.Errorf("failed to encode text: %w", err)).
			Component("stations").
			Category(errors.CategoryEncoding).
			Build()
	}
	return out, nil
}
