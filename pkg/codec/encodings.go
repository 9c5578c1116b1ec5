package codec

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
)

// LookupEncoding resolves an encoding by its IANA or WHATWG name.
//
// "utf-16" honours a byte order mark and defaults to big endian, while
// "utf-16le" and "utf-16be" are fixed. "utf-8-bom" strips a leading BOM on
// decode and writes one on encode.
func LookupEncoding(name string) (encoding.Encoding, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	switch key {
	case "", "utf-8", "utf8":
		return unicode.UTF8, nil
	case "utf-8-bom", "utf-8-sig", "utf8bom":
		return unicode.UTF8BOM, nil
	case "utf-16":
		return unicode.UTF16(unicode.BigEndian, unicode.UseBOM), nil
	case "utf-16le":
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM), nil
	case "utf-16be":
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM), nil
	}

	if enc, err := ianaindex.IANA.Encoding(key); err == nil && enc != nil {
		return enc, nil
	}
	if enc, err := htmlindex.Get(key); err == nil && enc != nil {
		return enc, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
}

// EncodingName returns the canonical IANA name of enc, or "utf-8" for nil.
func EncodingName(enc encoding.Encoding) string {
	if enc == nil {
		return "utf-8"
	}
	if name, err := ianaindex.IANA.Name(enc); err == nil {
		return strings.ToLower(name)
	}
	if name, err := htmlindex.Name(enc); err == nil {
		return name
	}
	return fmt.Sprint(enc)
}
