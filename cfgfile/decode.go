package cfgfile

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	xunicode "golang.org/x/text/encoding/unicode"
)

// Encoding names the charset a file was decoded from.
type Encoding string

const (
	EncodingUTF8    Encoding = "utf-8"
	EncodingUTF8BOM Encoding = "utf-8-sig"
	EncodingLatin1  Encoding = "latin-1"
)

var bom = []byte{0xEF, 0xBB, 0xBF}

// Decode converts raw file content to a string. UTF-8 is tried first, then
// UTF-8 with a byte order mark, then Latin-1, which accepts any input.
func Decode(data []byte) (string, Encoding) {
	if !bytes.HasPrefix(data, bom) && utf8.Valid(data) {
		return string(data), EncodingUTF8
	}
	if bytes.HasPrefix(data, bom) {
		if out, err := xunicode.UTF8BOM.NewDecoder().Bytes(data); err == nil && utf8.Valid(data[len(bom):]) {
			return string(out), EncodingUTF8BOM
		}
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		// ISO-8859-1 maps every byte; unreachable in practice.
		return string(data), EncodingUTF8
	}
	return string(out), EncodingLatin1
}
