package cfgfile

import "testing"

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want string
		enc  Encoding
	}{
		{"plain utf-8", []byte("a=Tiếng Việt\n"), "a=Tiếng Việt\n", EncodingUTF8},
		{"utf-8 with bom", append([]byte{0xEF, 0xBB, 0xBF}, []byte("a=b\n")...), "a=b\n", EncodingUTF8BOM},
		{"latin-1", []byte{'a', '=', 'c', 'a', 'f', 0xE9, '\n'}, "a=café\n", EncodingLatin1},
		{"empty", nil, "", EncodingUTF8},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, enc := Decode(tc.in)
			if got != tc.want {
				t.Errorf("Decode() = %q, want %q", got, tc.want)
			}
			if enc != tc.enc {
				t.Errorf("encoding = %q, want %q", enc, tc.enc)
			}
		})
	}
}

func TestParseBytes_Latin1Value(t *testing.T) {
	f, enc := ParseBytes([]byte{'k', '=', 0xFC, 'b', 'e', 'r', '\n'})
	if enc != EncodingLatin1 {
		t.Fatalf("encoding = %q", enc)
	}
	if f.Entries[0].Value != "über" {
		t.Fatalf("value = %q", f.Entries[0].Value)
	}
}
