package dxf

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/transform"
)

// Drawings from AutoCAD 2007 (AC1021) onwards store text as UTF-8.
const utf8Version = "AC1021"

var codePages = map[string]encoding.Encoding{
	"ANSI_874":  charmap.Windows874,
	"ANSI_932":  japanese.ShiftJIS,
	"ANSI_936":  simplifiedchinese.GBK,
	"ANSI_949":  korean.EUCKR,
	"ANSI_950":  traditionalchinese.Big5,
	"ANSI_1250": charmap.Windows1250,
	"ANSI_1251": charmap.Windows1251,
	"ANSI_1252": charmap.Windows1252,
	"ANSI_1253": charmap.Windows1253,
	"ANSI_1254": charmap.Windows1254,
	"ANSI_1255": charmap.Windows1255,
	"ANSI_1256": charmap.Windows1256,
	"ANSI_1257": charmap.Windows1257,
	"ANSI_1258": charmap.Windows1258,
	"DOS437":    charmap.CodePage437,
	"DOS850":    charmap.CodePage850,
	"DOS866":    charmap.CodePage866,
}

var unicodeEscape = regexp.MustCompile(`\\U\+([0-9A-Fa-f]{4})`)

// textDecoder returns the function converting raw group values of a
// drawing with the given header to UTF-8.
func textDecoder(h Header) func(string) string {
	var enc encoding.Encoding
	if h.Version < utf8Version {
		enc = codePages[strings.ToUpper(h.CodePage)]
	}

	return func(s string) string {
		if enc != nil && !isASCII(s) {
			if decoded, _, err := transform.String(enc.NewDecoder(), s); err == nil {
				s = decoded
			}
		}
		if strings.Contains(s, `\U+`) {
			s = unicodeEscape.ReplaceAllStringFunc(s, func(m string) string {
				r, err := strconv.ParseUint(m[3:], 16, 32)
				if err != nil {
					return m
				}
				return string(rune(r))
			})
		}
		return s
	}
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
