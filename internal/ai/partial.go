package ai

import (
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// parsePartialObject reads the top level string fields of a possibly
// truncated JSON object. A string cut off mid-way yields its decoded prefix,
// so successive calls on a growing input return growing values.
func parsePartialObject(raw string) map[string]string {
	out := map[string]string{}
	s := stripFence(raw)
	i := skipSpace(s, 0)
	if i >= len(s) || s[i] != '{' {
		return out
	}
	i++
	for {
		i = skipSpace(s, i)
		if i < len(s) && s[i] == ',' {
			i = skipSpace(s, i+1)
		}
		if i >= len(s) || s[i] != '"' {
			return out
		}
		key, next, complete := readString(s, i+1)
		if !complete {
			return out
		}
		i = skipSpace(s, next)
		if i >= len(s) || s[i] != ':' {
			return out
		}
		i = skipSpace(s, i+1)
		if i >= len(s) || s[i] != '"' {
			return out
		}
		val, next, complete := readString(s, i+1)
		out[key] = val
		if !complete {
			return out
		}
		i = next
	}
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return s
}

func skipSpace(s string, i int) int {
	for i < len(s) {
		switch s[i] {
		case ' ', '\t', '\n', '\r':
			i++
		default:
			return i
		}
	}
	return i
}

// readString decodes a JSON string body starting after the opening quote.
func readString(s string, i int) (string, int, bool) {
	var b strings.Builder
	for i < len(s) {
		c := s[i]
		switch {
		case c == '"':
			return b.String(), i + 1, true
		case c == '\\':
			if i+1 >= len(s) {
				return b.String(), i, false
			}
			switch s[i+1] {
			case '"', '\\', '/':
				b.WriteByte(s[i+1])
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case 'b':
				b.WriteByte('\b')
			case 'f':
				b.WriteByte('\f')
			case 'u':
				r, width, ok := readUnicode(s, i)
				if !ok {
					return b.String(), i, false
				}
				b.WriteRune(r)
				i += width
				continue
			default:
				b.WriteByte(s[i+1])
			}
			i += 2
		default:
			r, size := utf8.DecodeRuneInString(s[i:])
			if r == utf8.RuneError && size == 1 && !utf8.FullRuneInString(s[i:]) {
				return b.String(), i, false
			}
			b.WriteString(s[i : i+size])
			i += size
		}
	}
	return b.String(), i, false
}

// readUnicode decodes \uXXXX at s[i:], joining surrogate pairs.
func readUnicode(s string, i int) (rune, int, bool) {
	if i+6 > len(s) {
		return 0, 0, false
	}
	v, err := strconv.ParseUint(s[i+2:i+6], 16, 16)
	if err != nil {
		return utf8.RuneError, 6, true
	}
	r := rune(v)
	if !utf16.IsSurrogate(r) {
		return r, 6, true
	}
	if i+12 > len(s) {
		rest := s[i+6:]
		if rest == "" || (rest[0] == '\\' && (len(rest) == 1 || rest[1] == 'u')) {
			return 0, 0, false
		}
		return utf8.RuneError, 6, true
	}
	if s[i+6] != '\\' || s[i+7] != 'u' {
		return utf8.RuneError, 6, true
	}
	lo, err := strconv.ParseUint(s[i+8:i+12], 16, 16)
	if err != nil {
		return utf8.RuneError, 6, true
	}
	return utf16.DecodeRune(r, rune(lo)), 12, true
}
