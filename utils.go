package blockstpl

// ----------------------------- Fast utilities -------------------------------

func fastTrim(s string) string {
	if len(s) == 0 {
		return s
	}

	start := 0
	end := len(s)

	for start < end && isSpaceByte(s[start]) {
		start++
	}
	for end > start && isSpaceByte(s[end-1]) {
		end--
	}

	if start == 0 && end == len(s) {
		return s
	}
	return s[start:end]
}

// unquote strips a leading quote and the last matching quote after it.
// Anything past that closing quote is discarded.
func unquote(s string) string {
	if len(s) < 2 {
		return s
	}
	q := s[0]
	if q != '"' && q != '\'' {
		return s
	}
	for i := len(s) - 1; i > 0; i-- {
		if s[i] == q {
			return s[1:i]
		}
	}
	return s
}

func isSpaceByte(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isWordByte(c byte) bool {
	return isLetter(c) || isDigit(c) || c == '_'
}
