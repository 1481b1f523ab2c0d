package engine

import "strings"

// completeJSON repairs a JSON document that was cut at an arbitrary byte
// boundary so it parses: an unterminated string value is closed (dropping any
// trailing partial escape), a dangling key, comma, or colon is removed, an
// unfinished literal is truncated together with its key, and open objects and
// arrays are closed in reverse order.
//
// Returns false when the text is not a prefix of well-formed JSON (stray
// closers, text before the first opener). Callers treat that as an expected
// decode degradation, not an error.
func completeJSON(s string) (string, bool) {
	var stack []byte
	inString := false
	escaped := false
	stringStart := -1
	isKey := false
	afterColon := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			if escaped {
				escaped = false
				continue
			}
			switch c {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
			stringStart = i
			isKey = !afterColon && len(stack) > 0 && stack[len(stack)-1] == '{'
			afterColon = false
		case '{', '[':
			stack = append(stack, c)
			afterColon = false
		case '}':
			if len(stack) == 0 || stack[len(stack)-1] != '{' {
				return "", false
			}
			stack = stack[:len(stack)-1]
		case ']':
			if len(stack) == 0 || stack[len(stack)-1] != '[' {
				return "", false
			}
			stack = stack[:len(stack)-1]
		case ':':
			afterColon = true
		case ',':
			afterColon = false
		case ' ', '\t', '\r', '\n':
			// whitespace keeps the current expectation
		default:
			// literal or number character
			afterColon = false
		}
	}

	out := s
	if inString {
		if isKey {
			out = cutTrailingKey(out[:stringStart])
		} else {
			out = trimPartialEscape(out, stringStart) + `"`
		}
	}

	inObject := len(stack) > 0 && stack[len(stack)-1] == '{'
	out = trimDanglingTail(out, inObject)

	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			out += "}"
		} else {
			out += "]"
		}
	}
	return out, true
}

// trimPartialEscape drops an escape sequence cut mid-way at the end of an
// unterminated string value starting at start.
func trimPartialEscape(s string, start int) string {
	// Dangling backslash: an odd run of trailing backslashes.
	run := 0
	for i := len(s) - 1; i > start && s[i] == '\\'; i-- {
		run++
	}
	if run%2 == 1 {
		return s[:len(s)-1]
	}
	// Partial \uXXXX: fewer than four hex digits after an active \u.
	if idx := strings.LastIndex(s, `\u`); idx > start && activeEscape(s, start, idx) {
		hex := s[idx+2:]
		if len(hex) < 4 && isHex(hex) {
			return s[:idx]
		}
	}
	return s
}

// activeEscape reports whether the backslash at idx starts an escape, i.e. is
// preceded by an even number of backslashes within the string value.
func activeEscape(s string, start, idx int) bool {
	run := 0
	for i := idx - 1; i > start && s[i] == '\\'; i-- {
		run++
	}
	return run%2 == 0
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}

// trimDanglingTail removes trailing tokens that cannot be completed: commas,
// colons with their keys, and unfinished literals.
func trimDanglingTail(s string, inObject bool) string {
	for {
		t := strings.TrimRight(s, " \t\r\n")
		switch {
		case strings.HasSuffix(t, ","):
			s = t[:len(t)-1]
			return s
		case strings.HasSuffix(t, ":"):
			s = cutTrailingKey(t[:len(t)-1])
			continue
		}
		if inObject {
			if cut, ok := cutKeyWithoutValue(t); ok {
				s = cut
				continue
			}
		}
		if cut, ok := cutIncompleteLiteral(t); ok {
			s = cut
			continue
		}
		return t
	}
}

// cutKeyWithoutValue removes a trailing complete string that is an object key
// missing its colon and value. A trailing string preceded by ':' is a value
// and is kept.
func cutKeyWithoutValue(s string) (string, bool) {
	if !strings.HasSuffix(s, `"`) || len(s) < 2 {
		return s, false
	}
	for i := len(s) - 2; i >= 0; i-- {
		if s[i] != '"' {
			continue
		}
		run := 0
		for j := i - 1; j >= 0 && s[j] == '\\'; j-- {
			run++
		}
		if run%2 != 0 {
			continue
		}
		before := strings.TrimRight(s[:i], " \t\r\n")
		if strings.HasSuffix(before, ",") || strings.HasSuffix(before, "{") {
			return strings.TrimSuffix(before, ","), true
		}
		return s, false
	}
	return s, false
}

// cutTrailingKey removes a complete trailing string (a key) and any comma
// preceding it.
func cutTrailingKey(s string) string {
	t := strings.TrimRight(s, " \t\r\n")
	if !strings.HasSuffix(t, `"`) {
		return t
	}
	// Scan back to the opening quote, honoring escaped quotes.
	for i := len(t) - 2; i >= 0; i-- {
		if t[i] != '"' {
			continue
		}
		run := 0
		for j := i - 1; j >= 0 && t[j] == '\\'; j-- {
			run++
		}
		if run%2 == 0 {
			t = strings.TrimRight(t[:i], " \t\r\n")
			t = strings.TrimSuffix(t, ",")
			return t
		}
	}
	return t
}

// cutIncompleteLiteral truncates a trailing literal or number token that is
// not yet valid JSON (e.g. "tru", "12.", "-"), along with its key when inside
// an object.
func cutIncompleteLiteral(s string) (string, bool) {
	end := len(s)
	start := end
	for start > 0 && strings.ContainsRune("truefalsnil0123456789+-.eE", rune(s[start-1])) {
		start--
	}
	if start == end {
		return s, false
	}
	token := s[start:end]
	switch token {
	case "true", "false", "null":
		return s, false
	}
	if validNumber(token) {
		return s, false
	}
	rest := strings.TrimRight(s[:start], " \t\r\n")
	if strings.HasSuffix(rest, ":") {
		return cutTrailingKey(rest[:len(rest)-1]), true
	}
	return strings.TrimSuffix(rest, ","), true
}

func validNumber(s string) bool {
	if s == "" {
		return false
	}
	i := 0
	if s[i] == '-' {
		i++
	}
	digits := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
		digits++
	}
	if digits == 0 {
		return false
	}
	if i < len(s) && s[i] == '.' {
		i++
		frac := 0
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
			frac++
		}
		if frac == 0 {
			return false
		}
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		i++
		if i < len(s) && (s[i] == '+' || s[i] == '-') {
			i++
		}
		exp := 0
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
			exp++
		}
		if exp == 0 {
			return false
		}
	}
	return i == len(s)
}
