package llm

import "strings"

// ExtractJSON finds the first balanced {...} or [...] substring in response,
// discarding any other surrounding output such as markdown fences.
func ExtractJSON(response string) string {
	objStart := strings.IndexByte(response, '{')
	arrStart := strings.IndexByte(response, '[')

	start := -1
	open, close := byte('{'), byte('}')
	switch {
	case objStart == -1 && arrStart == -1:
		return ""
	case objStart == -1:
		start, open, close = arrStart, '[', ']'
	case arrStart == -1:
		start, open, close = objStart, '{', '}'
	case objStart < arrStart:
		start, open, close = objStart, '{', '}'
	default:
		start, open, close = arrStart, '[', ']'
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(response); i++ {
		ch := response[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return response[start : i+1]
			}
		}
	}
	return ""
}
