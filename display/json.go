package display

import "encoding/json"

// MarshalJSON pretty-prints v. Vectors stay on one line per row so large
// embedding batches remain readable.
func MarshalJSON(v interface{}) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return compactNumberArrays(data), nil
}

// compactNumberArrays folds innermost arrays of numbers onto one line
func compactNumberArrays(data []byte) []byte {
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] == '"' {
			end := stringEnd(data, i)
			out = append(out, data[i:end+1]...)
			i = end
			continue
		}
		if data[i] != '[' {
			out = append(out, data[i])
			continue
		}
		end, ok := numberArrayEnd(data, i)
		if !ok {
			out = append(out, data[i])
			continue
		}
		out = append(out, '[')
		first := true
		for _, tok := range splitNumbers(data[i+1 : end]) {
			if !first {
				out = append(out, ", "...)
			}
			out = append(out, tok...)
			first = false
		}
		out = append(out, ']')
		i = end
	}
	return out
}

// stringEnd returns the index of the quote closing the string at start
func stringEnd(data []byte, start int) int {
	for j := start + 1; j < len(data); j++ {
		switch data[j] {
		case '\\':
			j++
		case '"':
			return j
		}
	}
	return len(data) - 1
}

// numberArrayEnd returns the index of the ']' closing the array at start
// when it holds only numbers and whitespace
func numberArrayEnd(data []byte, start int) (int, bool) {
	for j := start + 1; j < len(data); j++ {
		switch c := data[j]; {
		case c == ']':
			return j, true
		case c == ',' || c == ' ' || c == '\n' || c == '\t' || c == '-' || c == '+' || c == '.' || c == 'e' || c == 'E' || (c >= '0' && c <= '9'):
		default:
			return 0, false
		}
	}
	return 0, false
}

func splitNumbers(b []byte) [][]byte {
	var toks [][]byte
	startTok := -1
	for k, c := range b {
		sep := c == ',' || c == ' ' || c == '\n' || c == '\t'
		if !sep && startTok < 0 {
			startTok = k
		}
		if sep && startTok >= 0 {
			toks = append(toks, b[startTok:k])
			startTok = -1
		}
	}
	if startTok >= 0 {
		toks = append(toks, b[startTok:])
	}
	return toks
}
