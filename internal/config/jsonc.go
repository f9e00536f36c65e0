package config

// StripJSONComments removes // and /* */ comments from a JSONC document so it
// can be parsed as strict JSON. Comment markers inside string literals are
// preserved. Removed spans are replaced with spaces to keep byte offsets in
// any later parse errors meaningful.
func StripJSONComments(document []byte) []byte {
	stripped := make([]byte, len(document))
	copy(stripped, document)

	const (
		modeCode = iota
		modeString
		modeLineComment
		modeBlockComment
	)

	mode := modeCode
	escaped := false
	for byteIndex := 0; byteIndex < len(stripped); byteIndex++ {
		currentByte := stripped[byteIndex]
		switch mode {
		case modeCode:
			switch {
			case currentByte == '"':
				mode = modeString
			case currentByte == '/' && byteIndex+1 < len(stripped) && stripped[byteIndex+1] == '/':
				mode = modeLineComment
				stripped[byteIndex] = ' '
			case currentByte == '/' && byteIndex+1 < len(stripped) && stripped[byteIndex+1] == '*':
				mode = modeBlockComment
				stripped[byteIndex] = ' '
			}
		case modeString:
			if escaped {
				escaped = false
			} else if currentByte == '\\' {
				escaped = true
			} else if currentByte == '"' {
				mode = modeCode
			}
		case modeLineComment:
			if currentByte == '\n' {
				mode = modeCode
			} else {
				stripped[byteIndex] = ' '
			}
		case modeBlockComment:
			if currentByte == '*' && byteIndex+1 < len(stripped) && stripped[byteIndex+1] == '/' {
				stripped[byteIndex] = ' '
				stripped[byteIndex+1] = ' '
				byteIndex++
				mode = modeCode
			} else if currentByte != '\n' {
				stripped[byteIndex] = ' '
			}
		}
	}
	return stripped
}
