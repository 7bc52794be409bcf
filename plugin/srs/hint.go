package srs

import (
	"fmt"
	"strings"
)

// Hint returns a progressive reveal of the answer. Level 1 shows the first
// letter and the length, level 2 the first two characters, anything above
// the full answer.
func Hint(answer string, level int) string {
	chars := []rune(answer)
	count := len(chars)

	switch level {
	case 1:
		first := '?'
		if count > 0 {
			first = chars[0]
		}
		underscores := ""
		if count > 1 {
			underscores = strings.Repeat("_", count-1)
		}
		return fmt.Sprintf("%c%s (%d letters)", first, underscores, count)
	case 2:
		if count <= 2 {
			return answer
		}
		return string(chars[:2]) + strings.Repeat("_", count-2)
	default:
		return answer
	}
}
