package measure

import (
	"fmt"
	"unicode/utf8"
)

// Mode selects the unit used to weigh message content.
type Mode string

const (
	ModeChars  Mode = "chars"
	ModeBytes  Mode = "bytes"
	ModeTokens Mode = "tokens"
)

// ParseMode validates a mode string from config or flags.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeChars, ModeBytes, ModeTokens:
		return Mode(s), nil
	case "":
		return ModeChars, nil
	}
	return "", fmt.Errorf("unknown size mode: %q (want chars, bytes or tokens)", s)
}

// Count scores a content string under the given mode. Tokens is a fixed
// ceil(chars/4) approximation, not a real tokenizer.
func Count(mode Mode, s string) int {
	switch mode {
	case ModeBytes:
		return len(s)
	case ModeTokens:
		return (utf8.RuneCountInString(s) + 3) / 4
	default:
		return utf8.RuneCountInString(s)
	}
}

// AtLeastOne floors a summed record size at 1 so zero-content records
// still carry weight in size-based visualizations.
func AtLeastOne(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
