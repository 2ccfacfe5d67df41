// Package console is the line-oriented control path: G-code style commands
// parsed and dispatched to a group of axes.
package console

import (
	"github.com/pkg/errors"
)

// Command is a parsed console line
type Command struct {
	Type       byte             // 'G' or 'M'
	Number     int              // Command number (e.g., 0 for G0, 220 for M220)
	Parameters map[byte]float64 // Parameters (axis letters, F, K, S)
	Comment    string           // Comment text
}

// HasParameter checks if a parameter exists in the command
func (cmd *Command) HasParameter(param byte) bool {
	_, ok := cmd.Parameters[param]
	return ok
}

// GetParameter gets a parameter value, or returns the default if not present
func (cmd *Command) GetParameter(param byte, defaultValue float64) float64 {
	if val, ok := cmd.Parameters[param]; ok {
		return val
	}
	return defaultValue
}

// ParseLine parses a single console line. Blank lines yield a nil command;
// comment-only lines yield a command with Type 0.
func ParseLine(line string) (*Command, error) {
	i := skipSpace(line, 0)
	if i >= len(line) {
		return nil, nil
	}

	cmd := &Command{
		Parameters: make(map[byte]float64),
	}

	if isComment(line[i]) {
		cmd.Comment = line[i:]
		return cmd, nil
	}

	// Parse command type (G, M)
	c := toUpper(line[i])
	if c != 'G' && c != 'M' {
		return nil, errors.Errorf("expected G or M command, got %q", line[i:])
	}
	cmd.Type = c
	i++

	num, newPos := parseInt(line, i)
	if newPos <= i {
		return nil, errors.Errorf("missing number after %c", cmd.Type)
	}
	cmd.Number = num
	i = newPos

	// Parse parameters
	for {
		i = skipSpace(line, i)
		if i >= len(line) {
			break
		}

		if isComment(line[i]) {
			cmd.Comment = line[i:]
			break
		}

		if !isLetter(line[i]) {
			return nil, errors.Errorf("unexpected %q at column %d", line[i], i+1)
		}
		letter := toUpper(line[i])
		i++

		value, newPos := parseFloat(line, i)
		if newPos <= i {
			return nil, errors.Errorf("parameter %c has no value", letter)
		}
		cmd.Parameters[letter] = value
		i = newPos
	}

	return cmd, nil
}

func skipSpace(s string, pos int) int {
	for pos < len(s) && (s[pos] == ' ' || s[pos] == '\t' || s[pos] == '\r') {
		pos++
	}
	return pos
}

func isComment(c byte) bool {
	return c == ';' || c == '('
}

// parseInt parses an integer from the string starting at pos
func parseInt(s string, pos int) (int, int) {
	start := pos
	value := 0
	for pos < len(s) && s[pos] >= '0' && s[pos] <= '9' {
		value = value*10 + int(s[pos]-'0')
		pos++
	}
	if pos == start {
		return 0, start
	}
	return value, pos
}

// parseFloat parses a floating-point number from the string starting at pos
func parseFloat(s string, pos int) (float64, int) {
	origin := pos
	if pos >= len(s) {
		return 0, origin
	}

	negative := false
	if s[pos] == '-' {
		negative = true
		pos++
	} else if s[pos] == '+' {
		pos++
	}

	start := pos
	intPart := 0
	fracPart := 0.0
	fracDigits := 0

	// Parse integer part
	for pos < len(s) && s[pos] >= '0' && s[pos] <= '9' {
		intPart = intPart*10 + int(s[pos]-'0')
		pos++
	}

	// Parse fractional part
	if pos < len(s) && s[pos] == '.' {
		pos++
		fracStart := pos
		for pos < len(s) && s[pos] >= '0' && s[pos] <= '9' {
			fracPart = fracPart*10.0 + float64(s[pos]-'0')
			pos++
		}
		fracDigits = pos - fracStart
	}

	if pos == start || (pos == start+1 && s[start] == '.') {
		return 0, origin // No valid number found
	}

	value := float64(intPart)
	if fracDigits > 0 {
		divisor := 1.0
		for i := 0; i < fracDigits; i++ {
			divisor *= 10.0
		}
		value += fracPart / divisor
	}

	if negative {
		value = -value
	}

	return value, pos
}

// isLetter checks if a byte is a letter
func isLetter(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

// toUpper converts a byte to uppercase
func toUpper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - ('a' - 'A')
	}
	return c
}
