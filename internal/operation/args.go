package operation

import (
	"fmt"
	"strings"
)

type quoteState int

const (
	unquoted quoteState = iota
	inSingleQuote
	inDoubleQuote
)

// SplitArguments breaks a command line into arguments. Only the space
// character separates arguments outside quotes, so tabs and newlines stay part
// of the argument they appear in; single and double quotes group text and are
// removed. An empty quoted string yields an empty argument. There are no
// escape sequences. Unbalanced quotes are an error wrapping
// ErrInvalidArguments.
func SplitArguments(line string) ([]string, error) {
	var (
		args    []string
		current strings.Builder
		state   = unquoted
		quoted  bool
	)
	flush := func() {
		if quoted || current.Len() > 0 {
			args = append(args, current.String())
			current.Reset()
			quoted = false
		}
	}
	for _, r := range line {
		switch state {
		case inSingleQuote:
			if r == '\'' {
				quoted = true
				state = unquoted
				continue
			}
			current.WriteRune(r)
		case inDoubleQuote:
			if r == '"' {
				quoted = true
				state = unquoted
				continue
			}
			current.WriteRune(r)
		default:
			switch r {
			case '\'':
				state = inSingleQuote
			case '"':
				state = inDoubleQuote
			case ' ':
				flush()
			default:
				current.WriteRune(r)
			}
		}
	}
	if state != unquoted {
		return nil, fmt.Errorf("%w: unbalanced quotes in %q", ErrInvalidArguments, line)
	}
	flush()
	return args, nil
}
