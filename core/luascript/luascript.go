// Package luascript checks Lua sources before they are packed into the patch.
package luascript

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/yuin/gopher-lua/parse"
)

// ErrSyntax is returned when a script does not parse.
var ErrSyntax = errors.New("lua syntax error")

// Validate parses src as a Lua 5.1 chunk without executing it.
func Validate(name string, src []byte) error {
	if _, err := parse.Parse(bytes.NewReader(src), name); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSyntax, name, err)
	}
	return nil
}

// QuoteString renders s as a double quoted Lua string literal.
func QuoteString(s string) string {
	var b bytes.Buffer
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
