package lexer

import (
	"testing"
)

// FuzzTokenize feeds random inputs to the lexer to catch panics.
// The lexer should never panic; invalid input yields an error.
func FuzzTokenize(f *testing.F) {
	seeds := []string{
		// Keywords
		`var func if then else endif`,
		`while do endwhile for endfor`,
		`switch case default endswitch print`,
		`and or not True False`,
		// Literals
		`42 3.14 -1 0 1e10 2.5E-3`,
		`"hello" "with\nescape" "quote\""`,
		// Operators
		`:= : = == <> >= <= > < + - * /`,
		`( ) , ;`,
		// Comments
		`# this is a comment`,
		// Mixed
		`var x; x := 333 + 55 * 7 - 99`,
		`for i := 0, 5 do print i endfor`,
		// Edge cases
		``,
		`   `,
		"\t\n\r",
		`"unterminated`,
		`"""`,
		`@#$^&`,
		`\x00`,
		`:`,
		`<`,
		`1e`,
		`1.`,
		`"\u12"`,
		`99999999999999999999999`,
		"\xff\xfe",
	}

	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, input string) {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("Tokenize panicked on input %q: %v", input, r)
				}
			}()
			Tokenize(input, "fuzz.cb")
		}()
	})
}
