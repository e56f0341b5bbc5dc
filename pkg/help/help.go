// Package help holds the reference text printed by "cbc help".
package help

import (
	"fmt"
	"sort"
	"strings"
)

// QUICKREF is the overview printed by "cbc help" without a topic.
const QUICKREF = `codeblock quick reference

  var a, b            declare variables (value starts undefined)
  func f              declare a function name
  a := 1 + 2 * 3      assign; the value of the assignment is the value assigned
  print a             write a value to the debug output
  if c then ... else ... endif
  while c do ... endwhile
  for i := 0, 10 do ... endfor        upper bound is exclusive
  switch e case 1: ... default: ... endswitch

The value of a program is the value of its last statement.

Commands: run, check, fmt, repl, trace, config, help
Topics: syntax, types, operators, flow, scopes, diagnostics, config, examples
Run "cbc help <topic>" for details. Topic names may be abbreviated.
`

// TopicList is the display order of the help topics.
var TopicList = []string{"syntax", "types", "operators", "flow", "scopes", "diagnostics", "config", "examples"}

// Topics maps a topic name to its text.
var Topics = map[string]string{
	"syntax": `Syntax

Statements follow each other, optionally separated by ";". Newlines are
whitespace and "#" starts a comment that runs to the end of the line.

Literals:
  42              integer
  3.14  1e3       float
  True  false     boolean (case-insensitive)
  "a\tb"         string with escapes \" \\ \/ \n \r \t \uXXXX

Keywords are lowercase. Nesting deeper than 512 levels is rejected.
`,
	"types": `Types

  undefined   the value of a declared but unassigned variable
  integer     64-bit signed
  float       64-bit IEEE
  boolean     True or False
  string

Mixed integer and float arithmetic produces a float. Using an undefined
value in an operation or condition is a runtime error.
`,
	"operators": `Operators (lowest to highest precedence)

  :=                    assignment (right associative)
  or
  and
  = == <> < <= > >=     comparison (numbers or strings)
  + -                   addition; + also concatenates strings
  * /                   multiplication, division
  not -                 unary

Integer division by zero is a runtime error. Floats are equal when they
differ by less than a small epsilon. "a" = "abc" holds: string equality
compares the left operand as a prefix of the right.
`,
	"flow": `Control flow

  if <boolean> then <stmts> [else <stmts>] endif
  while <boolean> do <stmts> endwhile
  for <var> := <int>, <int> do <stmts> endfor
  switch <expr> case <expr>: <stmts> ... [default: <stmts>] endswitch

A for loop runs while the counter is below the upper bound and adds one
after each pass. The body may change the counter. The first matching case
of a switch wins. Conditions must be boolean.
`,
	"scopes": `Scopes

Every body of if, while, for and switch opens a nested scope. A name may be
declared once per scope and shadows outer declarations. Loop bodies get a
fresh scope on each pass. Variables must be declared before they are used.
`,
	"diagnostics": `Diagnostics

Faults print as "<kind> error: line <N>: <message>", or as a JSON object
with --json. Kinds and exit codes:

  syntax     2   the program does not parse
  semantic   2   undeclared names, redeclarations, type mismatches
  runtime    4   division by zero, undefined operands, budgets
`,
	"config": `Configuration

Settings are read from --config <path>, then .cbc.yaml in the working
directory, then ~/.cbc/config.yaml.

  max_iterations        total loop passes allowed (0 = unlimited)
  time_limit_ms         evaluation time allowed (0 = unlimited)
  debug_output          stdout, stderr or discard
  log_level             debug, info, warn or error
  log_format            text or json
  history_file          repl history ("" disables it)
  prompt, continuation_prompt

"cbc config" prints the effective settings.
`,
	"examples": `Examples

  var i, sum
  sum := 0
  for i := 0, 5 do
    sum := sum + i
  endfor
  sum                 # 10

  var n
  n := 7
  switch n
  case 0: "zero"
  case 7: "seven"
  default: "other"
  endswitch           # seven
`,
}

// MatchTopic resolves name to a topic, accepting an unambiguous prefix.
func MatchTopic(name string) (string, string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if content, ok := Topics[name]; ok {
		return name, content, nil
	}

	var matches []string
	if name != "" {
		for _, topic := range TopicList {
			if strings.HasPrefix(topic, name) {
				matches = append(matches, topic)
			}
		}
	}
	switch len(matches) {
	case 0:
		return "", "", fmt.Errorf("unknown help topic %q", name)
	case 1:
		return matches[0], Topics[matches[0]], nil
	}
	sort.Strings(matches)
	return "", "", fmt.Errorf("ambiguous help topic %q: %s", name, strings.Join(matches, ", "))
}
