package guard

import (
	"regexp"
	"strings"
)

// loopHeader matches a statement that opens a `for` or `while` loop. Only
// consulted at statement starts, so comprehension `for` clauses (which sit
// inside brackets) never match.
var loopHeader = regexp.MustCompile(`^(for|while)\b`)

// defaultIndent is appended to a loop header's indentation when an inline
// suite has to be expanded into a block.
const defaultIndent = "    "

// RewriteSource returns source with a call to checkName injected as the
// first statement of every `for` and `while` loop body. Single-line suites
// ("while x: n += 1") are expanded into indented blocks so the injected
// call is part of the loop body. Loop-free source is returned unchanged.
//
// The transform is line-based and respects string literals and comments:
// loop keywords inside either are not treated as loop headers.
func RewriteSource(source, checkName string) string {
	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))
	check := checkName + "()"

	var st scanState
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		atStatementStart := st.atStatementStart()

		trimmed := strings.TrimLeft(line, " \t")
		indent := line[:len(line)-len(trimmed)]

		if !atStatementStart || !loopHeader.MatchString(trimmed) {
			st = st.scan(line)
			out = append(out, line)
			continue
		}

		// Loop header. Locate the colon that terminates it, possibly on a
		// continuation line when the condition spans brackets.
		headerEnd := i
		colon := -1
		hst := st
		for j := i; j < len(lines); j++ {
			var pos int
			hst, pos = hst.scanForColon(lines[j])
			if pos >= 0 {
				headerEnd, colon = j, pos
				break
			}
		}
		if colon < 0 {
			// Malformed header; leave the remainder untouched and let the
			// parser report it.
			st = st.scan(line)
			out = append(out, line)
			continue
		}

		headerLast := lines[headerEnd]
		suite := headerLast[colon+1:]
		suiteCode := strings.TrimSpace(stripComment(suite))

		out = append(out, lines[i:headerEnd]...)

		if suiteCode == "" {
			// Block suite: inject the check above the first body line,
			// matching the body's own indentation.
			out = append(out, headerLast)
			bodyIndent := defaultIndent
			if next, ok := nextCodeLine(lines, headerEnd+1); ok {
				nt := strings.TrimLeft(next, " \t")
				if candidate := next[:len(next)-len(nt)]; len(candidate) > len(indent) {
					bodyIndent = candidate
				} else {
					bodyIndent = indent + defaultIndent
				}
			}
			out = append(out, bodyIndent+check)
		} else {
			// Inline suite: expand into a block with the check first.
			out = append(out, headerLast[:colon+1])
			out = append(out, indent+defaultIndent+check)
			out = append(out, indent+defaultIndent+strings.TrimSpace(suite))
		}

		for j := i; j <= headerEnd; j++ {
			st = st.scan(lines[j])
		}
		i = headerEnd
	}

	return strings.Join(out, "\n")
}

// CountLoops returns the number of `for` and `while` statements in source,
// ignoring occurrences inside strings, comments, and bracketed expressions.
func CountLoops(source string) int {
	count := 0
	var st scanState
	for _, line := range strings.Split(source, "\n") {
		if st.atStatementStart() {
			trimmed := strings.TrimLeft(line, " \t")
			if loopHeader.MatchString(trimmed) {
				count++
			}
		}
		st = st.scan(line)
	}
	return count
}

// nextCodeLine returns the first line at or after start that carries code.
func nextCodeLine(lines []string, start int) (string, bool) {
	for i := start; i < len(lines); i++ {
		if strings.TrimSpace(stripComment(lines[i])) != "" {
			return lines[i], true
		}
	}
	return "", false
}

// stripComment drops a trailing comment, ignoring # characters inside
// string literals.
func stripComment(line string) string {
	var quote byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '#':
			return line[:i]
		}
	}
	return line
}

// scanState tracks multi-line lexical context: open brackets, triple-quoted
// strings, and explicit backslash continuations.
type scanState struct {
	depth       int
	inTriple    bool
	tripleQuote byte
	continued   bool
}

// atStatementStart reports whether the next line begins a new statement.
func (s scanState) atStatementStart() bool {
	return s.depth == 0 && !s.inTriple && !s.continued
}

// scan consumes one line and returns the updated state.
func (s scanState) scan(line string) scanState {
	next, _ := s.scanLine(line, false)
	return next
}

// scanForColon consumes one line and additionally reports the position of
// the first colon at bracket depth zero outside any string, or -1.
func (s scanState) scanForColon(line string) (scanState, int) {
	return s.scanLine(line, true)
}

func (s scanState) scanLine(line string, wantColon bool) (scanState, int) {
	colon := -1
	s.continued = false

	var quote byte
	for i := 0; i < len(line); i++ {
		c := line[i]

		if s.inTriple {
			if c == '\\' {
				i++
				continue
			}
			if c == s.tripleQuote &&
				strings.HasPrefix(line[i:], strings.Repeat(string(s.tripleQuote), 3)) {
				s.inTriple = false
				i += 2
			}
			continue
		}

		if quote != 0 {
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
			continue
		}

		switch c {
		case '\'', '"':
			if strings.HasPrefix(line[i:], strings.Repeat(string(c), 3)) {
				s.inTriple = true
				s.tripleQuote = c
				i += 2
			} else {
				quote = c
			}
		case '#':
			return s, colon
		case '(', '[', '{':
			s.depth++
		case ')', ']', '}':
			if s.depth > 0 {
				s.depth--
			}
		case ':':
			if wantColon && colon < 0 && s.depth == 0 {
				colon = i
			}
		case '\\':
			if i == len(line)-1 {
				s.continued = true
			}
		}
	}

	return s, colon
}
