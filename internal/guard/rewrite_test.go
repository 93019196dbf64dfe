package guard

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const check = "_check_timeout"

func countChecks(source string) int {
	return strings.Count(source, check+"()")
}

func TestRewriteSource_LoopFreeUnchanged(t *testing.T) {
	sources := []string{
		"",
		"x = 1",
		"x = 1\ny = x + 2\nprint(y)",
		"def f(a):\n    return a * 2\n\nf(3)",
		"s = \"for ever\"  # while this is a comment",
		"items = [x * 2 for x in values]",
	}

	for _, src := range sources {
		assert.Equal(t, src, RewriteSource(src, check), "source: %q", src)
	}
}

func TestRewriteSource_BlockBody(t *testing.T) {
	src := "total = 0\nfor i in range(10):\n    total += i\nprint(total)"
	got := RewriteSource(src, check)

	want := "total = 0\nfor i in range(10):\n    " + check + "()\n    total += i\nprint(total)"
	assert.Equal(t, want, got)
}

func TestRewriteSource_WhileBlockBody(t *testing.T) {
	src := "n = 0\nwhile n < 10:\n    n += 1"
	got := RewriteSource(src, check)

	want := "n = 0\nwhile n < 10:\n    " + check + "()\n    n += 1"
	assert.Equal(t, want, got)
}

func TestRewriteSource_InlineSuiteExpanded(t *testing.T) {
	// A single-line suite must become a block so the check is part of the
	// loop body rather than a sibling statement.
	src := "while n < 10: n += 1"
	got := RewriteSource(src, check)

	want := "while n < 10:\n    " + check + "()\n    n += 1"
	assert.Equal(t, want, got)
}

func TestRewriteSource_OneCheckPerLoop(t *testing.T) {
	tests := []struct {
		name   string
		source string
		loops  int
	}{
		{
			name:   "single for",
			source: "for i in range(3):\n    pass",
			loops:  1,
		},
		{
			name:   "two independent loops",
			source: "for i in range(3):\n    a = i\nwhile a > 0:\n    a -= 1",
			loops:  2,
		},
		{
			name: "nested loops",
			source: "for i in range(3):\n" +
				"    for j in range(3):\n" +
				"        x = i * j",
			loops: 2,
		},
		{
			name: "loop inside function",
			source: "def spin(n):\n" +
				"    while n > 0:\n" +
				"        n -= 1\n" +
				"    return n",
			loops: 1,
		},
		{
			name:   "keywords in strings do not count",
			source: "s = \"while true\"\nfor i in range(2):\n    print(s)",
			loops:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RewriteSource(tt.source, check)
			assert.Equal(t, tt.loops, CountLoops(tt.source))
			assert.Equal(t, tt.loops, countChecks(got))
		})
	}
}

func TestRewriteSource_NestedLoopIndentation(t *testing.T) {
	src := "for i in range(2):\n" +
		"    for j in range(2):\n" +
		"        x = i + j"
	got := RewriteSource(src, check)

	lines := strings.Split(got, "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "    "+check+"()", lines[1])
	assert.Equal(t, "        "+check+"()", lines[3])
	assert.Equal(t, "        x = i + j", lines[4])
}

func TestRewriteSource_HeaderSpanningLines(t *testing.T) {
	src := "for i in range(\n        10):\n    x = i"
	got := RewriteSource(src, check)

	assert.Equal(t, 1, countChecks(got))
	lines := strings.Split(got, "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "    "+check+"()", lines[2])
}

func TestRewriteSource_TrailingCommentOnHeader(t *testing.T) {
	src := "while n < 3:  # spin\n    n += 1"
	got := RewriteSource(src, check)

	want := "while n < 3:  # spin\n    " + check + "()\n    n += 1"
	assert.Equal(t, want, got)
}

func TestRewriteSource_DictLiteralInBody(t *testing.T) {
	// Colons inside bracketed expressions must not be mistaken for the
	// header terminator.
	src := "for k in keys:\n    d = {k: 1}"
	got := RewriteSource(src, check)

	assert.Equal(t, 1, countChecks(got))
	assert.Contains(t, got, "d = {k: 1}")
}

func TestCountLoops(t *testing.T) {
	assert.Equal(t, 0, CountLoops("x = 1"))
	assert.Equal(t, 0, CountLoops("# while asleep\ns = 'for now'"))
	assert.Equal(t, 0, CountLoops("doubled = [x * 2 for x in xs]"))
	assert.Equal(t, 3, CountLoops("while a:\n    pass\nfor b in c:\n    while d:\n        pass"))
}
