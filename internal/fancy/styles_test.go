package fancy_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/atlanticdynamic/inklynx/internal/fancy"
)

func TestTextHelpers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		fn   func(string) string
	}{
		{"ControlText", fancy.ControlText},
		{"AnimationText", fancy.AnimationText},
		{"FrameText", fancy.FrameText},
		{"ScriptText", fancy.ScriptText},
		{"ValidText", fancy.ValidText},
		{"ErrorText", fancy.ErrorText},
		{"PathText", fancy.PathText},
		{"SummaryText", fancy.SummaryText},
		{"CountText", fancy.CountText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := tt.fn("sample")
			assert.Contains(t, out, "sample")
		})
	}
}

func TestComponentTree(t *testing.T) {
	t.Parallel()

	ct := fancy.NewComponentTree("root")
	ct.AddBranch("branch")
	ct.AddChild("leaf")

	rendered := ct.Tree().String()
	assert.Contains(t, rendered, "root")
	assert.Contains(t, rendered, "branch")
	assert.Contains(t, rendered, "leaf")
}

func TestScriptTree(t *testing.T) {
	t.Parallel()

	ct := fancy.ScriptTree("wave.star")
	ct.AddChild(fancy.ControlNode("speed", "slider", 5.0))
	ct.AddChild(fancy.AnimationNode(2, 1.5, 30, true))
	ct.AddChild(fancy.FrameCacheNode(42))

	rendered := ct.Tree().String()
	assert.Contains(t, rendered, "wave.star")
	assert.Contains(t, rendered, "speed")
	assert.Contains(t, rendered, "(slider)")
	assert.Contains(t, rendered, "2 keyframes")
	assert.True(t, strings.Contains(rendered, "looping"))
	assert.Contains(t, rendered, "42 cached frames")
}

func TestControlNode(t *testing.T) {
	t.Parallel()

	node := fancy.ControlNode("size", "number", 3.0)
	assert.Contains(t, node, "size")
	assert.Contains(t, node, "(number)")
	assert.Contains(t, node, "3")
}
