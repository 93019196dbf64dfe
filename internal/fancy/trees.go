package fancy

import (
	"fmt"

	"github.com/charmbracelet/lipgloss/tree"
)

// ComponentTree wraps a styled lipgloss tree for one CLI output section.
type ComponentTree struct {
	tree *tree.Tree
}

// NewComponentTree creates a new component tree with common styling.
func NewComponentTree(title string) *ComponentTree {
	t := tree.New()
	t.EnumeratorStyle(BranchStyle)
	t.Enumerator(tree.RoundedEnumerator)
	t.Root(title)

	return &ComponentTree{
		tree: t,
	}
}

// Tree returns the underlying tree.
func (c *ComponentTree) Tree() *tree.Tree {
	return c.tree
}

// AddBranch adds a new branch with the given text.
func (c *ComponentTree) AddBranch(text string) *tree.Tree {
	return c.tree.Child(text)
}

// AddChild adds a child node to the root branch.
func (c *ComponentTree) AddChild(child any) *tree.Tree {
	return c.tree.Child(child)
}

// ScriptTree creates a tree rooted at a script name.
func ScriptTree(name string) *ComponentTree {
	return NewComponentTree(ScriptText(name))
}

// ControlNode formats one declared control as a tree node.
func ControlNode(label, typ string, value any) string {
	return fmt.Sprintf("%s %s = %v",
		ControlText(label), SummaryText("("+typ+")"), value)
}

// AnimationNode formats an animation summary as a tree node.
func AnimationNode(keyframes int, duration, fps float64, loop bool) string {
	suffix := ""
	if loop {
		suffix = " looping"
	}
	return AnimationText(fmt.Sprintf("%d keyframes over %.2fs at %.0ffps%s",
		keyframes, duration, fps, suffix))
}

// FrameCacheNode formats a frame cache summary as a tree node.
func FrameCacheNode(frames int) string {
	return FrameText(fmt.Sprintf("%d cached frames", frames))
}
