package reconciler

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
	"gopkg.in/yaml.v3"
)

// NodeStatus tags an EvaluatedNode with how its component was handled.
type NodeStatus string

const (
	NodeNormal      NodeStatus = "NORMAL"
	NodeNewTree     NodeStatus = "NEW_TREE"
	NodeInlined     NodeStatus = "INLINED"
	NodeBailOut     NodeStatus = "BAIL-OUT"
	NodeRenderProps NodeStatus = "RENDER_PROPS"
	NodeForwardRef  NodeStatus = "FORWARD_REF"
)

// EvaluatedNode mirrors the component invocation tree of a fold. It is
// built for reporting only.
type EvaluatedNode struct {
	Name     string           `yaml:"name"`
	Status   NodeStatus       `yaml:"status"`
	Message  string           `yaml:"message,omitempty"`
	Children []*EvaluatedNode `yaml:"children,omitempty"`
}

// NewEvaluatedNode creates a report node.
func NewEvaluatedNode(status NodeStatus, name string) *EvaluatedNode {
	return &EvaluatedNode{Name: name, Status: status}
}

func (n *EvaluatedNode) addChild(child *EvaluatedNode) {
	n.Children = append(n.Children, child)
}

// Walk visits n and its descendants depth-first, pre-order.
func (n *EvaluatedNode) Walk(fn func(node *EvaluatedNode, depth int)) {
	n.walk(fn, 0)
}

func (n *EvaluatedNode) walk(fn func(*EvaluatedNode, int), depth int) {
	fn(n, depth)
	for _, c := range n.Children {
		c.walk(fn, depth+1)
	}
}

// Count returns how many nodes in the tree carry status.
func (n *EvaluatedNode) Count(status NodeStatus) int {
	total := 0
	n.Walk(func(node *EvaluatedNode, _ int) {
		if node.Status == status {
			total++
		}
	})
	return total
}

// MarshalReport encodes the tree as YAML.
func (n *EvaluatedNode) MarshalReport() ([]byte, error) {
	return yaml.Marshal(n)
}

var statusColors = map[NodeStatus]string{
	NodeInlined:     "\x1b[32m",
	NodeBailOut:     "\x1b[31m",
	NodeNewTree:     "\x1b[33m",
	NodeRenderProps: "\x1b[36m",
	NodeForwardRef:  "\x1b[35m",
}

// Render writes the tree as aligned text, one node per line.
func (n *EvaluatedNode) Render(w io.Writer, color bool) error {
	type line struct {
		label string
		node  *EvaluatedNode
	}
	var lines []line
	var visit func(node *EvaluatedNode, prefix string, last, root bool)
	visit = func(node *EvaluatedNode, prefix string, last, root bool) {
		label := node.Name
		childPrefix := prefix
		if !root {
			branch := "├─ "
			childPrefix += "│  "
			if last {
				branch = "└─ "
				childPrefix = prefix + "   "
			}
			label = prefix + branch + node.Name
		}
		lines = append(lines, line{label: label, node: node})
		for i, c := range node.Children {
			visit(c, childPrefix, i == len(node.Children)-1, false)
		}
	}
	visit(n, "", true, true)

	width := 0
	for _, l := range lines {
		width = max(width, runewidth.StringWidth(l.label))
	}
	for _, l := range lines {
		status := string(l.node.Status)
		if color {
			if c, ok := statusColors[l.node.Status]; ok {
				status = c + status + "\x1b[0m"
			}
		}
		text := runewidth.FillRight(l.label, width) + "  " + status
		if l.node.Message != "" {
			text += "  " + l.node.Message
		}
		if _, err := fmt.Fprintln(w, strings.TrimRight(text, " ")); err != nil {
			return err
		}
	}
	return nil
}
