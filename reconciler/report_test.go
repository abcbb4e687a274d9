package reconciler

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"
)

func sampleReport() *EvaluatedNode {
	root := NewEvaluatedNode(NodeInlined, "App")
	header := NewEvaluatedNode(NodeInlined, "Header")
	header.addChild(NewEvaluatedNode(NodeRenderProps, "Theme.Consumer"))
	bail := NewEvaluatedNode(NodeBailOut, "Widget")
	bail.Message = "refs are not supported on <Components />"
	root.addChild(header)
	root.addChild(bail)
	return root
}

func TestEvaluatedNode_Render(t *testing.T) {
	var buf bytes.Buffer
	if err := sampleReport().Render(&buf, false); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	want := strings.Join([]string{
		"App                   INLINED",
		"├─ Header             INLINED",
		"│  └─ Theme.Consumer  RENDER_PROPS",
		"└─ Widget             BAIL-OUT  refs are not supported on <Components />",
		"",
	}, "\n")
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("render mismatch (-want +got):\n%s", diff)
	}
}

func TestEvaluatedNode_RenderColor(t *testing.T) {
	var buf bytes.Buffer
	if err := sampleReport().Render(&buf, true); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(buf.String(), "\x1b[31mBAIL-OUT\x1b[0m") {
		t.Errorf("expected a coloured BAIL-OUT tag in %q", buf.String())
	}
}

func TestEvaluatedNode_MarshalReport(t *testing.T) {
	root := sampleReport()
	data, err := root.MarshalReport()
	if err != nil {
		t.Fatalf("MarshalReport failed: %v", err)
	}
	var back EvaluatedNode
	if err := yaml.Unmarshal(data, &back); err != nil {
		t.Fatalf("report is not valid YAML: %v", err)
	}
	if diff := cmp.Diff(root, &back); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
}

func TestEvaluatedNode_Count(t *testing.T) {
	root := sampleReport()
	counts := map[NodeStatus]int{
		NodeInlined:     2,
		NodeRenderProps: 1,
		NodeBailOut:     1,
		NodeNewTree:     0,
	}
	for status, want := range counts {
		if got := root.Count(status); got != want {
			t.Errorf("Count(%s) = %d, want %d", status, got, want)
		}
	}
}
