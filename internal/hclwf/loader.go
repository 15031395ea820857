// Package hclwf loads workflow definitions authored as HCL files, as an
// alternative to the JSON payload accepted over HTTP. The HCL form exists
// for hand-written workflows driven from the CLI:
//
//	workflow {
//	  node "q" {
//	    type = "user_query"
//	  }
//	  node "k" {
//	    type   = "knowledge_base"
//	    config = { top_k = 3 }
//	  }
//	  edge {
//	    from = "q"
//	    to   = "k"
//	  }
//	}
//
// Node config objects are evaluated to cty values and converted to their
// native Go representation, so the rest of the system sees the same
// map[string]any it would after a JSON decode.
package hclwf

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/queryflow/internal/workflow"
)

type fileHCL struct {
	Workflow *workflowHCL `hcl:"workflow,block"`
}

type workflowHCL struct {
	Nodes []nodeHCL `hcl:"node,block"`
	Edges []edgeHCL `hcl:"edge,block"`
}

type nodeHCL struct {
	ID     string         `hcl:"id,label"`
	Type   string         `hcl:"type"`
	Config hcl.Expression `hcl:"config,optional"`
}

type edgeHCL struct {
	From string `hcl:"from"`
	To   string `hcl:"to"`
}

// LoadFile parses one .hcl workflow file into a Definition.
func LoadFile(path string) (*workflow.Definition, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse workflow file %s: %w", path, diags)
	}
	return decode(file)
}

// Load parses HCL source from memory; filename is used in diagnostics only.
func Load(src []byte, filename string) (*workflow.Definition, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse workflow %s: %w", filename, diags)
	}
	return decode(file)
}

func decode(file *hcl.File) (*workflow.Definition, error) {
	var parsed fileHCL
	if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("decode workflow: %w", diags)
	}
	if parsed.Workflow == nil {
		return nil, fmt.Errorf("decode workflow: missing 'workflow' block")
	}

	def := &workflow.Definition{
		Nodes: make([]workflow.Node, 0, len(parsed.Workflow.Nodes)),
		Edges: make([]workflow.Edge, 0, len(parsed.Workflow.Edges)),
	}

	for _, n := range parsed.Workflow.Nodes {
		config, err := configMap(n.Config)
		if err != nil {
			return nil, fmt.Errorf("node '%s': %w", n.ID, err)
		}
		def.Nodes = append(def.Nodes, workflow.Node{ID: n.ID, Type: n.Type, Config: config})
	}
	for _, e := range parsed.Workflow.Edges {
		def.Edges = append(def.Edges, workflow.Edge{From: e.From, To: e.To})
	}

	return def, nil
}

// configMap evaluates a node's config expression and converts it to a native
// map. An absent config yields an empty map.
func configMap(expr hcl.Expression) (map[string]any, error) {
	if expr == nil {
		return map[string]any{}, nil
	}

	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, fmt.Errorf("evaluate config: %w", diags)
	}
	if val.IsNull() {
		return map[string]any{}, nil
	}

	native, err := ctyToNative(val)
	if err != nil {
		return nil, fmt.Errorf("convert config: %w", err)
	}
	config, ok := native.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("config must be an object, got %T", native)
	}
	return config, nil
}
