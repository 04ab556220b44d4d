package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/janelia-flyem/segedit/editor"
	"github.com/janelia-flyem/segedit/segment"
	"github.com/janelia-flyem/segedit/vol"
)

const scriptSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["ops"],
  "additionalProperties": false,
  "properties": {
    "brush": {"$ref": "#/definitions/brush"},
    "ops": {"type": "array", "items": {"$ref": "#/definitions/op"}}
  },
  "definitions": {
    "point": {
      "type": "array",
      "items": {"type": "integer"},
      "minItems": 3,
      "maxItems": 3
    },
    "brush": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "shape": {"enum": ["angular", "round"]},
        "mode": {"enum": ["2d", "3d"]},
        "radius": {"type": "number", "exclusiveMinimum": 0},
        "view": {"enum": ["xy", "xz", "zy"]}
      }
    },
    "op": {
      "type": "object",
      "required": ["op"],
      "additionalProperties": false,
      "properties": {
        "op": {"enum": ["paint", "erase", "select", "select-brush", "unselect", "clear", "merge", "unmerge",
                        "split", "plane-split", "create", "remove", "metadata", "todo", "region", "brush", "load", "flush"]},
        "at": {"$ref": "#/definitions/point"},
        "label": {"type": "integer", "minimum": 0},
        "object": {"type": "integer", "minimum": 1},
        "axis": {"enum": ["xy", "xz", "zy"]},
        "min": {"$ref": "#/definitions/point"},
        "max": {"$ref": "#/definitions/point"},
        "brush": {"$ref": "#/definitions/brush"},
        "immutable": {"type": "boolean"},
        "todo": {"type": "boolean"},
        "category": {"type": "string"},
        "comment": {"type": "string"}
      },
      "allOf": [
        {"if": {"properties": {"op": {"const": "paint"}}}, "then": {"required": ["at", "label"]}},
        {"if": {"properties": {"op": {"enum": ["erase", "select-brush", "unmerge", "split"]}}}, "then": {"required": ["at"]}},
        {"if": {"properties": {"op": {"const": "plane-split"}}}, "then": {"required": ["at", "axis"]}},
        {"if": {"properties": {"op": {"const": "select"}}}, "then": {"anyOf": [{"required": ["at"]}, {"required": ["object"]}]}},
        {"if": {"properties": {"op": {"enum": ["unselect", "remove", "metadata"]}}}, "then": {"required": ["object"]}},
        {"if": {"properties": {"op": {"const": "todo"}}}, "then": {"required": ["object", "todo"]}},
        {"if": {"properties": {"op": {"const": "create"}}}, "then": {"required": ["label"]}},
        {"if": {"properties": {"op": {"enum": ["region", "load"]}}}, "then": {"required": ["min", "max"]}},
        {"if": {"properties": {"op": {"const": "brush"}}}, "then": {"required": ["brush"]}}
      ]
    }
  }
}`

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiledSchema, compileErr = jsonschema.CompileString("segedit-script.json", scriptSchema)
	})
	return compiledSchema, compileErr
}

// BrushSpec sets brush parameters.  Empty fields keep the current setting.
type BrushSpec struct {
	Shape  string  `json:"shape"`
	Mode   string  `json:"mode"`
	Radius float64 `json:"radius"`
	View   string  `json:"view"`
}

// apply returns b with the non-empty settings applied.
func (bs BrushSpec) apply(b editor.Brush) (editor.Brush, error) {
	var err error
	if bs.Shape != "" {
		if b.Shape, err = editor.ParseShape(bs.Shape); err != nil {
			return b, err
		}
	}
	if bs.Mode != "" {
		if b.Mode, err = editor.ParseMode(bs.Mode); err != nil {
			return b, err
		}
	}
	if bs.Radius > 0 {
		b.Radius = bs.Radius
	}
	if bs.View != "" {
		view, err := editor.ParseAxis(bs.View)
		if err != nil {
			return b, err
		}
		b.V1, b.V2, b.N = view.Frame()
	}
	return b, nil
}

// Op is one step of a script.
type Op struct {
	Op        string       `json:"op"`
	At        *vol.Point3d `json:"at,omitempty"`
	Label     uint64       `json:"label,omitempty"`
	Object    uint64       `json:"object,omitempty"`
	Axis      string       `json:"axis,omitempty"`
	Min       *vol.Point3d `json:"min,omitempty"`
	Max       *vol.Point3d `json:"max,omitempty"`
	Brush     *BrushSpec   `json:"brush,omitempty"`
	Immutable bool         `json:"immutable,omitempty"`
	Todo      bool         `json:"todo,omitempty"`
	Category  string       `json:"category,omitempty"`
	Comment   string       `json:"comment,omitempty"`
}

func (op Op) point() vol.Point3d {
	if op.At == nil {
		return vol.Point3d{}
	}
	return *op.At
}

func (op Op) bounds() vol.Bounds {
	return vol.NewBounds(*op.Min, *op.Max)
}

// Script is a sequence of operations run against a session.
type Script struct {
	Brush *BrushSpec `json:"brush,omitempty"`
	Ops   []Op       `json:"ops"`
}

// ParseScript validates and decodes a JSON script.
func ParseScript(data []byte) (*Script, error) {
	sch, err := schema()
	if err != nil {
		return nil, fmt.Errorf("bad script schema: %v", err)
	}
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("script is not valid JSON: %v", err)
	}
	if err := sch.Validate(doc); err != nil {
		return nil, fmt.Errorf("invalid script: %v", err)
	}
	var script Script
	if err := json.Unmarshal(data, &script); err != nil {
		return nil, fmt.Errorf("can't decode script: %v", err)
	}
	return &script, nil
}

// OpResult reports the outcome of one script operation.
type OpResult struct {
	Op      string   `json:"op"`
	Objects []uint64 `json:"objects,omitempty"`
	Cubes   int      `json:"cubes,omitempty"`
	Warning string   `json:"warning,omitempty"`
}

// Run executes a script.  Cubes that aren't resident produce a warning in the
// operation's result; any other error stops the script.
func (s *Session) Run(ctx context.Context, script *Script) ([]OpResult, error) {
	if script.Brush != nil {
		b, err := script.Brush.apply(s.brush)
		if err != nil {
			return nil, err
		}
		s.brush = b
	}
	results := make([]OpResult, 0, len(script.Ops))
	for i, op := range script.Ops {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := s.runOp(ctx, op)
		res.Op = op.Op
		if err != nil {
			if !isUnavailable(err) {
				return results, fmt.Errorf("script op %d (%s): %w", i, op.Op, err)
			}
			vol.Warningf("script op %d (%s): %v\n", i, op.Op, err)
			res.Warning = err.Error()
		}
		results = append(results, res)
	}
	return results, nil
}

func (s *Session) runOp(ctx context.Context, op Op) (OpResult, error) {
	var res OpResult
	switch op.Op {
	case "paint":
		r, err := s.Paint(op.point(), op.Label)
		res.Cubes = len(r.Modified)
		return res, err

	case "erase":
		r, err := s.Erase(op.point())
		res.Cubes = len(r.Modified)
		return res, err

	case "select":
		if op.Object != 0 {
			res.Objects = []uint64{op.Object}
			return res, s.SelectObject(op.Object)
		}
		o, err := s.SelectAt(op.point())
		res.Objects = []uint64{o.ID}
		return res, err

	case "select-brush":
		ids, err := s.SelectByBrush(op.point())
		res.Objects = ids
		return res, err

	case "unselect":
		return res, s.UnselectObject(op.Object)

	case "clear":
		s.ClearSelection()
		return res, nil

	case "merge":
		o, err := s.Merge()
		res.Objects = []uint64{o.ID}
		return res, err

	case "unmerge":
		return res, s.Unmerge(op.point())

	case "split":
		r, err := s.Split(op.point())
		res.Objects = []uint64{r.SplitID, r.NewID}
		res.Cubes = len(r.Modified)
		return res, err

	case "plane-split":
		axis, err := editor.ParseAxis(op.Axis)
		if err != nil {
			return res, err
		}
		r, err := s.PlaneSplit(op.point(), axis)
		res.Objects = []uint64{r.SplitID, r.NewID}
		res.Cubes = len(r.Modified)
		return res, err

	case "create":
		o, err := s.CreateObject(op.Label, op.point(), segment.CreateOptions{
			ID:        op.Object,
			Todo:      op.Todo,
			Immutable: op.Immutable,
		})
		res.Objects = []uint64{o.ID}
		return res, err

	case "remove":
		return res, s.RemoveObject(op.Object)

	case "metadata":
		return res, s.SetMetadata(op.Object, segment.Metadata{Category: op.Category, Comment: op.Comment})

	case "todo":
		return res, s.SetTodo(op.Object, op.Todo)

	case "region":
		s.SetRegion(op.bounds())
		return res, nil

	case "brush":
		b, err := op.Brush.apply(s.brush)
		if err != nil {
			return res, err
		}
		s.brush = b
		return res, nil

	case "load":
		return res, s.Load(ctx, op.bounds())

	case "flush":
		return res, s.Flush(ctx)
	}
	return res, fmt.Errorf("unknown script op %q", op.Op)
}
