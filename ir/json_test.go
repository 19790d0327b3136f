package ir_test

import (
	"encoding/json"
	"testing"

	"github.com/MerHS/mlir-tv/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const addOneJSON = `{
	"name": "add_one",
	"args": [{"name": "x", "type": {"kind": "integer", "width": 32}}],
	"results": [{"kind": "integer", "width": 32}],
	"blocks": [{
		"args": [],
		"ops": [
			{"kind": "ConstantOp", "results": [{"name": "c1", "type": {"kind": "integer", "width": 32}}], "const_kind": "int", "int_value": 1},
			{"kind": "AddIOp", "results": [{"name": "r", "type": {"kind": "integer", "width": 32}}], "x": "x", "y": "c1"},
			{"kind": "ReturnOp", "values": ["r"]}
		]
	}]
}`

func TestFunction_UnmarshalJSON_ResolvesSSAIdentity(t *testing.T) {
	var fn ir.Function
	require.NoError(t, json.Unmarshal([]byte(addOneJSON), &fn))

	assert.Equal(t, "add_one", fn.Name)
	require.Len(t, fn.Args, 1)
	require.Len(t, fn.Blocks, 1)

	block := fn.Blocks[0]
	require.Len(t, block.Ops, 3)

	addOp, ok := block.Ops[1].(*ir.AddIOp)
	require.True(t, ok, "expected op 1 to decode as *ir.AddIOp, got %T", block.Ops[1])

	// x in addi must be the very same *Value pointer the function declares as
	// its argument, not merely an equal-looking copy.
	assert.Same(t, fn.Args[0], addOp.X)

	constOp, ok := block.Ops[0].(*ir.ConstantOp)
	require.True(t, ok, "expected op 0 to decode as *ir.ConstantOp, got %T", block.Ops[0])
	assert.Same(t, constOp.Results()[0], addOp.Y)

	retOp, ok := block.Ops[2].(*ir.ReturnOp)
	require.True(t, ok, "expected op 2 to decode as *ir.ReturnOp, got %T", block.Ops[2])
	require.Len(t, retOp.Values, 1)
	assert.Same(t, addOp.Results()[0], retOp.Values[0])
}

func TestFunction_UnmarshalJSON_DuplicateDefinitionRejected(t *testing.T) {
	const dup = `{
		"name": "dup",
		"args": [],
		"blocks": [{
			"args": [],
			"ops": [
				{"kind": "ConstantOp", "results": [{"name": "x", "type": {"kind": "index"}}], "const_kind": "index", "int_value": 0},
				{"kind": "ConstantOp", "results": [{"name": "x", "type": {"kind": "index"}}], "const_kind": "index", "int_value": 1},
				{"kind": "ReturnOp", "values": ["x"]}
			]
		}]
	}`
	var fn ir.Function
	err := json.Unmarshal([]byte(dup), &fn)
	assert.Error(t, err, "expected redefining \"x\" to be rejected")
}

func TestFunction_UnmarshalJSON_UnresolvedOperandRejected(t *testing.T) {
	const bad = `{
		"name": "bad",
		"args": [],
		"blocks": [{
			"args": [],
			"ops": [
				{"kind": "ReturnOp", "values": ["never_defined"]}
			]
		}]
	}`
	var fn ir.Function
	err := json.Unmarshal([]byte(bad), &fn)
	assert.Error(t, err, "expected an operand referencing an undefined name to be rejected")
}

func TestDecodeType_Tensor(t *testing.T) {
	const withTensor = `{
		"name": "shapes",
		"args": [{"name": "t", "type": {"kind": "tensor", "elem": {"kind": "float", "precision": "f32"}, "dims": [2, 4]}}],
		"blocks": [{
			"args": [],
			"ops": [{"kind": "ReturnOp", "values": ["t"]}]
		}]
	}`
	var fn ir.Function
	require.NoError(t, json.Unmarshal([]byte(withTensor), &fn))

	tt, ok := fn.Args[0].Type.(ir.TensorType)
	require.True(t, ok, "expected a decoded ir.TensorType, got %T", fn.Args[0].Type)
	assert.Equal(t, []int64{2, 4}, tt.Dims)

	ft, ok := tt.Elem.(ir.FloatType)
	require.True(t, ok, "expected tensor element type to decode as ir.FloatType, got %T", tt.Elem)
	assert.Equal(t, ir.F32, ft.Precision)
}
