package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/adl/internal/ir"
	"github.com/roach88/adl/internal/schema"
	tu "github.com/roach88/adl/internal/testutil"
)

func TestMoveToConflictLeavesBothSidesUntouched(t *testing.T) {
	tests := []struct {
		name       string
		dir        Direction
		vModel     *schema.ApiTypeModel
		nModel     *schema.ApiTypeModel
		versioned  ir.IRObject
		normalized ir.IRObject
		prop       string
		path       string
		wantPath   string
	}{
		{
			name:       "to_normalized nested target",
			dir:        ToNormalized,
			vModel:     tu.Model("Root", tu.Str("r", tu.Move("a.z"))),
			nModel:     tu.Model("Root", tu.Complex("a", tu.Model("A", tu.Str("z")))),
			versioned:  ir.Obj(ir.O("r", ir.IRString("moved"))),
			normalized: ir.Obj(ir.O("a", ir.Obj(ir.O("z", ir.IRString("keep"))))),
			prop:       "r",
			path:       "a.z",
			wantPath:   "a.z",
		},
		{
			name:       "to_normalized rooted target",
			dir:        ToNormalized,
			vModel:     tu.Model("Root", tu.Str("r", tu.Move("$.top"))),
			nModel:     tu.Model("Root", tu.Str("top")),
			versioned:  ir.Obj(ir.O("r", ir.IRString("moved"))),
			normalized: ir.Obj(ir.O("top", ir.IRString("keep"))),
			prop:       "r",
			path:       "$.top",
			wantPath:   "top",
		},
		{
			name:       "to_versioned same container",
			dir:        ToVersioned,
			vModel:     tu.Model("Root", tu.Str("shade", tu.Move("color"))),
			nModel:     tu.Model("Root", tu.Str("color")),
			versioned:  ir.Obj(ir.O("shade", ir.IRString("keep"))),
			normalized: ir.Obj(ir.O("color", ir.IRString("red"))),
			prop:       "shade",
			path:       "color",
			wantPath:   "shade",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vBefore := tt.versioned.Clone()
			nBefore := tt.normalized.Clone()
			c := testContext(tt.dir, tt.vModel, tt.versioned, tt.nModel, tt.normalized)

			MoveTo{Path: tt.path}.Apply(tt.dir, c, tt.vModel.GetProperty(tt.prop))

			assert.Equal(t, vBefore, tt.versioned)
			assert.Equal(t, nBefore, tt.normalized)
			require.Len(t, c.run.errors, 1)
			assert.True(t, IsConflict(&c.run.errors[0]))
			assert.Equal(t, tt.wantPath, c.run.errors[0].Path)
		})
	}
}

func TestMoveToConflictThroughRuntime(t *testing.T) {
	a := tu.Model("A", tu.Str("z"))
	normalized := tu.Model("Root", tu.Complex("a", a))
	versioned := tu.Model("Root", tu.Complex("a", a), tu.Str("r", tu.Move("a.z")))
	rt := newRuntime(t, tu.API("moves", normalized, v1, versioned))

	in := ir.Obj(ir.O("a", ir.Obj(ir.O("z", ir.IRString("keep")))), ir.O("r", ir.IRString("moved")))
	before := in.Clone()

	res, err := rt.Normalize(context.Background(), v1, "Root", in)
	require.NoError(t, err)

	assert.Equal(t, ir.Obj(ir.O("a", ir.Obj(ir.O("z", ir.IRString("keep"))))), res.Payload)
	assert.Equal(t, before, in, "source must not change")
	assert.Equal(t, []ErrorCode{ErrCodeConflict}, codesOf(res.Errors))
	assert.Equal(t, "a.z", res.Errors[0].Path)
}

func TestComplexMapTraceIsStable(t *testing.T) {
	normalized := tu.Model("Root", tu.ComplexMap("items", tu.Model("Item", tu.Str("name"))))
	versioned := tu.Model("Root", tu.ComplexMap("items", tu.Model("Item", tu.Str("label", tu.Rename("name")))))
	rt := newRuntime(t, tu.API("maps", normalized, v1, versioned))

	keys := []string{"h", "c", "a", "f", "b", "g", "e", "d"}
	items := ir.IRObject{}
	for _, k := range keys {
		items[k] = ir.Obj(ir.O("label", ir.IRString(k)))
	}
	in := ir.Obj(ir.O("items", items))

	first, err := rt.Normalize(context.Background(), v1, "Root", in)
	require.NoError(t, err)

	var renamed []string
	for _, s := range first.Trace {
		if s.Action == ActionRename {
			renamed = append(renamed, s.Path)
		}
	}
	want := make([]string, 0, len(keys))
	for _, k := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		want = append(want, fmt.Sprintf("items[%q].name", k))
	}
	assert.Equal(t, want, renamed)

	for i := 0; i < 50; i++ {
		res, err := rt.Normalize(context.Background(), v1, "Root", in)
		require.NoError(t, err)
		require.Equal(t, first.Trace, res.Trace, "run %d", i)
	}
}

func TestZeroFor(t *testing.T) {
	tests := []struct {
		typeName string
		v        ir.IRValue
		want     bool
	}{
		{schema.TypeString, ir.IRString(""), true},
		{schema.TypeString, ir.IRString("x"), false},
		{schema.TypeString, ir.IRInt(0), false},
		{schema.TypeNumber, ir.IRInt(0), true},
		{schema.TypeNumber, ir.IRInt(3), false},
		{schema.TypeNumber, ir.IRString(""), false},
		{schema.TypeBoolean, ir.IRBool(false), false},
		{schema.TypeString, ir.IRNull{}, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%v", tt.typeName, tt.v), func(t *testing.T) {
			assert.Equal(t, tt.want, zeroFor(tt.typeName, tt.v))
		})
	}
}
