package frontend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/futlang/futc/internal/ir"
)

func TestInternaliseFlattensNestedCalls(t *testing.T) {
	p := &Prog{Decls: []Decl{
		{Fun: &FunDecl{
			Name: "main", Entry: true,
			Params: []ParamDecl{{Name: "x", Type: "i64"}}, Ret: "i64",
			Body: ep(ecall("add", ev("x"), eint(1))),
		}},
	}}

	out, err := Internalise(p, nil)
	require.NoError(t, err)
	require.Len(t, out.Funs, 1)

	f := out.Funs[0]
	assert.True(t, f.Entry)
	require.Len(t, f.Body, 2)
	assert.Equal(t, ir.Stmt{Dest: "t0", Op: "const", Args: []string{"1"}}, f.Body[0])
	assert.Equal(t, ir.Stmt{Dest: "t1", Op: "add", Args: []string{"x", "t0"}}, f.Body[1])
}

func TestInternaliseBareVariableBody(t *testing.T) {
	p := &Prog{Decls: []Decl{
		{Fun: &FunDecl{
			Name:   "pass",
			Params: []ParamDecl{{Name: "v", Type: "i64"}}, Ret: "i64",
			Body:   ep(ev("v")),
		}},
	}}

	out, err := Internalise(p, nil)
	require.NoError(t, err)

	// The result must be a binding, so a bare variable gets rebound.
	body := out.Funs[0].Body
	require.Len(t, body, 1)
	assert.Equal(t, "id", body[0].Op)
	assert.Equal(t, []string{"v"}, body[0].Args)
}

func TestInternaliseAliasAnalysis(t *testing.T) {
	p := &Prog{Decls: []Decl{
		{Fun: &FunDecl{
			Name: "main", Entry: true,
			Params: []ParamDecl{
				{Name: "xs", Type: "[]i64"},
				{Name: "ys", Type: "[]i64"},
				{Name: "i", Type: "i64"},
				{Name: "v", Type: "i64"},
			},
			Ret:  "[]i64",
			Body: ep(ecall("update", ecall("concat", ev("xs"), ev("ys")), ev("i"), ev("v"))),
		}},
	}}

	out, err := Internalise(p, nil)
	require.NoError(t, err)

	body := out.Funs[0].Body
	require.Len(t, body, 2)
	// concat consumes two array params, update consumes its result.
	assert.Equal(t, []string{"xs", "ys"}, body[0].Aliases)
	assert.Equal(t, []string{"t0"}, body[1].Aliases)
}

func TestInternaliseScalarOpsDoNotAlias(t *testing.T) {
	p := &Prog{Decls: []Decl{
		{Fun: &FunDecl{
			Name: "main", Entry: true,
			Params: []ParamDecl{{Name: "xs", Type: "[]i64"}}, Ret: "i64",
			Body:   ep(ecall("length", ev("xs"))),
		}},
	}}

	out, err := Internalise(p, nil)
	require.NoError(t, err)
	assert.Empty(t, out.Funs[0].Body[0].Aliases)
}

func TestInternaliseExtraEntryPoints(t *testing.T) {
	p := &Prog{Decls: []Decl{
		{Fun: &FunDecl{Name: "helper", Ret: "i64", Body: ep(eint(1))}},
		{Fun: &FunDecl{Name: "main", Entry: true, Ret: "i64", Body: ep(eint(2))}},
	}}

	out, err := Internalise(p, []string{"helper"})
	require.NoError(t, err)
	assert.True(t, out.Funs[0].Entry, "extra entry point forced")
	assert.True(t, out.Funs[1].Entry)
}

func TestInternalisePropagatesUnsafe(t *testing.T) {
	p := &Prog{Decls: []Decl{
		{Fun: &FunDecl{
			Name: "main", Entry: true,
			Params: []ParamDecl{{Name: "xs", Type: "[]i64"}, {Name: "i", Type: "i64"}},
			Ret:    "i64",
			Body: ep(Expr{Call: &CallExpr{
				Fun: "index", Args: []Expr{ev("xs"), ev("i")}, Unsafe: true,
			}}),
		}},
	}}

	out, err := Internalise(p, nil)
	require.NoError(t, err)
	assert.True(t, out.Funs[0].Body[0].Unsafe)
}

func TestInternaliseRejectsResidualModule(t *testing.T) {
	p := &Prog{Decls: []Decl{
		{Mod: &ModDecl{Name: "M"}},
	}}
	_, err := Internalise(p, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "residual module declaration")
}

func TestInternaliseRejectsResidualFunctionValues(t *testing.T) {
	cases := map[string]*Expr{
		"lambda": {Lambda: &LambdaExpr{Body: ep(eint(1))}},
		"funref": {FunRef: "f"},
		"partial": {Call: &CallExpr{
			Fun: "f", Args: []Expr{eint(1)}, Partial: true,
		}},
		"typeargs": {Call: &CallExpr{
			Fun: "f", TypeArgs: []string{"i64"}, Args: []Expr{eint(1)},
		}},
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			p := &Prog{Decls: []Decl{
				{Fun: &FunDecl{Name: "main", Entry: true, Ret: "i64", Body: body}},
			}}
			_, err := Internalise(p, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "residual function value")
		})
	}
}

func TestInternaliseLoweredProgramPassesCheck(t *testing.T) {
	lowered, _, err := Lower(moduleProgram(), StageDefunc, Names(0))
	require.NoError(t, err)

	out, err := Internalise(lowered, nil)
	require.NoError(t, err)
	require.NoError(t, ir.Check(out))

	// Every surviving declaration made it across.
	assert.Len(t, out.Funs, len(lowered.Decls))
}
