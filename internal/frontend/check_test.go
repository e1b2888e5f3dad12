package frontend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checkProblems(t *testing.T, p *Prog) []string {
	t.Helper()
	_, err := Check(p)
	require.Error(t, err)
	var ce *CheckError
	require.ErrorAs(t, err, &ce)
	return ce.Problems
}

func TestCheckAcceptsWellFormedProgram(t *testing.T) {
	warnings, err := Check(moduleProgram())
	require.NoError(t, err)
	assert.Empty(t, warnings)
}

func TestCheckUnknownFunction(t *testing.T) {
	p := &Prog{Decls: []Decl{
		{Fun: &FunDecl{Name: "main", Entry: true, Ret: "i64", Body: ep(ecall("nope"))}},
	}}
	problems := checkProblems(t, p)
	require.Len(t, problems, 1)
	assert.Equal(t, `main: call to unknown function "nope"`, problems[0])
}

func TestCheckBuiltinArity(t *testing.T) {
	p := &Prog{Decls: []Decl{
		{Fun: &FunDecl{
			Name: "main", Entry: true,
			Params: []ParamDecl{{Name: "xs", Type: "[]i64"}}, Ret: "[]i64",
			Body: ep(ecall("map", ev("xs"))),
		}},
	}}
	problems := checkProblems(t, p)
	require.Len(t, problems, 1)
	assert.Equal(t, "main: map expects 2 arguments, got 1", problems[0])
}

func TestCheckBuiltinRejectsTypeArguments(t *testing.T) {
	p := &Prog{Decls: []Decl{
		{Fun: &FunDecl{
			Name: "main", Entry: true,
			Params: []ParamDecl{{Name: "n", Type: "i64"}}, Ret: "[]i64",
			Body: ep(Expr{Call: &CallExpr{
				Fun: "iota", TypeArgs: []string{"i64"}, Args: []Expr{ev("n")},
			}}),
		}},
	}}
	problems := checkProblems(t, p)
	require.Len(t, problems, 1)
	assert.Equal(t, "main: iota takes no type arguments", problems[0])
}

func TestCheckTypeArgumentCount(t *testing.T) {
	p := &Prog{Decls: []Decl{
		{Fun: &FunDecl{
			Name: "pick", TypeParams: []string{"t"},
			Params: []ParamDecl{{Name: "v", Type: "t"}}, Ret: "t",
			Body: ep(ev("v")),
		}},
		{Fun: &FunDecl{
			Name: "main", Entry: true,
			Params: []ParamDecl{{Name: "n", Type: "i64"}}, Ret: "i64",
			Body: ep(ecall("pick", ev("n"))),
		}},
	}}
	problems := checkProblems(t, p)
	require.Len(t, problems, 1)
	assert.Equal(t, "main: pick expects 1 type arguments, got 0", problems[0])
}

func TestCheckUnboundVariable(t *testing.T) {
	p := &Prog{Decls: []Decl{
		{Fun: &FunDecl{Name: "main", Entry: true, Ret: "i64", Body: ep(ev("ghost"))}},
	}}
	problems := checkProblems(t, p)
	require.Len(t, problems, 1)
	assert.Equal(t, `main: unbound variable "ghost"`, problems[0])
}

func TestCheckLambdaParamsBind(t *testing.T) {
	p := &Prog{Decls: []Decl{
		{Fun: &FunDecl{
			Name: "main", Entry: true,
			Params: []ParamDecl{{Name: "xs", Type: "[]i64"}}, Ret: "[]i64",
			Body: ep(ecall("map",
				Expr{Lambda: &LambdaExpr{
					Params: []ParamDecl{{Name: "x", Type: "i64"}},
					Body:   ep(ecall("add", ev("x"), ev("x"))),
				}},
				ev("xs"),
			)),
		}},
	}}
	_, err := Check(p)
	assert.NoError(t, err)
}

func TestCheckFunctionTypedBinding(t *testing.T) {
	// A call through a parameter is deferred to defunctionalisation and
	// must not be flagged, whatever the argument count.
	p := &Prog{Decls: []Decl{
		{Fun: &FunDecl{
			Name:   "use",
			Params: []ParamDecl{{Name: "g", Type: "fn"}}, Ret: "i64",
			Body: ep(ecall("g", eint(1), eint(2), eint(3))),
		}},
		{Fun: &FunDecl{
			Name: "main", Entry: true, Ret: "i64",
			Body: ep(ecall("use", Expr{FunRef: "use"})),
		}},
	}}
	_, err := Check(p)
	assert.NoError(t, err)
}

func TestCheckUnknownFunctionReference(t *testing.T) {
	p := &Prog{Decls: []Decl{
		{Fun: &FunDecl{Name: "main", Entry: true, Ret: "i64", Body: ep(Expr{FunRef: "gone"})}},
	}}
	problems := checkProblems(t, p)
	require.Len(t, problems, 1)
	assert.Equal(t, `main: reference to unknown function "gone"`, problems[0])
}

func TestCheckCollectsAllProblems(t *testing.T) {
	p := &Prog{Decls: []Decl{
		{Fun: &FunDecl{Name: "a", Ret: "i64", Body: ep(ecall("nope"))}},
		{Fun: &FunDecl{Name: "b", Ret: "i64", Body: ep(ev("ghost"))}},
		{Fun: &FunDecl{Name: "main", Entry: true, Ret: "i64",
			Body: ep(ecall("add", ecall("a"), ecall("b")))}},
	}}
	problems := checkProblems(t, p)
	assert.Len(t, problems, 2)
}

func TestCheckWarnsUnusedFunction(t *testing.T) {
	p := &Prog{Decls: []Decl{
		{Fun: &FunDecl{Name: "helper", Ret: "i64", Body: ep(eint(1))}},
		{Fun: &FunDecl{Name: "main", Entry: true, Ret: "i64", Body: ep(eint(2))}},
	}}
	warnings, err := Check(p)
	require.NoError(t, err)
	assert.Equal(t, []string{"function helper is never used"}, warnings)
}

func TestCheckWarnsShadowingParameter(t *testing.T) {
	p := &Prog{Decls: []Decl{
		{Fun: &FunDecl{
			Name:   "inc",
			Params: []ParamDecl{{Name: "x", Type: "i64"}}, Ret: "i64",
			Body:   ep(ecall("add", ev("x"), eint(1))),
		}},
		{Fun: &FunDecl{
			Name: "main", Entry: true,
			Params: []ParamDecl{{Name: "inc", Type: "i64"}}, Ret: "i64",
			Body:   ep(ev("inc")),
		}},
	}}
	warnings, err := Check(p)
	require.NoError(t, err)
	assert.Contains(t, warnings, "function main: parameter inc shadows a function")
}

func TestCheckEntryPointIsNeverUnused(t *testing.T) {
	p := &Prog{Decls: []Decl{
		{Fun: &FunDecl{Name: "main", Entry: true, Ret: "i64", Body: ep(eint(0))}},
	}}
	warnings, err := Check(p)
	require.NoError(t, err)
	assert.Empty(t, warnings)
}
