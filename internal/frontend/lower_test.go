package frontend

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ev(name string) Expr { return Expr{Var: name} }

func eint(v int64) Expr { n := v; return Expr{Int: &n} }

func ecall(fun string, args ...Expr) Expr {
	return Expr{Call: &CallExpr{Fun: fun, Args: args}}
}

func ep(e Expr) *Expr { return &e }

// moduleProgram builds the canonical lowering test input: a module, a
// functor applied twice, a polymorphic function, and an entry point with
// a capturing lambda.
func moduleProgram() *Prog {
	lambda := Expr{Lambda: &LambdaExpr{
		Params: []ParamDecl{{Name: "x", Type: "i64"}},
		Body: ep(ecall("add",
			ecall("A.twice", ev("x")),
			Expr{Call: &CallExpr{Fun: "id2", TypeArgs: []string{"i64"}, Args: []Expr{ev("n")}}},
		)),
	}}
	return &Prog{Decls: []Decl{
		{Mod: &ModDecl{Name: "M", Decls: []Decl{
			{Fun: &FunDecl{
				Name:   "double",
				Params: []ParamDecl{{Name: "x", Type: "i64"}},
				Ret:    "i64",
				Body:   ep(ecall("add", ev("x"), ev("x"))),
			}},
		}}},
		{Mod: &ModDecl{Name: "F", Param: "P", Decls: []Decl{
			{Fun: &FunDecl{
				Name:   "twice",
				Params: []ParamDecl{{Name: "x", Type: "i64"}},
				Ret:    "i64",
				Body:   ep(ecall("P.double", ecall("P.double", ev("x")))),
			}},
		}}},
		{Apply: &ApplyDecl{Name: "A", Functor: "F", Arg: "M"}},
		{Apply: &ApplyDecl{Name: "B", Functor: "F", Arg: "M"}},
		{Fun: &FunDecl{
			Name:       "id2",
			TypeParams: []string{"t"},
			Params:     []ParamDecl{{Name: "v", Type: "t"}},
			Ret:        "t",
			Body:       ep(ev("v")),
		}},
		{Fun: &FunDecl{
			Name:   "main",
			Entry:  true,
			Params: []ParamDecl{{Name: "n", Type: "i64"}, {Name: "xs", Type: "[]i64"}},
			Ret:    "[]i64",
			Body:   ep(Expr{Call: &CallExpr{Fun: "map", Args: []Expr{lambda, ev("xs")}}}),
		}},
	}}
}

func declNames(p *Prog) []string {
	names := make([]string, len(p.Decls))
	for i, d := range p.Decls {
		names[i] = d.Fun.Name
	}
	return names
}

// =============================================================================
// Stage Tests
// =============================================================================

func TestEvalModulesFlattensAndInstantiates(t *testing.T) {
	out, src, err := EvalModules(moduleProgram(), Names(0))
	require.NoError(t, err)

	assert.Equal(t,
		[]string{"M_double_0", "A_twice_1", "B_twice_2", "id2", "main"},
		declNames(out))
	assert.Equal(t, 3, src.Count(), "three flattened members")

	// Both functor applications reference the same argument member.
	twice := out.Decls[1].Fun
	assert.Equal(t, "M_double_0", twice.Body.Call.Fun)
}

func TestEvalModulesHidesAscribedMembers(t *testing.T) {
	p := &Prog{Decls: []Decl{
		{Mod: &ModDecl{Name: "M", Hide: []string{"secret"}, Decls: []Decl{
			{Fun: &FunDecl{Name: "secret", Ret: "i64", Body: ep(eint(1))}},
			{Fun: &FunDecl{Name: "public", Ret: "i64", Body: ep(ecall("secret"))}},
		}}},
		{Fun: &FunDecl{Name: "main", Entry: true, Ret: "i64", Body: ep(ecall("M.secret"))}},
	}}

	_, _, err := EvalModules(p, Names(0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no visible member "secret"`)
}

func TestEvalModulesHiddenMemberUsableInside(t *testing.T) {
	p := &Prog{Decls: []Decl{
		{Mod: &ModDecl{Name: "M", Hide: []string{"secret"}, Decls: []Decl{
			{Fun: &FunDecl{Name: "secret", Ret: "i64", Body: ep(eint(1))}},
			{Fun: &FunDecl{Name: "public", Ret: "i64", Body: ep(ecall("secret"))}},
		}}},
		{Fun: &FunDecl{Name: "main", Entry: true, Ret: "i64", Body: ep(ecall("M.public"))}},
	}}

	out, _, err := EvalModules(p, Names(0))
	require.NoError(t, err)
	require.Len(t, out.Decls, 3)
	// public still calls the flattened hidden member.
	assert.Equal(t, "M_secret_0", out.Decls[1].Fun.Body.Call.Fun)
}

func TestMonomorphiseSharesSpecialisations(t *testing.T) {
	p := &Prog{Decls: []Decl{
		{Fun: &FunDecl{
			Name: "id", TypeParams: []string{"t"},
			Params: []ParamDecl{{Name: "v", Type: "t"}}, Ret: "t",
			Body: ep(ev("v")),
		}},
		{Fun: &FunDecl{
			Name: "main", Entry: true,
			Params: []ParamDecl{{Name: "n", Type: "i64"}}, Ret: "i64",
			Body: ep(ecall("add",
				Expr{Call: &CallExpr{Fun: "id", TypeArgs: []string{"i64"}, Args: []Expr{ev("n")}}},
				Expr{Call: &CallExpr{Fun: "id", TypeArgs: []string{"i64"}, Args: []Expr{ev("n")}}},
			)),
		}},
	}}

	out, src, err := Monomorphise(p, Names(0))
	require.NoError(t, err)

	assert.Equal(t, []string{"main", "id_i64_0"}, declNames(out))
	assert.Equal(t, 1, src.Count(), "identical instantiations share one copy")

	spec := out.Decls[1].Fun
	assert.Empty(t, spec.TypeParams)
	assert.Equal(t, "i64", spec.Params[0].Type)
	assert.Equal(t, "i64", spec.Ret)
}

func TestLiftLambdasCapturesFreeVariables(t *testing.T) {
	p := &Prog{Decls: []Decl{
		{Fun: &FunDecl{
			Name: "main", Entry: true,
			Params: []ParamDecl{{Name: "n", Type: "i64"}, {Name: "xs", Type: "[]i64"}},
			Ret:    "[]i64",
			Body: ep(Expr{Call: &CallExpr{Fun: "map", Args: []Expr{
				{Lambda: &LambdaExpr{
					Params: []ParamDecl{{Name: "x", Type: "i64"}},
					Body:   ep(ecall("add", ev("x"), ev("n"))),
				}},
				ev("xs"),
			}}}),
		}},
	}}

	out, src, err := LiftLambdas(p, Names(0))
	require.NoError(t, err)
	require.Equal(t, []string{"main", "main_lam_0"}, declNames(out))
	assert.Equal(t, 1, src.Count())

	lifted := out.Decls[1].Fun
	assert.Equal(t, []ParamDecl{{Name: "n", Type: "i64"}, {Name: "x", Type: "i64"}},
		lifted.Params)

	site := out.Decls[0].Fun.Body.Call.Args[0]
	require.NotNil(t, site.Call)
	assert.True(t, site.Call.Partial)
	assert.Equal(t, "main_lam_0", site.Call.Fun)
	assert.Equal(t, []Expr{ev("n")}, site.Call.Args)
}

func TestDefunctionaliseGeneratesDispatch(t *testing.T) {
	p := &Prog{Decls: []Decl{
		{Fun: &FunDecl{
			Name:   "inc",
			Params: []ParamDecl{{Name: "x", Type: "i64"}}, Ret: "i64",
			Body: ep(ecall("add", ev("x"), eint(1))),
		}},
		{Fun: &FunDecl{
			Name:   "call1",
			Params: []ParamDecl{{Name: "f", Type: "fn"}, {Name: "x", Type: "i64"}}, Ret: "i64",
			Body: ep(ecall("f", ev("x"))),
		}},
		{Fun: &FunDecl{
			Name: "main", Entry: true, Ret: "i64",
			Body: ep(Expr{Call: &CallExpr{Fun: "call1", Args: []Expr{
				{FunRef: "inc"}, eint(5),
			}}}),
		}},
	}}

	out, src, err := Defunctionalise(p, Names(0))
	require.NoError(t, err)
	require.Equal(t, []string{"inc", "call1", "main", "apply_0"}, declNames(out))
	assert.Equal(t, 1, src.Count())

	// The function reference became a tagged tuple.
	closure := out.Decls[2].Fun.Body.Call.Args[0]
	require.NotNil(t, closure.Tuple)
	require.Len(t, closure.Tuple, 1)
	assert.Equal(t, int64(0), *closure.Tuple[0].Int)

	// The dynamic call goes through the dispatch function.
	dyn := out.Decls[1].Fun.Body.Call
	assert.Equal(t, "apply_0", dyn.Fun)
	assert.Equal(t, []Expr{ev("f"), ev("x")}, dyn.Args)

	// The dispatch function switches on the closure tag.
	apply := out.Decls[3].Fun
	require.NotNil(t, apply.Body.Switch)
	require.Len(t, apply.Body.Switch.Cases, 1)
	caseBody := apply.Body.Switch.Cases[0].Body
	assert.Equal(t, "inc", caseBody.Call.Fun)
}

func TestDefunctionalisePartialApplicationCapturesEnv(t *testing.T) {
	p := &Prog{Decls: []Decl{
		{Fun: &FunDecl{
			Name:   "addTo",
			Params: []ParamDecl{{Name: "n", Type: "i64"}, {Name: "x", Type: "i64"}}, Ret: "i64",
			Body:   ep(ecall("add", ev("n"), ev("x"))),
		}},
		{Fun: &FunDecl{
			Name:   "use",
			Params: []ParamDecl{{Name: "g", Type: "fn"}}, Ret: "i64",
			Body:   ep(ecall("g", eint(10))),
		}},
		{Fun: &FunDecl{
			Name: "main", Entry: true,
			Params: []ParamDecl{{Name: "k", Type: "i64"}}, Ret: "i64",
			Body: ep(Expr{Call: &CallExpr{Fun: "use", Args: []Expr{
				{Call: &CallExpr{Fun: "addTo", Args: []Expr{ev("k")}, Partial: true}},
			}}}),
		}},
	}}

	out, _, err := Defunctionalise(p, Names(0))
	require.NoError(t, err)

	// Partial application became a tuple carrying the captured argument.
	closure := out.Decls[2].Fun.Body.Call.Args[0]
	require.Len(t, closure.Tuple, 2)
	assert.Equal(t, "k", closure.Tuple[1].Var)

	// The dispatch case unpacks the environment before the dynamic args.
	apply := out.Decls[3].Fun
	caseBody := apply.Body.Switch.Cases[0].Body
	require.Equal(t, "addTo", caseBody.Call.Fun)
	require.Len(t, caseBody.Call.Args, 2)
	assert.Equal(t, &ProjExpr{Var: "clo", Index: 1}, caseBody.Call.Args[0].Proj)
	assert.Equal(t, "x0", caseBody.Call.Args[1].Var)
}

// =============================================================================
// Whole-Front-End Properties
// =============================================================================

func TestLowerIsDeterministic(t *testing.T) {
	first, srcA, err := Lower(moduleProgram(), StageDefunc, Names(0))
	require.NoError(t, err)
	second, srcB, err := Lower(moduleProgram(), StageDefunc, Names(0))
	require.NoError(t, err)

	assert.True(t, reflect.DeepEqual(first, second), "same input and counter must lower identically")
	assert.Equal(t, srcA.Count(), srcB.Count())
}

func TestLowerSynthesizedNamesAreUnique(t *testing.T) {
	out, _, err := Lower(moduleProgram(), StageDefunc, Names(0))
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, name := range declNames(out) {
		assert.False(t, seen[name], "declaration name %q appears twice", name)
		seen[name] = true
	}
}

func TestLowerDifferentStartsKeepStructure(t *testing.T) {
	a, _, err := Lower(moduleProgram(), StageDefunc, Names(0))
	require.NoError(t, err)
	b, _, err := Lower(moduleProgram(), StageDefunc, Names(1000))
	require.NoError(t, err)

	require.Equal(t, len(a.Decls), len(b.Decls))
	namesA := map[string]bool{}
	for _, n := range declNames(a) {
		namesA[n] = true
	}
	for i, n := range declNames(b) {
		if a.Decls[i].Fun.Entry {
			assert.Equal(t, a.Decls[i].Fun.Name, n, "entry points keep their names")
		}
	}
}

func TestLowerStopsAfterPrefix(t *testing.T) {
	out, _, err := Lower(moduleProgram(), StageModules, Names(0))
	require.NoError(t, err)

	// Polymorphism must still be present: only stage 1 ran.
	var sawTypeParams bool
	for _, d := range out.Decls {
		if len(d.Fun.TypeParams) > 0 {
			sawTypeParams = true
		}
	}
	assert.True(t, sawTypeParams)
}

func TestLowerZeroStagesIsIdentity(t *testing.T) {
	p := moduleProgram()
	out, src, err := Lower(p, 0, Names(42))
	require.NoError(t, err)
	assert.True(t, reflect.DeepEqual(p, out))
	assert.Equal(t, 42, src.Count())
}

// =============================================================================
// Stage Output Goldens
// =============================================================================

func TestLowerStageGoldens(t *testing.T) {
	g := goldie.New(t)
	for stage := StageModules; stage <= StageDefunc; stage++ {
		out, _, err := Lower(moduleProgram(), stage, Names(0))
		require.NoError(t, err)
		g.Assert(t, fmt.Sprintf("lower_stage%d", int(stage)), []byte(Render(out)))
	}
}
