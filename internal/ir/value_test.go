package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Representation Tag Tests
// =============================================================================

func TestRepString(t *testing.T) {
	assert.Equal(t, "Core", Core.String())
	assert.Equal(t, "GpuParallelMem", GpuParallelMem.String())
	assert.Equal(t, "SequentialMem", SequentialMem.String())
}

func TestRepMem(t *testing.T) {
	assert.False(t, Core.Mem())
	assert.False(t, MultiCore.Mem())
	assert.True(t, GpuParallelMem.Mem())
	assert.True(t, MultiCoreMem.Mem())
	assert.True(t, SequentialMem.Mem())
}

func TestRepsCoversEveryTag(t *testing.T) {
	reps := Reps()
	require.Len(t, reps, 7)
	seen := map[Rep]bool{}
	for _, r := range reps {
		seen[r] = true
	}
	assert.Len(t, seen, 7, "no duplicates")
}

// =============================================================================
// Tagged Value Tests
// =============================================================================

func TestUnwrapMatchingTag(t *testing.T) {
	prog := &Prog{Funs: []Fun{{Name: "main", Entry: true}}}
	v := New(Core, prog)

	got, err := v.Unwrap("simplify", Core)
	require.NoError(t, err)
	assert.Same(t, Program(prog), got)
}

func TestUnwrapTagSet(t *testing.T) {
	v := New(Sequential, &Prog{})

	_, err := v.Unwrap("allocate", GpuParallel, Sequential)
	assert.NoError(t, err)
}

func TestUnwrapMismatchNamesBothTags(t *testing.T) {
	v := New(GpuParallelMem, &MemProg{})

	_, err := v.Unwrap("allocate", GpuParallel, Sequential)
	require.Error(t, err)

	var mismatch *MismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "allocate", mismatch.Who)
	assert.Equal(t, []Rep{GpuParallel, Sequential}, mismatch.Expected)
	assert.Equal(t, GpuParallelMem, mismatch.Actual)
	assert.Equal(t,
		"allocate expects one of GpuParallel, Sequential representation, but got GpuParallelMem",
		err.Error())
}

func TestUnwrapSingleExpectedWording(t *testing.T) {
	v := New(Core, &Prog{})

	_, err := v.Unwrap("double-buffer", GpuParallelMem)
	require.Error(t, err)
	assert.Equal(t,
		"double-buffer expects GpuParallelMem representation, but got Core",
		err.Error())
}

func TestNewRejectsTagPayloadMismatch(t *testing.T) {
	assert.Panics(t, func() { New(Core, &MemProg{}) })
	assert.Panics(t, func() { New(SequentialMem, &Prog{}) })
	assert.NotPanics(t, func() { New(SequentialMem, &MemProg{}) })
}

// =============================================================================
// Program Rendering & Metrics Tests
// =============================================================================

func testProg() *Prog {
	return &Prog{Funs: []Fun{
		{
			Name:   "main",
			Params: []Param{{Name: "xs", Type: "[]i64"}},
			Ret:    "[]i64",
			Entry:  true,
			Body: []Stmt{
				{Dest: "a", Op: "map", Args: []string{"f", "xs"}, Aliases: []string{"xs"}},
				{Dest: "b", Op: "reduce", Args: []string{"add", "a"}},
			},
		},
	}}
}

func TestRenderText(t *testing.T) {
	want := "entry main(xs: []i64): []i64 =\n" +
		"  let a = map f xs\n" +
		"  let b = reduce add a\n"
	assert.Equal(t, want, testProg().RenderText())
}

func TestAliasText(t *testing.T) {
	text := testProg().AliasText()
	assert.Contains(t, text, "let a = map f xs @{xs}")
	assert.Contains(t, text, "let b = reduce add a @{}")
}

func TestMetrics(t *testing.T) {
	m := testProg().Metrics()
	assert.Equal(t, Metrics{"funs": 1, "map": 1, "reduce": 1}, m)
	assert.Equal(t, "funs 1\nmap 1\nreduce 1\n", m.Render())
}

func TestMemProgRendersAllocTable(t *testing.T) {
	p := &MemProg{
		Prog:   *testProg(),
		Allocs: []Alloc{{Name: "mem_0", Space: "device", Bytes: "n*8"}},
	}

	text := p.RenderText()
	assert.Contains(t, text, "alloc mem_0: n*8@device\n")
	assert.Contains(t, text, "entry main")

	m := p.Metrics()
	assert.Equal(t, 1, m["allocs"])
}
