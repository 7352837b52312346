package setalg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixed = Solver{NewID: func() string { return "t" }}

func TestSolve_SingleKey(t *testing.T) {
	p := fixed.Solve(KeyString("Dog:all"))
	assert.Equal(t, "MULTI\n=> SMEMBERS Dog:all\nEXEC", p.String())
	assert.Equal(t, 1, p.Result)
}

func TestSolve_FlatInter(t *testing.T) {
	p := fixed.Solve(Inter(KeyString("a"), KeyString("b")))
	assert.Equal(t, "MULTI\n=> SINTER a b\nEXEC", p.String())
	assert.Equal(t, 1, p.Result)
}

func TestSolve_NestedUsesTemporaryKeys(t *testing.T) {
	set := Diff(Union(KeyString("a"), KeyString("b")), Inter(KeyString("c"), KeyString("d")))
	p := fixed.Solve(set)
	expected := "MULTI\n" +
		"SUNIONSTORE stal:t:1 a b\n" +
		"SINTERSTORE stal:t:2 c d\n" +
		"=> SDIFF stal:t:1 stal:t:2\n" +
		"DEL stal:t:1 stal:t:2\n" +
		"EXEC"
	assert.Equal(t, expected, p.String())
	assert.Equal(t, 3, p.Result)
}

func TestSolve_LeftDeepCompositionIsFlattened(t *testing.T) {
	set := Inter(KeyString("c"), Inter(KeyString("b"), Inter(KeyString("a"))))
	p := fixed.Solve(set)
	assert.Equal(t, "MULTI\n=> SINTER c b a\nEXEC", p.String())

	set = Diff(Diff(KeyString("a"), KeyString("b")), KeyString("c"))
	p = fixed.Solve(set)
	assert.Equal(t, "MULTI\n=> SDIFF a b c\nEXEC", p.String())
}

func TestSolveTemplate(t *testing.T) {
	tmpl := [][]byte{[]byte("SORT"), nil, []byte("BY"), []byte("Dog:*->name"), []byte("ASC"), []byte("ALPHA")}

	p := fixed.SolveTemplate(tmpl, 1, KeyString("Dog:all"))
	assert.Equal(t, "MULTI\n=> SORT Dog:all BY Dog:*->name ASC ALPHA\nEXEC", p.String())

	p = fixed.SolveTemplate(tmpl, 1, Inter(KeyString("a"), KeyString("b")))
	expected := "MULTI\n" +
		"SINTERSTORE stal:t:1 a b\n" +
		"=> SORT stal:t:1 BY Dog:*->name ASC ALPHA\n" +
		"DEL stal:t:1\n" +
		"EXEC"
	assert.Equal(t, expected, p.String())
	assert.Equal(t, 2, p.Result)
	require.Nil(t, tmpl[1], "template must not be modified")
}

func TestDefaultSolverUsesDistinctTempKeys(t *testing.T) {
	set := Inter(Union(KeyString("a"), KeyString("b")), KeyString("c"))
	p1 := Solver{}.Solve(set)
	p2 := Solver{}.Solve(set)
	require.Len(t, p1.Ops, 5)
	assert.NotEqual(t, string(p1.Ops[1][1]), string(p2.Ops[1][1]))
	assert.Contains(t, string(p1.Ops[1][1]), "stal:")
}

func TestSetStringAndKeys(t *testing.T) {
	set := Union(KeyString("a"), Inter(KeyString("b"), KeyString("a")))
	assert.Equal(t, "(union a (inter b a))", set.String())
	assert.Equal(t, []string{"a", "b"}, set.Keys())
}
