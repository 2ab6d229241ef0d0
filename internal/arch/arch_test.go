package arch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/p4ir/internal/ir"
)

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"core", "none", "v1model"}, Names())
}

func TestPrelude(t *testing.T) {
	for _, name := range []string{"", None} {
		decls, err := Prelude(name)
		require.NoError(t, err)
		assert.Empty(t, decls)
	}

	_, err := Prelude("tna")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown architecture "tna"`)
}

func TestV1ModelStartsWithCore(t *testing.T) {
	core, err := Prelude(Core)
	require.NoError(t, err)
	v1, err := Prelude(V1Model)
	require.NoError(t, err)

	require.Greater(t, len(v1), len(core))
	for i, d := range core {
		assert.Equal(t, d.Name, v1[i].Name)
		assert.Equal(t, d.Kind, v1[i].Kind)
	}

	last := v1[len(v1)-1]
	assert.Equal(t, "V1Switch", last.Name)
	assert.Equal(t, ir.DeclPackage, last.Kind)
}

func TestPreludeIsFresh(t *testing.T) {
	a, err := Prelude(V1Model)
	require.NoError(t, err)
	a[0].Name = "mutated"

	b, err := Prelude(V1Model)
	require.NoError(t, err)
	assert.Equal(t, "error", b[0].Name)
}

func TestCoreHasErrorEnumAndMatchKinds(t *testing.T) {
	byName := make(map[string]ir.DeclKind)
	for _, d := range CoreDecls() {
		byName[d.Name] = d.Kind
	}
	assert.Equal(t, ir.DeclType, byName["error"])
	assert.Equal(t, ir.DeclExtern, byName["packet_in"])
	assert.Equal(t, ir.DeclExtern, byName["packet_out"])
	assert.Equal(t, ir.DeclMethod, byName["verify"])
	assert.Len(t, ir.RuntimeErrors, 7)
}
