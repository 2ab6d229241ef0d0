package generic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/p4ir/internal/ir"
)

// =============================================================================
// Bind
// =============================================================================

func TestBindZipsParamsInOrder(t *testing.T) {
	s, err := Bind(ir.Generic("H", "M"), []ir.TypeRef{ir.Named("Parsed_packet"), ir.Named("Metadata")})
	require.NoError(t, err)

	h, ok := s.Lookup("H")
	require.True(t, ok)
	assert.Equal(t, "Parsed_packet", h.String())

	m, ok := s.Lookup("M")
	require.True(t, ok)
	assert.Equal(t, "Metadata", m.String())
	assert.Equal(t, 2, s.Len())
}

func TestBindArityMismatch(t *testing.T) {
	_, err := Bind(ir.Generic("H", "M"), []ir.TypeRef{ir.Named("Parsed_packet")})
	require.Error(t, err)
	assert.True(t, ir.IsKind(err, ir.ErrArityMismatch))

	_, err = BindList(nil, []ir.TypeRef{ir.Bits(8)})
	assert.True(t, ir.IsKind(err, ir.ErrArityMismatch))
}

func TestBindEmpty(t *testing.T) {
	s, err := Bind(ir.TypeParams{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, "{}", s.String())
}

func TestBindIgnoresReturnSlot(t *testing.T) {
	// lookahead<T>: return slot T also appears positionally
	tp := ir.Returning(ir.Param("T"), "T")
	s, err := Bind(tp, []ir.TypeRef{ir.Named("ethernet_t")})
	require.NoError(t, err)
	assert.Equal(t, "ethernet_t", s.Apply(*tp.Return).String())
}

// =============================================================================
// Apply
// =============================================================================

func TestApplyReplacesParamsRecursively(t *testing.T) {
	s, err := BindList([]string{"H", "M"}, []ir.TypeRef{ir.Named("Parsed_packet"), ir.Named("Metadata")})
	require.NoError(t, err)

	in := ir.Named("Parser", ir.Param("H"), ir.Named("box", ir.Param("M")), ir.Bits(9))
	out := s.Apply(in)

	assert.Equal(t, "Parser<Parsed_packet, box<Metadata>, bit<9>>", out.String())
	assert.False(t, out.HasParams())
	// input untouched
	assert.Equal(t, "Parser<H, box<M>, bit<9>>", in.String())
}

func TestApplyLeavesUnboundParams(t *testing.T) {
	s, err := BindList([]string{"T"}, []ir.TypeRef{ir.Bits(16)})
	require.NoError(t, err)

	out := s.Apply(ir.Named("pair", ir.Param("T"), ir.Param("U")))
	assert.Equal(t, "pair<bit<16>, U>", out.String())
	assert.Equal(t, []string{"U"}, Unbound(out))
}

func TestApplyIsSinglePass(t *testing.T) {
	// T -> list<T> must not loop
	s, err := BindList([]string{"T"}, []ir.TypeRef{ir.Named("list", ir.Param("T"))})
	require.NoError(t, err)

	out := s.Apply(ir.Param("T"))
	assert.Equal(t, "list<T>", out.String())

	again := s.Apply(out)
	assert.Equal(t, "list<list<T>>", again.String())
}

func TestApplyDoesNotAliasBindings(t *testing.T) {
	arg := ir.Named("box", ir.Bits(8))
	s, err := BindList([]string{"T"}, []ir.TypeRef{arg})
	require.NoError(t, err)

	out := s.Apply(ir.Param("T"))
	out.Args[0] = ir.Bool()

	again := s.Apply(ir.Param("T"))
	assert.Equal(t, "box<bit<8>>", again.String())
	assert.Equal(t, "box<bit<8>>", arg.String())
}

func TestApplyParamsAndFields(t *testing.T) {
	s, err := BindList([]string{"T"}, []ir.TypeRef{ir.Bits(32)})
	require.NoError(t, err)

	def := ir.Int(0)
	params := []ir.Parameter{ir.Out("result", ir.Param("T")), {Direction: ir.DirIn, Name: "index", Type: ir.Bits(32), Default: &def}}
	got := s.ApplyParams(params)
	require.Len(t, got, 2)
	assert.Equal(t, ir.DirOut, got[0].Direction)
	assert.Equal(t, "bit<32>", got[0].Type.String())
	require.NotNil(t, got[1].Default)
	assert.NotSame(t, params[1].Default, got[1].Default)
	assert.True(t, params[0].Type.IsParam(), "input parameters must not be mutated")

	fields := s.ApplyFields([]ir.Field{ir.F("v", ir.Param("T"))})
	assert.Equal(t, "bit<32>", fields[0].Type.String())
}

func TestApplySignatureDropsBoundParams(t *testing.T) {
	sig := ir.Signature{
		TypeParams: ir.Returning(ir.Param("O"), "T", "O"),
		Params:     []ir.Parameter{ir.In("data", ir.Param("T"))},
	}
	s, err := BindList([]string{"T"}, []ir.TypeRef{ir.Bits(8)})
	require.NoError(t, err)

	got := s.ApplySignature(sig)
	assert.Equal(t, []string{"O"}, got.TypeParams.Params)
	assert.Equal(t, "O", got.TypeParams.Return.String())
	assert.Equal(t, "bit<8>", got.Params[0].Type.String())
}

// Substituting any bindings into a type with no params is the identity.
func TestApplyIdentityOnConcreteTypes(t *testing.T) {
	s, err := BindList([]string{"T", "U"}, []ir.TypeRef{ir.Bits(1), ir.Bool()})
	require.NoError(t, err)

	for _, ty := range []ir.TypeRef{ir.Bits(48), ir.Bool(), ir.Named("ethernet_t"), ir.Named("register", ir.Bits(32))} {
		assert.True(t, ty.Equal(s.Apply(ty)), ty.String())
	}
}

func TestWithWithout(t *testing.T) {
	a, _ := BindList([]string{"T"}, []ir.TypeRef{ir.Bits(8)})
	b := a.With("U", ir.Bool())
	assert.Equal(t, 1, a.Len())
	assert.Equal(t, 2, b.Len())
	assert.Equal(t, []string{"T", "U"}, b.Names())

	d := b.Without("T")
	_, ok := d.Lookup("T")
	assert.False(t, ok)
	_, ok = b.Lookup("T")
	assert.True(t, ok, "Without copies")
}

func TestWithoutShadowsMethodTypeParameter(t *testing.T) {
	ext, _ := BindList([]string{"T"}, []ir.TypeRef{ir.Bits(8)})
	sig := ir.Signature{TypeParams: ir.Generic("T"), Params: []ir.Parameter{ir.In("x", ir.Param("T"))}}

	got := ext.Without(sig.TypeParams.Params...).ApplySignature(sig)
	assert.Equal(t, []string{"T"}, got.TypeParams.Params)
	assert.True(t, got.Params[0].Type.IsParam())
}

// =============================================================================
// Unify
// =============================================================================

func TestUnifyBindsVars(t *testing.T) {
	s, ok := Unify(ir.Named("pair", ir.Param("T"), ir.Param("T")),
		ir.Named("pair", ir.Bits(8), ir.Bits(8)), []string{"T"}, Empty())
	require.True(t, ok)
	ty, _ := s.Lookup("T")
	assert.Equal(t, "bit<8>", ty.String())
}

func TestUnifyConflict(t *testing.T) {
	_, ok := Unify(ir.Named("pair", ir.Param("T"), ir.Param("T")),
		ir.Named("pair", ir.Bits(8), ir.Bits(16)), []string{"T"}, Empty())
	assert.False(t, ok)
}

func TestUnifyForeignParamMustMatch(t *testing.T) {
	_, ok := Unify(ir.Param("X"), ir.Bits(8), []string{"T"}, Empty())
	assert.False(t, ok)

	_, ok = Unify(ir.Param("X"), ir.Param("X"), []string{"T"}, Empty())
	assert.True(t, ok)
}

func TestUnifyLeavesAccumulatorUntouched(t *testing.T) {
	acc := Empty().With("U", ir.Bool())
	got, ok := Unify(ir.Param("T"), ir.Bits(4), []string{"T"}, acc)
	require.True(t, ok)
	assert.Equal(t, 1, acc.Len())
	assert.Equal(t, 2, got.Len())
}
