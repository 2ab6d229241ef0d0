package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/p4ir/internal/ir"
)

func TestParseType(t *testing.T) {
	tests := []struct {
		input    string
		expected ir.TypeRef
	}{
		{"bit<8>", ir.Bits(8)},
		{" bit < 48 > ", ir.Bits(48)},
		{"bool", ir.Bool()},
		{"H", ir.Named("H")},
		{"register<bit<32>>", ir.Named("register", ir.Bits(32))},
		{"V1Switch<Parsed_packet, Metadata>", ir.Named("V1Switch", ir.Named("Parsed_packet"), ir.Named("Metadata"))},
		{"P<Q<bit<1>>, bool>", ir.Named("P", ir.Named("Q", ir.Bits(1)), ir.Bool())},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseType(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParseTypeErrors(t *testing.T) {
	for _, input := range []string{"", "bit", "bit<>", "bit<x>", "bit<8", "P<", "P<H,>", "H extra", "bit<-1>", "bit<99999999999>", "a$b"} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseType(input)
			assert.Error(t, err)
		})
	}
}

func TestParseExpr(t *testing.T) {
	hdr := ir.Path("hdr")
	tests := []struct {
		input    string
		expected ir.Expr
	}{
		{"hdr", hdr},
		{"hdr.h.a", ir.Member(ir.Member(hdr, "h"), "a")},
		{"hdr.h.a[7:1]", ir.Slice(ir.Member(ir.Member(hdr, "h"), "a"), 7, 1)},
		{"5", ir.Int(5)},
		{"0x800", ir.Int(0x800)},
		{"0b101", ir.Int(5)},
		{"8w255", ir.SizedInt(8, 255)},
		{"16w0x86dd", ir.SizedInt(16, 0x86dd)},
		{"true", ir.BoolLit(true)},
		{"false", ir.BoolLit(false)},
		{"default", ir.Default()},
		{"_", ir.Default()},
		{"error.NoMatch", ir.Member(ir.Path("error"), "NoMatch")},
		{"p()", ir.Call(ir.Path("p"), nil)},
		{"hdr.h.isValid()", ir.Call(ir.Member(ir.Member(hdr, "h"), "isValid"), nil)},
		{"pkt.lookahead<bit<16>>()", ir.Call(ir.Member(ir.Path("pkt"), "lookahead"), []ir.TypeRef{ir.Bits(16)})},
		{"ck.get(hdr.eth, 3)", ir.Call(ir.Member(ir.Path("ck"), "get"), nil, ir.Member(hdr, "eth"), ir.Int(3))},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseExpr(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, tt.expected.String(), got.String())
		})
	}
}

func TestParseExprErrors(t *testing.T) {
	for _, input := range []string{"", "hdr.", "hdr[7]", "hdr[a:1]", "hdr[7:1", "8w", "0w1", "f(1,", "f(1 2)", "1.5", "a + b", "x)"} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseExpr(input)
			assert.Error(t, err)
		})
	}
}

func TestParseExprRoundTripsThroughString(t *testing.T) {
	for _, input := range []string{"hdr.h.a[7:1]", "8w255", "pkt.extract<H>(hdr.h)", "verify(true, error.NoError)"} {
		e, err := ParseExpr(input)
		require.NoError(t, err)
		assert.Equal(t, input, e.String())
	}
}
