// Package testutil holds fixtures shared by tests across packages.
package testutil

import (
	"github.com/roach88/p4ir/internal/arch"
	"github.com/roach88/p4ir/internal/ir"
)

// StageArgs are the six blocks of the regression program in role order.
var StageArgs = []string{"p", "vrfy", "ingress", "egress", "update", "deparser"}

// RegressionProgram returns the v1model prelude followed by RegressionUserDecls.
func RegressionProgram() []ir.Declaration {
	decls, _ := arch.Prelude(arch.V1Model)
	return append(decls, RegressionUserDecls()...)
}

// RegressionProgramWith is RegressionProgram with main constructed from args instead
// of StageArgs.
func RegressionProgramWith(args ...string) []ir.Declaration {
	decls := RegressionProgram()
	decls[len(decls)-1] = MainInstance(args...)
	return decls
}

// RegressionUserDecls is a six-stage v1model program: a parser extracting an
// Ethernet header and an 8-bit header, an ingress calling a local action on a
// 7-bit slice, and empty remaining stages.
func RegressionUserDecls() []ir.Declaration {
	pp := ir.Named("Parsed_packet")
	meta := ir.Named("Metadata")
	std := ir.Named("standard_metadata_t")
	hdr := ir.Path("hdr")

	return []ir.Declaration{
		ir.NewHeader("ethernet_t",
			ir.F("dstAddr", ir.Bits(48)),
			ir.F("srcAddr", ir.Bits(48)),
			ir.F("etherType", ir.Bits(16))),
		ir.NewHeader("H", ir.F("a", ir.Bits(8))),
		ir.NewStruct("Parsed_packet", ir.F("eth", ir.Named("ethernet_t")), ir.F("h", ir.Named("H"))),
		ir.NewStruct("Metadata"),
		ir.NewControl("deparser",
			[]ir.Parameter{ir.NoDir("packet", ir.Named("packet_out")), ir.In("hdr", pp)},
			nil,
			ir.CallStmt(ir.Call(ir.Member(ir.Path("packet"), "emit"), []ir.TypeRef{pp}, hdr))),
		ir.NewParser("p",
			[]ir.Parameter{
				ir.NoDir("pkt", ir.Named("packet_in")),
				ir.Out("hdr", pp),
				ir.InOut("meta", meta),
				ir.InOut("stdmeta", std),
			},
			nil,
			ir.State(ir.StateStart, ir.StateAccept,
				ir.CallStmt(ir.Call(ir.Member(ir.Path("pkt"), "extract"),
					[]ir.TypeRef{ir.Named("ethernet_t")}, ir.Member(hdr, "eth"))),
				ir.CallStmt(ir.Call(ir.Member(ir.Path("pkt"), "extract"),
					[]ir.TypeRef{ir.Named("H")}, ir.Member(hdr, "h"))))),
		ir.NewControl("ingress",
			[]ir.Parameter{ir.InOut("hdr", pp), ir.InOut("meta", meta), ir.InOut("stdmeta", std)},
			[]ir.Declaration{
				ir.NewAction("do_action_0", []ir.Parameter{ir.InOut("in_bit", ir.Bits(7))}, ir.Noop()),
			},
			ir.CallStmt(ir.Call(ir.Path("do_action_0"), nil,
				ir.Slice(ir.Member(ir.Member(hdr, "h"), "a"), 7, 1)))),
		ir.NewControl("egress",
			[]ir.Parameter{ir.InOut("hdr", pp), ir.InOut("meta", meta), ir.InOut("stdmeta", std)}, nil),
		ir.NewControl("vrfy", []ir.Parameter{ir.InOut("hdr", pp), ir.InOut("meta", meta)}, nil),
		ir.NewControl("update", []ir.Parameter{ir.InOut("hdr", pp), ir.InOut("meta", meta)}, nil),
		MainInstance(StageArgs...),
	}
}

// MainInstance declares main = V1Switch<Parsed_packet, Metadata>(args...).
func MainInstance(args ...string) ir.Declaration {
	exprs := make([]ir.Expr, len(args))
	for i, a := range args {
		exprs[i] = ir.ConstCall(a)
	}
	return ir.NewInstance("main", ir.Named("V1Switch", ir.Named("Parsed_packet"), ir.Named("Metadata")), exprs...)
}
