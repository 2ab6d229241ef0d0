// Package arch provides the architecture preludes: the declarations a program
// implicitly starts with before its own.
//
// The core prelude holds the error type, packet_in, packet_out, verify and the
// base match kinds. The v1model prelude adds the standard metadata, the stateful
// externs, the six pipeline role types and the V1Switch package.
package arch

import (
	"fmt"
	"sort"

	"github.com/roach88/p4ir/internal/ir"
)

// Architecture names.
const (
	None    = "none"
	Core    = "core"
	V1Model = "v1model"
)

// Names lists the known preludes in sorted order.
func Names() []string {
	names := []string{None, Core, V1Model}
	sort.Strings(names)
	return names
}

// Prelude returns the declarations of the named architecture, in declaration
// order. Every call returns a fresh slice.
func Prelude(name string) ([]ir.Declaration, error) {
	switch name {
	case None, "":
		return nil, nil
	case Core:
		return CoreDecls(), nil
	case V1Model:
		return append(CoreDecls(), V1ModelDecls()...), nil
	}
	return nil, fmt.Errorf("unknown architecture %q (known: %v)", name, Names())
}

// CoreDecls returns the core library.
func CoreDecls() []ir.Declaration {
	T := ir.Named("T")
	return []ir.Declaration{
		ir.NewEnum("error", ir.RuntimeErrors...),
		ir.NewExtern("packet_in", nil,
			ir.NewMethod("extract", ir.Generic("T"), ir.Out("hdr", T)),
			ir.NewMethod("extract", ir.Generic("T"),
				ir.Out("variableSizeHeader", T),
				ir.In("variableFieldSizeInBits", ir.Bits(32))),
			ir.NewMethod("lookahead", ir.Returning(T, "T")),
			ir.NewMethod("advance", ir.TypeParams{}, ir.In("sizeInBits", ir.Bits(32))),
			ir.NewMethod("length", ir.Returning(ir.Bits(32))),
		),
		ir.NewExtern("packet_out", nil,
			ir.NewMethod("emit", ir.Generic("T"), ir.In("hdr", T)),
		),
		ir.NewMethod("verify", ir.TypeParams{},
			ir.In("check", ir.Bool()),
			ir.In("toSignal", ir.Named("error"))),
		ir.NewMatchKind("exact", "ternary", "lpm"),
	}
}

// V1ModelDecls returns the v1model additions. They assume CoreDecls precede them.
func V1ModelDecls() []ir.Declaration {
	T := ir.Named("T")
	H, M := ir.Named("H"), ir.Named("M")
	stdmeta := ir.Named("standard_metadata_t")
	hm := []string{"H", "M"}

	return []ir.Declaration{
		ir.NewMatchKind("range", "optional", "selector"),
		ir.NewStruct("standard_metadata_t",
			ir.F("ingress_port", ir.Bits(9)),
			ir.F("egress_spec", ir.Bits(9)),
			ir.F("egress_port", ir.Bits(9)),
			ir.F("instance_type", ir.Bits(32)),
			ir.F("packet_length", ir.Bits(32)),
			ir.F("enq_timestamp", ir.Bits(32)),
			ir.F("enq_qdepth", ir.Bits(19)),
			ir.F("deq_timedelta", ir.Bits(32)),
			ir.F("deq_qdepth", ir.Bits(19)),
			ir.F("ingress_global_timestamp", ir.Bits(48)),
			ir.F("egress_global_timestamp", ir.Bits(48)),
			ir.F("mcast_grp", ir.Bits(16)),
			ir.F("egress_rid", ir.Bits(16)),
			ir.F("checksum_error", ir.Bits(1)),
			ir.F("parser_error", ir.Named("error")),
			ir.F("priority", ir.Bits(3)),
		),
		ir.NewEnum("CounterType", "packets", "bytes", "packets_and_bytes"),
		ir.NewEnum("MeterType", "packets", "bytes"),
		ir.NewExtern("counter", nil,
			ir.NewMethod("counter", ir.TypeParams{},
				ir.NoDir("size", ir.Bits(32)), ir.NoDir("type", ir.Named("CounterType"))),
			ir.NewMethod("count", ir.TypeParams{}, ir.In("index", ir.Bits(32))),
		),
		ir.NewExtern("direct_counter", nil,
			ir.NewMethod("direct_counter", ir.TypeParams{}, ir.NoDir("type", ir.Named("CounterType"))),
			ir.NewMethod("count", ir.TypeParams{}),
		),
		ir.NewExtern("meter", nil,
			ir.NewMethod("meter", ir.TypeParams{},
				ir.NoDir("size", ir.Bits(32)), ir.NoDir("type", ir.Named("MeterType"))),
			ir.NewMethod("execute_meter", ir.Generic("T"),
				ir.In("index", ir.Bits(32)), ir.Out("result", T)),
		),
		ir.NewExtern("direct_meter", []string{"T"},
			ir.NewMethod("direct_meter", ir.TypeParams{}, ir.NoDir("type", ir.Named("MeterType"))),
			ir.NewMethod("read", ir.TypeParams{}, ir.Out("result", T)),
		),
		ir.NewExtern("register", []string{"T"},
			ir.NewMethod("register", ir.TypeParams{}, ir.NoDir("size", ir.Bits(32))),
			ir.NewMethod("read", ir.TypeParams{}, ir.Out("result", T), ir.In("index", ir.Bits(32))),
			ir.NewMethod("write", ir.TypeParams{}, ir.In("index", ir.Bits(32)), ir.In("value", T)),
		),
		ir.NewExtern("action_profile", nil,
			ir.NewMethod("action_profile", ir.TypeParams{}, ir.NoDir("size", ir.Bits(32))),
		),
		ir.NewEnum("HashAlgorithm",
			"crc32", "crc32_custom", "crc16", "crc16_custom", "random", "identity", "csum16", "xor16"),
		ir.NewExtern("action_selector", nil,
			ir.NewMethod("action_selector", ir.TypeParams{},
				ir.NoDir("algorithm", ir.Named("HashAlgorithm")),
				ir.NoDir("size", ir.Bits(32)),
				ir.NoDir("outputWidth", ir.Bits(32))),
		),
		ir.NewExtern("Checksum16", nil,
			ir.NewMethod("Checksum16", ir.TypeParams{}),
			ir.NewMethod("get", ir.Returning(ir.Bits(16), "D"), ir.In("data", ir.Named("D"))),
		),
		ir.NewParserType("Parser", hm,
			ir.NoDir("b", ir.Named("packet_in")),
			ir.Out("parsedHdr", H),
			ir.InOut("meta", M),
			ir.InOut("standard_metadata", stdmeta)),
		ir.NewControlType("VerifyChecksum", hm, ir.InOut("hdr", H), ir.InOut("meta", M)),
		ir.NewControlType("Ingress", hm, ir.InOut("hdr", H), ir.InOut("meta", M), ir.InOut("standard_metadata", stdmeta)),
		ir.NewControlType("Egress", hm, ir.InOut("hdr", H), ir.InOut("meta", M), ir.InOut("standard_metadata", stdmeta)),
		ir.NewControlType("ComputeChecksum", hm, ir.InOut("hdr", H), ir.InOut("meta", M)),
		ir.NewControlType("Deparser", []string{"H"}, ir.NoDir("b", ir.Named("packet_out")), ir.In("hdr", H)),
		ir.NewPackage("V1Switch", hm,
			ir.NoDir("p", ir.Named("Parser", H, M)),
			ir.NoDir("vr", ir.Named("VerifyChecksum", H, M)),
			ir.NoDir("ig", ir.Named("Ingress", H, M)),
			ir.NoDir("eg", ir.Named("Egress", H, M)),
			ir.NoDir("ck", ir.Named("ComputeChecksum", H, M)),
			ir.NoDir("dep", ir.Named("Deparser", H)),
		),
	}
}
