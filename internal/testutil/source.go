package testutil

// RegressionSource is the CUE document form of RegressionUserDecls.
const RegressionSource = `
program: {
	name: "regression"
	arch: "v1model"

	#ckparams: [
		{dir: "inout", name: "hdr", type: "Parsed_packet"},
		{dir: "inout", name: "meta", type: "Metadata"},
	]
	#stdparams: [
		{dir: "inout", name: "hdr", type: "Parsed_packet"},
		{dir: "inout", name: "meta", type: "Metadata"},
		{dir: "inout", name: "stdmeta", type: "standard_metadata_t"},
	]

	decls: [
		{kind: "header", name: "ethernet_t", fields: [
			{name: "dstAddr", type: "bit<48>"},
			{name: "srcAddr", type: "bit<48>"},
			{name: "etherType", type: "bit<16>"},
		]},
		{kind: "header", name: "H", fields: [{name: "a", type: "bit<8>"}]},
		{kind: "struct", name: "Parsed_packet", fields: [
			{name: "eth", type: "ethernet_t"},
			{name: "h", type: "H"},
		]},
		{kind: "struct", name: "Metadata"},
		{kind: "control", name: "deparser",
			params: [
				{name: "packet", type: "packet_out"},
				{dir: "in", name: "hdr", type: "Parsed_packet"},
			]
			body: [{call: "packet.emit", type_args: ["Parsed_packet"], args: ["hdr"]}]
		},
		{kind: "parser", name: "p",
			params: [
				{name: "pkt", type: "packet_in"},
				{dir: "out", name: "hdr", type: "Parsed_packet"},
				{dir: "inout", name: "meta", type: "Metadata"},
				{dir: "inout", name: "stdmeta", type: "standard_metadata_t"},
			]
			states: [{
				name: "start"
				components: [
					{call: "pkt.extract", type_args: ["ethernet_t"], args: ["hdr.eth"]},
					{call: "pkt.extract", type_args: ["H"], args: ["hdr.h"]},
				]
				next: "accept"
			}]
		},
		{kind: "control", name: "ingress",
			params: #stdparams
			locals: [{kind: "action", name: "do_action_0",
				params: [{dir: "inout", name: "in_bit", type: "bit<7>"}]
				body: [{noop: true}]
			}]
			body: [{call: "do_action_0", args: ["hdr.h.a[7:1]"]}]
		},
		{kind: "control", name: "egress", params: #stdparams},
		{kind: "control", name: "vrfy", params: #ckparams},
		{kind: "control", name: "update", params: #ckparams},
		{kind: "instance", name: "main",
			type: "V1Switch<Parsed_packet, Metadata>"
			args: ["p", "vrfy", "ingress", "egress", "update", "deparser"]
		},
	]
}
`
