package ir

// Version constants for the IR schema and builder.
const (
	// IRVersion is the IR schema version.
	IRVersion = "1"

	// BuilderVersion is the p4ir builder version.
	BuilderVersion = "0.1.0"
)
