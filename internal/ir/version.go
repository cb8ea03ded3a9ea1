package ir

// Version constants for the document schema and engine.
const (
	// IRVersion is the PackageDoc schema version.
	IRVersion = "1"

	// EngineVersion is the spaghetti engine version.
	EngineVersion = "0.1.0"
)
