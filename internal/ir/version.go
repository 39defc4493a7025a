package ir

// Version constants for the IR and the engine.
const (
	// IRVersion is the term graph IR version.
	IRVersion = "1"

	// EngineVersion is the rgxlog engine version.
	EngineVersion = "0.1.0"
)
