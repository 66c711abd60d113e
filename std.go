package posit

// Standard configurations of the 2022 posit standard, which fixes es at 2.
var (
	Posit8  = Config{NBits: 8, ES: 2}
	Posit16 = Config{NBits: 16, ES: 2}
	Posit32 = Config{NBits: 32, ES: 2}
	Posit64 = Config{NBits: 64, ES: 2}
)

// Configurations of the earlier drafts, where es grows with the width.
var (
	Posit8ES0  = Config{NBits: 8, ES: 0}
	Posit16ES1 = Config{NBits: 16, ES: 1}
	Posit32ES2 = Posit32
	Posit64ES3 = Config{NBits: 64, ES: 3}
)

// DefaultConfig is used to decode textual posits, which do not carry their configuration,
// into the zero Posit.
var DefaultConfig = Posit32
