package demoserver

// Config selects where the fixtures are served and which revision they start at.
type Config struct {
	Port int

	// InitialVersion is the revision every fixture starts at. 1 is the most
	// broken; each later revision fixes some violations.
	InitialVersion int
}

// DefaultConfig serves broken fixtures on :9999.
func DefaultConfig() Config {
	return Config{Port: 9999, InitialVersion: 1}
}
