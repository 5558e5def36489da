package registry

// Usage restricts which programs should accept a given backend.
//
// Backends are linked at build time: a backend registers itself via init()
// and is enabled in a binary by importing the backend package.
type Usage uint8

const (
	// UsageCLI indicates the backend should be available in CLI programs (zkhost).
	UsageCLI Usage = 1 << iota
	// UsageDaemon indicates the backend can back a long-running daemon (zkhost-stored).
	UsageDaemon
)

func (u Usage) allows(want Usage) bool { return u&want != 0 }
