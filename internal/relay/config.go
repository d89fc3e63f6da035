package relay

import "time"

type Config struct {
	// EstablishTimeout bounds how long a session with no client activity may
	// wait for the upstream connection to open.
	EstablishTimeout time.Duration

	// MaxPending caps the number of client frames buffered while the upstream
	// connection is still being established. A frame arriving at capacity
	// closes the client socket with a policy-violation code.
	MaxPending int

	// WriteWait is the per-write deadline on both sockets.
	WriteWait time.Duration

	// MaxSessions limits concurrently open sessions. Zero means unlimited.
	MaxSessions int

	// AllowedOrigins is the browser Origin allowlist for the upgrade check.
	// Empty permits same-host requests only; the single entry "*" permits all.
	AllowedOrigins []string
}

func DefaultConfig() Config {
	return Config{
		EstablishTimeout: 10 * time.Second,
		MaxPending:       10,
		WriteWait:        time.Second,
	}
}

// WithDefaults returns c with any zero/invalid fields replaced with defaults.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.EstablishTimeout <= 0 {
		c.EstablishTimeout = d.EstablishTimeout
	}
	if c.MaxPending <= 0 {
		c.MaxPending = d.MaxPending
	}
	if c.WriteWait <= 0 {
		c.WriteWait = d.WriteWait
	}
	return c
}
