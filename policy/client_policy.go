package policy

import "time"

// AuthMode selects which credential exchange the connection handshake
// performs (§4.4 Handshake, §6.3 Authentication).
type AuthMode int

const (
	AuthModeInternal AuthMode = iota
	AuthModeExternal
	AuthModePKI
)

// Host is one cluster seed entry (§6.4 `hosts`).
type Host struct {
	Addr    string
	Port    int
	TLSName string
}

// ClientPolicy enumerates cluster-wide configuration (§6.4). It follows the
// same *Str/resolved-duration pairing as BasePolicy, matching
// `cmn.Config`'s split between wire-format fields and their applied form.
type ClientPolicy struct {
	Hosts []Host

	User     string
	Password string
	AuthMode AuthMode

	// TLSConfig is intentionally an opaque collaborator hook (*tls.Config
	// pointer) — TLS setup is out of this core's scope (§1 Scope) beyond
	// consuming an already-built context.
	TLSConfig interface{}

	ClusterName string

	TendIntervalStr string        `json:"tend_interval,omitempty"`
	TendInterval    time.Duration `json:"-"`

	MaxConnsPerNode int
	MinConnsPerNode int

	MaxSocketIdleStr string        `json:"max_socket_idle,omitempty"`
	MaxSocketIdle    time.Duration `json:"-"`

	LoginTimeoutStr string        `json:"login_timeout,omitempty"`
	LoginTimeout    time.Duration `json:"-"`

	AsyncMaxCommands int

	RackAware bool
	RackIDs   []int

	MaxErrors int // consecutive tend-cycle failures before node eviction (§4.3)
}

// DefaultClientPolicy mirrors the §6.4 defaults table exactly.
func DefaultClientPolicy() *ClientPolicy {
	return &ClientPolicy{
		TendInterval:     1000 * time.Millisecond,
		MaxConnsPerNode:  300,
		MinConnsPerNode:  0,
		MaxSocketIdle:    55 * time.Second,
		LoginTimeout:     5000 * time.Millisecond,
		AsyncMaxCommands: 100,
		MaxErrors:        5,
	}
}

func (c *ClientPolicy) Validate() error {
	var err error
	if c.TendInterval, err = parseDurationOr(c.TendIntervalStr, c.TendInterval); err != nil {
		return err
	}
	if c.MaxSocketIdle, err = parseDurationOr(c.MaxSocketIdleStr, c.MaxSocketIdle); err != nil {
		return err
	}
	if c.LoginTimeout, err = parseDurationOr(c.LoginTimeoutStr, c.LoginTimeout); err != nil {
		return err
	}
	return nil
}
