package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownProtocol indicates a protocol name or value with no router.
var ErrUnknownProtocol = errors.New("unknown protocol")

// Protocol identifies a routing strategy.
type Protocol int

const (
	ProtocolUnknown Protocol = iota
	ProtocolDirect
	ProtocolLEACH
	ProtocolPEGASIS
	ProtocolTEEN
)

// AllProtocols lists the supported protocols in presentation order.
var AllProtocols = []Protocol{ProtocolDirect, ProtocolLEACH, ProtocolPEGASIS, ProtocolTEEN}

// ComparableProtocols are the protocols whose delivery counts can be set
// side by side. TEEN is left out because its random triggering makes its
// packet totals incomparable.
var ComparableProtocols = []Protocol{ProtocolDirect, ProtocolLEACH, ProtocolPEGASIS}

func (p Protocol) String() string {
	switch p {
	case ProtocolDirect:
		return "Direct"
	case ProtocolLEACH:
		return "LEACH"
	case ProtocolPEGASIS:
		return "PEGASIS"
	case ProtocolTEEN:
		return "TEEN"
	default:
		return "Unknown"
	}
}

// Comparable reports whether p may take part in a comparison run.
func (p Protocol) Comparable() bool {
	for _, c := range ComparableProtocols {
		if c == p {
			return true
		}
	}
	return false
}

// ParseProtocol resolves a protocol name case-insensitively.
func ParseProtocol(s string) (Protocol, error) {
	for _, p := range AllProtocols {
		if strings.EqualFold(strings.TrimSpace(s), p.String()) {
			return p, nil
		}
	}
	return ProtocolUnknown, fmt.Errorf("%w %q", ErrUnknownProtocol, s)
}

// MarshalText implements encoding.TextMarshaler so protocols serialise by
// name in JSON and YAML.
func (p Protocol) MarshalText() ([]byte, error) {
	if p == ProtocolUnknown {
		return nil, fmt.Errorf("cannot marshal unknown protocol")
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Protocol) UnmarshalText(text []byte) error {
	parsed, err := ParseProtocol(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
