package argtype

import (
	"net/netip"
	"strconv"
	"strings"
)

const maxPort = 65535

// IPAddr accepts an IPv4 or IPv6 address with an optional port.
//
//	1.2.3.4  1.2.3.4:6789  ::1  [::1]  [::1]:6789
type IPAddr struct{}

// Kind implements ArgType.
func (t *IPAddr) Kind() string { return TypeIPAddr }

// Validate implements ArgType.
func (t *IPAddr) Validate(token string, _ bool) (Value, error) {
	if err := validateIPAddr(token); err != nil {
		return Value{}, err
	}
	return Value{Val: token}, nil
}

func (t *IPAddr) String() string {
	return "<IPaddr[:port]>"
}

func validateIPAddr(s string) error {
	switch {
	case strings.HasPrefix(s, "["):
		end := strings.Index(s, "]")
		if end == -1 {
			return FormatError("%s missing terminating ]", s)
		}
		if rest := s[end+1:]; rest != "" {
			if !strings.HasPrefix(rest, ":") {
				return FormatError("%s: unexpected text after ]", s)
			}
			if err := validatePort(rest[1:]); err != nil {
				return err
			}
		}
		addr, err := netip.ParseAddr(s[1:end])
		if err != nil || !addr.Is6() {
			return ValidationError("%s not valid IPv6 address", s)
		}

	case strings.Contains(s, "."):
		a := s
		if i := strings.Index(s, ":"); i != -1 {
			a = s[:i]
			if err := validatePort(s[i+1:]); err != nil {
				return err
			}
		}
		addr, err := netip.ParseAddr(a)
		if err != nil || !addr.Is4() {
			return ValidationError("%s: invalid IPv4 address", a)
		}

	default:
		addr, err := netip.ParseAddr(s)
		if err != nil || !addr.Is6() {
			return ValidationError("%s not valid IPv6 address", s)
		}
	}
	return nil
}

func validatePort(p string) error {
	port, err := strconv.Atoi(p)
	if err != nil || port < 0 {
		return ValidationError("%s: bad port number", p)
	}
	if port > maxPort {
		return ValidationError("%s not a valid port number", p)
	}
	return nil
}

// EntityAddr accepts an IPAddr followed by a /nonce suffix.
type EntityAddr struct{}

// Kind implements ArgType.
func (t *EntityAddr) Kind() string { return TypeEntityAddr }

// Validate implements ArgType.
func (t *EntityAddr) Validate(token string, _ bool) (Value, error) {
	ip, nonce, ok := strings.Cut(token, "/")
	if !ok || strings.Contains(nonce, "/") {
		return Value{}, FormatError("%s: expected addr/nonce", token)
	}
	if _, err := strconv.ParseUint(nonce, 10, 64); err != nil {
		return Value{}, FormatError("%s: nonce %q is not an integer", token, nonce)
	}
	if err := validateIPAddr(ip); err != nil {
		return Value{}, ValidationError("CephEntityAddr %s: ip address invalid", token)
	}
	return Value{Val: token}, nil
}

func (t *EntityAddr) String() string {
	return "<EntityAddr>"
}
