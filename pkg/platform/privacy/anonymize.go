// Package privacy reduces identifying values before they reach logs.
package privacy

import (
	"net/netip"

	"dim/pkg/domain"
)

// AnonymizeIP keeps the /24 of an IPv4 address and the /48 of an IPv6
// address. Empty input yields "unknown", unparseable input "invalid".
func AnonymizeIP(ip string) string {
	if ip == "" || ip == "unknown" {
		return "unknown"
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return "invalid"
	}
	addr = addr.Unmap()
	bits := 48
	if addr.Is4() {
		bits = 24
	}
	prefix, err := addr.Prefix(bits)
	if err != nil {
		return "invalid"
	}
	return prefix.Addr().String()
}

// ShortAddress renders a wallet address as 0x1234...abcd.
func ShortAddress(a domain.Address) string {
	s := a.String()
	if len(s) < 12 {
		return s
	}
	return s[:6] + "..." + s[len(s)-4:]
}
