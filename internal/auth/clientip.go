package auth

import (
	"net"
	"net/netip"
	"strings"

	"github.com/sandboxcore/core/internal/logging"
)

// TrustedProxyConfig configures client-IP resolution.
type TrustedProxyConfig struct {
	Trust bool
	Cidrs []netip.Prefix
}

// ParseTrustedProxyCidrs parses a comma-separated list of CIDRs or bare IPs
// (accepted as /32 or /128) per the comma-parsing rule: split, trim, drop
// empties.
func ParseTrustedProxyCidrs(raw string) ([]netip.Prefix, error) {
	var prefixes []netip.Prefix
	for _, tok := range strings.Split(raw, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		prefix, err := parseCidrOrIP(tok)
		if err != nil {
			return nil, err
		}
		prefixes = append(prefixes, prefix)
	}
	return prefixes, nil
}

func parseCidrOrIP(tok string) (netip.Prefix, error) {
	if strings.Contains(tok, "/") {
		return netip.ParsePrefix(tok)
	}
	addr, err := netip.ParseAddr(tok)
	if err != nil {
		return netip.Prefix{}, err
	}
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

// ResolveClientIP implements the trusted-proxy resolution rule: with proxy
// trust off, the direct socket IP is authoritative. With it on, if the
// direct IP falls inside any configured CIDR, the first comma-separated
// token of X-Forwarded-For is parsed; if it is a syntactically valid
// address it becomes the client IP, otherwise the direct IP is used and a
// warning logged.
func ResolveClientIP(remoteAddr, forwardedFor string, config TrustedProxyConfig) string {
	directIP := directIPFromRemoteAddr(remoteAddr)

	if !config.Trust {
		return directIP
	}

	addr, err := netip.ParseAddr(directIP)
	if err != nil {
		return directIP
	}

	trusted := false
	for _, prefix := range config.Cidrs {
		if prefix.Contains(addr) {
			trusted = true
			break
		}
	}
	if !trusted {
		return directIP
	}

	if forwardedFor == "" {
		return directIP
	}

	first := strings.TrimSpace(strings.Split(forwardedFor, ",")[0])
	if _, err := netip.ParseAddr(first); err != nil {
		logging.Warn().Str("forwarded_for", first).Msg("invalid X-Forwarded-For value, falling back to direct IP")
		return directIP
	}
	return first
}

func directIPFromRemoteAddr(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
