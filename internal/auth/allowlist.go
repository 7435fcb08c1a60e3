package auth

import (
	"log/slog"
	"net"
	"net/http"
	"strings"

	pkghttp "github.com/strandnet/console/pkg/http"
)

// IPAllowlist rejects requests from source addresses outside the configured
// CIDR ranges before any authentication is attempted. An empty list disables
// the check.
func IPAllowlist(cidrs []string, ipConfig *pkghttp.IPConfig, logger *slog.Logger) func(next http.Handler) http.Handler {
	networks := make([]*net.IPNet, 0, len(cidrs))
	for _, cidr := range cidrs {
		// Bare IPs become /32 (or /128) networks.
		if !strings.Contains(cidr, "/") {
			ip := net.ParseIP(cidr)
			if ip == nil {
				logger.Warn("ignoring invalid allowlist entry", slog.String("cidr", cidr))
				continue
			}
			bits := 32
			if ip.To4() == nil {
				bits = 128
			}
			networks = append(networks, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		if _, network, err := net.ParseCIDR(cidr); err == nil {
			networks = append(networks, network)
		} else {
			logger.Warn("ignoring invalid allowlist entry", slog.String("cidr", cidr))
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(networks) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			clientIP := net.ParseIP(pkghttp.ExtractClientIP(r, ipConfig))
			if clientIP != nil {
				for _, network := range networks {
					if network.Contains(clientIP) {
						next.ServeHTTP(w, r)
						return
					}
				}
			}

			pkghttp.WriteForbidden(w, "source address not permitted")
		})
	}
}
