// Package ipchecker extracts client IP addresses from HTTP requests and
// checks them against a trusted subnet. The internal stats endpoint uses it
// as its only access control.
package ipchecker

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// IPChecker validates whether a request originates from the trusted subnet.
type IPChecker struct {
	trustedSubnet *net.IPNet
}

// New creates an IPChecker for the given subnet in CIDR notation
// (e.g. "192.168.1.0/24"). An empty string produces a disabled checker for
// which Check always returns false.
func New(trustedSubnet string) (*IPChecker, error) {
	if trustedSubnet == "" {
		return &IPChecker{}, nil
	}
	_, allowedNet, err := net.ParseCIDR(trustedSubnet)
	if err != nil {
		return nil, fmt.Errorf("parsing trusted subnet: %w", err)
	}
	return &IPChecker{
		trustedSubnet: allowedNet,
	}, nil
}

// Check reports whether the given IP belongs to the trusted subnet.
// A disabled checker trusts nobody.
func (checker *IPChecker) Check(clientIP net.IP) bool {
	return checker.trustedSubnet != nil && checker.trustedSubnet.Contains(clientIP)
}

// GetClientIP extracts the client's IP address from the request, checking
// the "X-Real-IP" header, then "X-Forwarded-For", then RemoteAddr.
func (checker *IPChecker) GetClientIP(request *http.Request) (net.IP, error) {
	if ip := net.ParseIP(request.Header.Get("X-Real-IP")); ip != nil {
		return ip, nil
	}
	if xff := request.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		return net.ParseIP(first), nil
	}
	host, _, err := net.SplitHostPort(request.RemoteAddr)
	if err != nil {
		return nil, fmt.Errorf("splitting remote address: %w", err)
	}
	return net.ParseIP(host), nil
}

// IsTrustedSubnetEmpty reports whether the checker was built without a
// subnet.
func (checker *IPChecker) IsTrustedSubnetEmpty() bool {
	return checker.trustedSubnet == nil
}
