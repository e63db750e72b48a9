// Package security validates ranked hostnames before the crawler ever
// points a browser tab at them, so a poisoned or malicious entry in
// the hostlist can't make the crawl reach into the operator's private
// network.
package security

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"
)

// privateRanges contains all private and reserved IP ranges that should be blocked
// to prevent SSRF attacks.
var privateRanges []*net.IPNet

func init() {
	cidrs := []string{
		// IPv4
		"127.0.0.0/8",    // loopback
		"10.0.0.0/8",     // RFC 1918
		"172.16.0.0/12",  // RFC 1918
		"192.168.0.0/16", // RFC 1918
		"169.254.0.0/16", // link-local (includes AWS metadata 169.254.169.254)
		"100.64.0.0/10",  // CGNAT (RFC 6598)
		"0.0.0.0/8",      // "this" network
		"224.0.0.0/4",    // multicast

		// IPv6
		"::1/128",   // loopback
		"fe80::/10", // link-local
		"fc00::/7",  // unique local
		"ff00::/8",  // multicast
	}

	for _, cidr := range cidrs {
		_, ipNet, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("invalid CIDR in SSRF private ranges: %s", cidr))
		}
		privateRanges = append(privateRanges, ipNet)
	}
}

// blockedHostnames contains hostnames that resolve to private IPs and must be
// blocked before DNS resolution (Chrome does its own resolution).
var blockedHostnames = map[string]bool{
	"localhost": true,
}

// IsPrivateIP returns true if the given IP belongs to a private or reserved range.
func IsPrivateIP(ip net.IP) bool {
	if ip == nil {
		return false
	}

	for _, ipNet := range privateRanges {
		if ipNet.Contains(ip) {
			return true
		}
	}
	return false
}

// ValidateURL checks that a URL does not target private/internal network resources.
// It performs:
//  1. Hostname extraction (strips port, IPv6 brackets)
//  2. Blocked hostname check (localhost)
//  3. IP literal check against private ranges
//  4. DNS resolution with all resolved IPs checked against private ranges
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	hostname := u.Hostname() // strips port and IPv6 brackets

	if hostname == "" {
		return fmt.Errorf("URL has no hostname")
	}

	// Block known dangerous hostnames
	if blockedHostnames[strings.ToLower(hostname)] {
		return fmt.Errorf("hostname %q is not allowed", hostname)
	}

	// Check if hostname is an IP literal
	if ip := net.ParseIP(hostname); ip != nil {
		if IsPrivateIP(ip) {
			return fmt.Errorf("IP address %s is in a private/reserved range", hostname)
		}
		return nil
	}

	// Hostname is a domain name: resolve and check all IPs
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ips, err := net.DefaultResolver.LookupIPAddr(ctx, hostname)
	if err != nil {
		// DNS resolution failure is not an SSRF issue; let it fail later at fetch/render
		return nil
	}

	for _, ipAddr := range ips {
		if IsPrivateIP(ipAddr.IP) {
			return fmt.Errorf("hostname %q resolves to private/reserved IP %s", hostname, ipAddr.IP)
		}
	}

	return nil
}
