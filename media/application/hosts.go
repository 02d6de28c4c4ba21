package application

import (
	"net"
	"slices"
	"strings"
)

// AllowedHostSet is the immutable set of upstream hosts the proxy may fetch from.
// An entry without a port matches the hostname on any port.
type AllowedHostSet struct {
	hostnames map[string]struct{}
	hostPorts map[string]struct{}
}

func NewAllowedHostSet(hosts ...string) *AllowedHostSet {
	set := &AllowedHostSet{
		hostnames: make(map[string]struct{}),
		hostPorts: make(map[string]struct{}),
	}

	for _, h := range hosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "" {
			continue
		}
		if _, _, err := net.SplitHostPort(h); err == nil {
			set.hostPorts[h] = struct{}{}
			continue
		}
		set.hostnames[strings.Trim(h, "[]")] = struct{}{}
	}

	return set
}

// Allows reports whether host (as found in url.URL.Host) is a member.
func (s *AllowedHostSet) Allows(host string) bool {
	host = strings.ToLower(host)
	if host == "" {
		return false
	}

	if _, ok := s.hostPorts[host]; ok {
		return true
	}

	hostname := host
	if h, _, err := net.SplitHostPort(host); err == nil {
		hostname = h
	}
	_, ok := s.hostnames[strings.Trim(hostname, "[]")]
	return ok
}

// Hosts lists the members sorted, hostnames first.
func (s *AllowedHostSet) Hosts() []string {
	names := make([]string, 0, len(s.hostnames))
	for h := range s.hostnames {
		names = append(names, h)
	}
	ports := make([]string, 0, len(s.hostPorts))
	for h := range s.hostPorts {
		ports = append(ports, h)
	}
	slices.Sort(names)
	slices.Sort(ports)
	return append(names, ports...)
}
