// ABOUTME: Local network address helpers
// ABOUTME: Picks the address renderers use to reach the streaming server
package netaddr

import (
	"fmt"
	"net"
)

// probeAddr is only used to select a route; nothing is sent
const probeAddr = "8.8.8.8:80"

// LocalAddr returns the IPv4 address of the interface holding the default
// route.
func LocalAddr() (net.IP, error) {
	conn, err := net.Dial("udp4", probeAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to determine local address: %w", err)
	}
	defer conn.Close()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok || addr.IP.To4() == nil {
		return nil, fmt.Errorf("failed to determine local address: unexpected %v", conn.LocalAddr())
	}
	return addr.IP.To4(), nil
}

// Interfaces returns the IPv4 addresses of all up, non-loopback interfaces
func Interfaces() ([]net.IP, error) {
	var ips []net.IP

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
				if ip4 := ipnet.IP.To4(); ip4 != nil {
					ips = append(ips, ip4)
				}
			}
		}
	}

	return ips, nil
}

// InterfaceFor returns the interface that carries ip, for binding multicast
func InterfaceFor(ip net.IP) (*net.Interface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	for i := range ifaces {
		addrs, err := ifaces[i].Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && ipnet.IP.Equal(ip) {
				return &ifaces[i], nil
			}
		}
	}
	return nil, fmt.Errorf("no interface with address %s", ip)
}

// Resolve returns the configured address if set, else LocalAddr
func Resolve(configured string) (net.IP, error) {
	if configured == "" {
		return LocalAddr()
	}
	ip := net.ParseIP(configured)
	if ip == nil || ip.To4() == nil {
		return nil, fmt.Errorf("invalid local address %q", configured)
	}
	return ip.To4(), nil
}
