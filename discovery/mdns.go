// CLAUDE:SUMMARY LAN discovery over mDNS: advertise the board endpoint under _ardoise._tcp and browse for running instances.
// Package discovery announces a board server on the local network and
// finds other running instances, so devices can join without typing an
// IP address.
package discovery

import (
	"fmt"
	"log/slog"
	"net"
	"os"

	"github.com/hashicorp/mdns"
)

// ServiceType is the mDNS service identifier boards advertise under.
const ServiceType = "_ardoise._tcp"

// Advertiser keeps a board instance visible on the local network until
// closed.
type Advertiser struct {
	server *mdns.Server
	logger *slog.Logger
}

// Advertise announces the HTTP endpoint on the LAN. An empty instance
// name falls back to the machine hostname.
func Advertise(port int, instance string, logger *slog.Logger) (*Advertiser, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if instance == "" {
		host, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("discovery: hostname: %w", err)
		}
		instance = host
	}

	service, err := mdns.NewMDNSService(instance, ServiceType, "", "", port, nil, []string{"ardoise board"})
	if err != nil {
		return nil, fmt.Errorf("discovery: create service: %w", err)
	}
	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("discovery: start responder: %w", err)
	}

	logger.Info("discovery: advertising", "instance", instance, "service", ServiceType, "port", port)
	return &Advertiser{server: server, logger: logger}, nil
}

// Close withdraws the announcement.
func (a *Advertiser) Close() error {
	if a == nil || a.server == nil {
		return nil
	}
	return a.server.Shutdown()
}

// Browse queries the LAN for advertised boards and calls found once per
// reachable host:port. It blocks for the duration of the mDNS query.
func Browse(found func(addr string)) error {
	entries := make(chan *mdns.ServiceEntry, 8)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for e := range entries {
			if e.AddrV4 == nil || e.Port == 0 {
				continue
			}
			found(fmt.Sprintf("%s:%d", e.AddrV4, e.Port))
		}
	}()

	err := mdns.Lookup(ServiceType, entries)
	close(entries)
	<-done
	if err != nil {
		return fmt.Errorf("discovery: lookup: %w", err)
	}
	return nil
}

// LocalIPv4 returns the first routable IPv4 address of this machine,
// for printing join URLs. Falls back to loopback when no interface is
// up.
func LocalIPv4() net.IP {
	ifaces, _ := net.Interfaces()
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, _ := iface.Addrs()
		for _, a := range addrs {
			if ipnet, ok := a.(*net.IPNet); ok && ipnet.IP.To4() != nil {
				return ipnet.IP.To4()
			}
		}
	}
	return net.IPv4(127, 0, 0, 1)
}
