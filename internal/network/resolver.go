package network

import (
	"net"

	"github.com/rotisserie/eris"
)

// Address families reported in Interface.Family.
const (
	FamilyIPv4 = "IPv4"
	FamilyIPv6 = "IPv6"
)

// Interface is one address of a network interface as reported by the host.
// A physical interface with several addresses yields several entries.
type Interface struct {
	Name     string
	Family   string
	Address  string
	Internal bool
}

// InterfaceLister returns the host's interface addresses.
type InterfaceLister func() ([]Interface, error)

// Resolver finds the LAN address of the host.
type Resolver struct {
	list InterfaceLister
}

// NewResolver creates a Resolver that reads the real host interfaces.
func NewResolver() *Resolver {
	return &Resolver{list: SystemInterfaces}
}

// NewResolverWithLister creates a Resolver backed by a custom lister.
func NewResolverWithLister(list InterfaceLister) *Resolver {
	return &Resolver{list: list}
}

// LocalIPv4 returns the address of the first interface entry that is IPv4
// and not internal (loopback). It returns "" if none matches or the
// interfaces cannot be listed. Nothing is cached.
func (r *Resolver) LocalIPv4() string {
	ifaces, err := r.list()
	if err != nil {
		return ""
	}
	for _, iface := range ifaces {
		if iface.Family == FamilyIPv4 && !iface.Internal {
			return iface.Address
		}
	}
	return ""
}

// SystemInterfaces lists the host's interface addresses using the net
// package, flattening each interface into one entry per address.
func SystemInterfaces() ([]Interface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, eris.Wrap(err, "failed to list network interfaces")
	}

	var result []Interface
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		internal := iface.Flags&net.FlagLoopback != 0
		for _, addr := range addrs {
			ip := addrIP(addr)
			if ip == nil {
				continue
			}
			family := FamilyIPv6
			if ip.To4() != nil {
				family = FamilyIPv4
			}
			result = append(result, Interface{
				Name:     iface.Name,
				Family:   family,
				Address:  ip.String(),
				Internal: internal || ip.IsLoopback(),
			})
		}
	}
	return result, nil
}

func addrIP(addr net.Addr) net.IP {
	switch v := addr.(type) {
	case *net.IPNet:
		return v.IP
	case *net.IPAddr:
		return v.IP
	default:
		return nil
	}
}
