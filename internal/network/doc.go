// Package network answers the two host-network questions the dev server
// needs: which TCP port it can bind, and which LAN address other devices
// can reach it on.
//
// The Scanner verifies OS-level port availability via net.Listen(). The
// Resolver walks the host's interfaces and picks the first external IPv4
// address, mirroring the "Network:" URL printed by the serve operation.
package network
