package node

import "net"

// defaultRouteAddress returns the local IP address that has the default
// route out, without sending any packets: connecting a UDP socket never
// transmits until data is written, so dialing a reserved, non-routed
// address just forces the kernel to pick a source address for us.
func defaultRouteAddress() string {
	conn, err := net.Dial("udp", "192.88.99.254:420")
	if err != nil {
		return "127.0.0.1"
	}
	defer conn.Close()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return "127.0.0.1"
	}
	return addr.IP.String()
}
