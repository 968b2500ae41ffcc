package tcp

// NIC is the network interface collaborator: the engine hands it one fully
// framed IPv4+TCP segment per call and never retains the reference across
// invocations. Implementations typically wrap a TUN/TAP device or a raw
// socket; this package never opens one itself.
type NIC interface {
	Send(frame []byte) error
}
