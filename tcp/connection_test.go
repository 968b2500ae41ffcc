package tcp

import (
	"bytes"
	"testing"

	"github.com/soypat/usertcp/ipv4"
)

// captureNIC stores every frame handed to Send for the test to decode.
type captureNIC struct {
	frames [][]byte
}

func (n *captureNIC) Send(frame []byte) error {
	cp := make([]byte, len(frame))
	copy(cp, frame)
	n.frames = append(n.frames, cp)
	return nil
}

func (n *captureNIC) last() []byte {
	if len(n.frames) == 0 {
		return nil
	}
	return n.frames[len(n.frames)-1]
}

// decode splits a captured IPv4+TCP frame into its Segment and payload.
func decode(t *testing.T, frame []byte) (Segment, []byte) {
	t.Helper()
	ifrm, err := ipv4.NewFrame(frame)
	if err != nil {
		t.Fatalf("ipv4.NewFrame: %v", err)
	}
	tcpBytes := ifrm.Payload()
	tfrm, err := NewFrame(tcpBytes)
	if err != nil {
		t.Fatalf("tcp.NewFrame: %v", err)
	}
	payload := tfrm.Payload()
	return tfrm.Segment(len(payload)), payload
}

func TestThreeWayHandshakeDataAndClose(t *testing.T) {
	clientAddr := [4]byte{10, 0, 0, 1}
	serverAddr := [4]byte{10, 0, 0, 2}
	const clientPort, serverPort = 40000, 80

	client := ConnectActive(clientAddr, serverAddr, clientPort, serverPort, fixedISN(1000))
	clientNIC := new(captureNIC)

	if err := client.OnTick(clientNIC); err != nil {
		t.Fatalf("client initial SYN: %v", err)
	}
	synSeg, _ := decode(t, clientNIC.last())
	if !synSeg.Flags.HasAll(FlagSYN) || synSeg.Flags.HasAny(FlagACK) {
		t.Fatalf("expected a bare SYN, got %s", synSeg.Flags)
	}

	server := AcceptPassive(serverAddr, clientAddr, serverPort, clientPort, synSeg, fixedISN(2000))
	if server.State() != StateSynRcvd {
		t.Fatalf("server state = %s, want SYN-RECEIVED", server.State())
	}

	serverNIC := new(captureNIC)
	if err := server.OnTick(serverNIC); err != nil {
		t.Fatalf("server OnTick: %v", err)
	}
	synAckSeg, _ := decode(t, serverNIC.last())
	if !synAckSeg.Flags.HasAll(FlagSYN | FlagACK) {
		t.Fatalf("expected SYN-ACK, got %s", synAckSeg.Flags)
	}

	if _, err := client.OnPacket(clientNIC, synAckSeg, nil); err != nil {
		t.Fatalf("client OnPacket(SYN-ACK): %v", err)
	}
	if client.State() != StateEstablished {
		t.Fatalf("client state = %s, want ESTABLISHED", client.State())
	}
	finalAckSeg, _ := decode(t, clientNIC.last())
	if !finalAckSeg.Flags.HasAll(FlagACK) || finalAckSeg.Flags.HasAny(FlagSYN) {
		t.Fatalf("expected bare ACK closing the handshake, got %s", finalAckSeg.Flags)
	}

	if _, err := server.OnPacket(serverNIC, finalAckSeg, nil); err != nil {
		t.Fatalf("server OnPacket(final ACK): %v", err)
	}
	if server.State() != StateEstablished {
		t.Fatalf("server state = %s, want ESTABLISHED", server.State())
	}

	payload := []byte("hello, server")
	if _, err := client.Write(payload); err != nil {
		t.Fatalf("client.Write: %v", err)
	}
	if err := client.OnTick(clientNIC); err != nil {
		t.Fatalf("client OnTick (data): %v", err)
	}
	dataSeg, dataBytes := decode(t, clientNIC.last())
	if !bytes.Equal(dataBytes, payload) {
		t.Fatalf("data payload = %q, want %q", dataBytes, payload)
	}

	if _, err := server.OnPacket(serverNIC, dataSeg, dataBytes); err != nil {
		t.Fatalf("server OnPacket(data): %v", err)
	}
	if server.BufferedInput() != len(payload) {
		t.Fatalf("server buffered input = %d, want %d", server.BufferedInput(), len(payload))
	}
	got := make([]byte, len(payload))
	if n, err := server.Read(got); err != nil || n != len(payload) {
		t.Fatalf("server.Read: n=%d err=%v", n, err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("server read %q, want %q", got, payload)
	}

	ackOfData, _ := decode(t, serverNIC.last())
	if !ackOfData.Flags.HasAll(FlagACK) {
		t.Fatalf("expected server to ack received data, got %s", ackOfData.Flags)
	}

	if err := client.Close(); err != nil {
		t.Fatalf("client.Close: %v", err)
	}
	if client.State() != StateFinWait1 {
		t.Fatalf("client state = %s, want FIN-WAIT-1", client.State())
	}
	if err := client.OnTick(clientNIC); err != nil {
		t.Fatalf("client OnTick (FIN): %v", err)
	}
	finSeg, _ := decode(t, clientNIC.last())
	if !finSeg.Flags.HasAny(FlagFIN) {
		t.Fatalf("expected FIN after close, got %s", finSeg.Flags)
	}

	if _, err := server.OnPacket(serverNIC, finSeg, nil); err != nil {
		t.Fatalf("server OnPacket(FIN): %v", err)
	}
	if server.State() != StateCloseWait {
		t.Fatalf("server state = %s, want CLOSE-WAIT", server.State())
	}
	finAckSeg, _ := decode(t, serverNIC.last())
	if !finAckSeg.Flags.HasAll(FlagACK) {
		t.Fatalf("expected server to ack the FIN, got %s", finAckSeg.Flags)
	}

	if _, err := client.OnPacket(clientNIC, finAckSeg, nil); err != nil {
		t.Fatalf("client OnPacket(ack of FIN): %v", err)
	}
	if client.State() != StateFinWait2 {
		t.Fatalf("client state = %s, want FIN-WAIT-2", client.State())
	}

	if err := server.Close(); err != nil {
		t.Fatalf("server.Close: %v", err)
	}
	if server.State() != StateLastAck {
		t.Fatalf("server state = %s, want LAST-ACK", server.State())
	}
	if err := server.OnTick(serverNIC); err != nil {
		t.Fatalf("server OnTick (FIN): %v", err)
	}
	serverFinSeg, _ := decode(t, serverNIC.last())
	if !serverFinSeg.Flags.HasAny(FlagFIN) {
		t.Fatalf("expected server FIN, got %s", serverFinSeg.Flags)
	}

	if _, err := client.OnPacket(clientNIC, serverFinSeg, nil); err != nil {
		t.Fatalf("client OnPacket(server FIN): %v", err)
	}
	if client.State() != StateTimeWait {
		t.Fatalf("client state = %s, want TIME-WAIT", client.State())
	}
	lastClientAck, _ := decode(t, clientNIC.last())
	if !lastClientAck.Flags.HasAll(FlagACK) {
		t.Fatalf("expected client's final ACK, got %s", lastClientAck.Flags)
	}

	if _, err := server.OnPacket(serverNIC, lastClientAck, nil); err != nil {
		t.Fatalf("server OnPacket(final ACK): %v", err)
	}
	if server.State() != StateClosed {
		t.Fatalf("server state = %s, want CLOSED", server.State())
	}
}

func TestWriteNeverDropsBytes(t *testing.T) {
	c := ConnectActive([4]byte{1, 1, 1, 1}, [4]byte{2, 2, 2, 2}, 1, 2, fixedISN(0))
	big := bytes.Repeat([]byte{'x'}, 1<<20)
	n, err := c.Write(big)
	if err != nil || n != len(big) {
		t.Fatalf("Write: n=%d err=%v", n, err)
	}
	if c.unacked.Len() != len(big) {
		t.Fatalf("unacked.Len() = %d, want %d", c.unacked.Len(), len(big))
	}
}

func TestCloseOnUnconnected(t *testing.T) {
	c := new(Connection)
	c.state = StateListen
	if err := c.Close(); err != ErrNotConnected {
		t.Fatalf("Close() on LISTEN = %v, want ErrNotConnected", err)
	}
}
