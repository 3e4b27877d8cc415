package transport

import (
	"context"
	"net"
	"time"

	"golang.org/x/net/ipv4"

	"github.com/opensonata/dxcore/internal/dxerr"
	"github.com/opensonata/dxcore/internal/model"
	"github.com/opensonata/dxcore/internal/wire"
)

// maxDatagramSize bounds one UDP multicast sample-packet read; the
// sample-packet header plus a half-frame's worth of complex-int16
// samples comfortably fits under the conventional Ethernet-safe
// multicast MTU.
const maxDatagramSize = 9000

// MulticastReceiver joins a UDP multicast group and decodes sample
// packets from it, using golang.org/x/net/ipv4 for the group-membership
// and interface-selection calls the stdlib net package doesn't expose.
type MulticastReceiver struct {
	conn    *net.UDPConn
	pktConn *ipv4.PacketConn
}

// JoinMulticast opens a UDP socket bound to groupAddr (e.g.
// "239.0.0.1:30000") on the named interface (empty for the default) and
// joins the multicast group.
func JoinMulticast(groupAddr, ifaceName string) (*MulticastReceiver, error) {
	addr, err := net.ResolveUDPAddr("udp4", groupAddr)
	if err != nil {
		return nil, dxerr.Wrap(dxerr.KindConfiguration, err, "resolving multicast address %q", groupAddr)
	}
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: addr.IP, Port: addr.Port})
	if err != nil {
		return nil, dxerr.Wrap(dxerr.KindTransport, err, "binding multicast socket on %q", groupAddr)
	}

	pktConn := ipv4.NewPacketConn(conn)
	var iface *net.Interface
	if ifaceName != "" {
		iface, err = net.InterfaceByName(ifaceName)
		if err != nil {
			conn.Close()
			return nil, dxerr.Wrap(dxerr.KindConfiguration, err, "resolving interface %q", ifaceName)
		}
	}
	if err := pktConn.JoinGroup(iface, &net.UDPAddr{IP: addr.IP}); err != nil {
		conn.Close()
		return nil, dxerr.Wrap(dxerr.KindTransport, err, "joining multicast group %q", groupAddr)
	}

	return &MulticastReceiver{conn: conn, pktConn: pktConn}, nil
}

// Close leaves the multicast group and closes the socket.
func (m *MulticastReceiver) Close() error {
	return m.conn.Close()
}

// Receive blocks for the next sample packet. Callers are expected to
// invoke this from a dedicated goroutine in a loop bounded by ctx.
func (m *MulticastReceiver) Receive(ctx context.Context) (*model.SamplePacket, error) {
	buf := make([]byte, maxDatagramSize)
	type result struct {
		n   int
		err error
	}
	done := make(chan result, 1)
	go func() {
		n, _, _, err := m.pktConn.ReadFrom(buf)
		done <- result{n, err}
	}()

	select {
	case <-ctx.Done():
		m.conn.SetReadDeadline(time.Now())
		<-done
		return nil, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return nil, dxerr.Wrap(dxerr.KindTransport, r.err, "reading multicast datagram")
		}
		_, pkt, err := wire.DecodePacket(buf[:r.n])
		if err != nil {
			return nil, err
		}
		return pkt, nil
	}
}
