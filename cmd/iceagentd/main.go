package main

import (
	"net"
	"os"
	"time"

	flag "github.com/spf13/pflag"
	errors "golang.org/x/xerrors"

	"github.com/lanikai/iceagent/ice"
	"github.com/lanikai/iceagent/internal/logging"
)

var log = logging.DefaultLogger.WithTag("iceagentd")

// iceagentd is a minimal embedder: it owns the one thing the ice package
// refuses to own, a UDP socket, and drives the protocol engine from what
// that socket sees. Everything address/role/credential related comes from
// flags; there is no signaling channel and no flag for remote candidates,
// so the peer becomes known only as a peer-reflexive remote candidate when
// its first connectivity check arrives.
func main() {
	flag.Parse()

	if flagHelp {
		help()
		os.Exit(0)
	}
	if flagVersion {
		log.Info("iceagentd (github.com/lanikai/iceagent)")
		os.Exit(0)
	}

	if flagLocalUfrag == "" || flagLocalPassword == "" || flagRemoteUfrag == "" || flagRemotePassword == "" {
		log.Error("local and remote ufrag/password are required (see --help)")
		os.Exit(1)
	}

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: flagLocalPort})
	if err != nil {
		log.Error("listen: %v", err)
		os.Exit(1)
	}
	defer conn.Close()
	log.Info("listening on %s", conn.LocalAddr())

	agent, err := newAgent(conn)
	if err != nil {
		log.Error("init: %v", err)
		os.Exit(1)
	}

	if flagStunAddress != "" {
		if err := agent.probeServerReflexive(flagStunAddress); err != nil {
			log.Warn("server-reflexive probe: %v", err)
		}
	}

	agent.run()
}

// agent bundles the protocol engine with the socket and candidate bookkeeping
// that drives it. It is the only place in this program that performs I/O.
type agent struct {
	conn *net.UDPConn
	ctx  ice.Context

	hostIndex int
	buf       [1500]byte
}

func newAgent(conn *net.UDPConn) (*agent, error) {
	local, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return nil, errors.New("not a UDP address")
	}

	a := &agent{conn: conn}
	initInfo := ice.InitInfo{
		MaxLocalCandidates:  8,
		MaxRemoteCandidates: 8,
		MaxCandidatePairs:   64,
		IsControlling:       flagControlling,
		Credentials: ice.Credentials{
			LocalUfrag:     flagLocalUfrag,
			LocalPassword:  flagLocalPassword,
			RemoteUfrag:    flagRemoteUfrag,
			RemotePassword: flagRemotePassword,
		},
		Crypto:             ice.DefaultCryptoFunctions(),
		CloseCandidateFunc: func(c *ice.Candidate) { log.Warn("candidate closed: %s", c.Kind) },
	}
	if res := a.ctx.Init(initInfo); res != ice.ResultOK {
		return nil, errors.Errorf("Context.Init: %s", res)
	}

	endpoint := ice.Endpoint{TransportAddress: udpAddrToTransportAddress(local)}
	index, res := a.ctx.AddHostCandidate(endpoint)
	if res != ice.ResultOK {
		return nil, errors.Errorf("AddHostCandidate: %s", res)
	}
	a.hostIndex = index
	log.Info("host candidate: %s", endpoint.TransportAddress)

	return a, nil
}

func (a *agent) probeServerReflexive(stunAddress string) error {
	raddr, err := net.ResolveUDPAddr("udp4", stunAddress)
	if err != nil {
		return err
	}
	local := a.ctx.LocalCandidate(a.hostIndex)
	index, res := a.ctx.AddServerReflexiveCandidate(local.BaseAddress, false)
	if res != ice.ResultOK {
		return errors.Errorf("AddServerReflexiveCandidate: %s", res)
	}

	n, res := a.ctx.ServerReflexiveBindingRequest(a.buf[:], index)
	if res != ice.ResultOK {
		return errors.Errorf("ServerReflexiveBindingRequest: %s", res)
	}
	_, err = a.conn.WriteToUDP(a.buf[:n], raddr)
	return err
}

// run reads inbound datagrams and dispatches them to the engine until the
// process is killed. Retransmission of our own outstanding requests is
// left to a caller sophisticated enough to need it; this demo only
// responds to what it receives.
func (a *agent) run() {
	for {
		a.conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		n, raddr, err := a.conn.ReadFromUDP(a.buf[:])
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			log.Error("read: %v", err)
			return
		}

		local := a.ctx.LocalCandidate(a.hostIndex)
		result := a.ctx.HandleStunPacket(a.buf[:n], udpAddrToTransportAddress(raddr), local.BaseAddress)
		a.dispatch(result, raddr)
	}
}

func (a *agent) dispatch(result ice.HandleStunPacketResult, raddr *net.UDPAddr) {
	switch result {
	case ice.HandleResultSendResponseForRemoteRequest, ice.HandleResultSendResponseAndStartNomination:
		log.Debug("%s from %s", result, raddr)
	case ice.HandleResultValidCandidatePair:
		log.Info("candidate pair valid (from %s)", raddr)
	case ice.HandleResultUpdatedServerReflexiveCandidateAddress:
		c := a.ctx.LocalCandidate(a.hostIndex + 1)
		log.Info("server-reflexive address: %s", c.Endpoint.TransportAddress)
	default:
		if result.IsError() {
			log.Warn("%s from %s", result, raddr)
		} else {
			log.Debug("%s from %s", result, raddr)
		}
	}
}

func udpAddrToTransportAddress(addr *net.UDPAddr) ice.TransportAddress {
	ip4 := addr.IP.To4()
	if ip4 != nil {
		return ice.MakeIPv4TransportAddress(ip4[0], ip4[1], ip4[2], ip4[3], uint16(addr.Port))
	}
	ta := ice.TransportAddress{Family: ice.FamilyIPv6, Protocol: ice.ProtoUDP, Port: uint16(addr.Port)}
	copy(ta.Address[:], addr.IP.To16())
	return ta
}
