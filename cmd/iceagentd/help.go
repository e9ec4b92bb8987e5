package main

import (
	"fmt"

	"github.com/fatih/color"
	flag "github.com/spf13/pflag"
)

var (
	flagLocalPort      int
	flagStunAddress    string
	flagTurnAddress    string
	flagTurnUsername   string
	flagTurnPassword   string
	flagControlling    bool
	flagLocalUfrag     string
	flagLocalPassword  string
	flagRemoteUfrag    string
	flagRemotePassword string
	flagHelp           bool
	flagVersion        bool
)

func init() {
	flag.IntVarP(&flagLocalPort, "port", "p", 0, "Local UDP port to bind (0: pick an ephemeral port)")
	flag.StringVarP(&flagStunAddress, "stun-address", "s", "", "STUN server address (host:port) used to discover a server-reflexive candidate")
	flag.StringVarP(&flagTurnAddress, "turn-address", "t", "", "TURN server address (host:port); accepted but unused, no relay candidate is allocated")
	flag.StringVar(&flagTurnUsername, "turn-username", "", "TURN long-term credential username (accepted but unused)")
	flag.StringVar(&flagTurnPassword, "turn-password", "", "TURN long-term credential password (accepted but unused)")
	flag.BoolVarP(&flagControlling, "controlling", "c", false, "Take the controlling role (default: controlled)")
	flag.StringVar(&flagLocalUfrag, "local-ufrag", "", "Local ICE username fragment")
	flag.StringVar(&flagLocalPassword, "local-password", "", "Local ICE password")
	flag.StringVar(&flagRemoteUfrag, "remote-ufrag", "", "Remote ICE username fragment")
	flag.StringVar(&flagRemotePassword, "remote-password", "", "Remote ICE password")

	flag.BoolVarP(&flagHelp, "help", "h", false, "Print usage information and exit")
	flag.BoolVarP(&flagVersion, "version", "v", false, "Print version information and exit")
}

const helpString = `Drive the ice protocol engine against a live socket

Usage: iceagentd [OPTION]...

Role:
  -c, --controlling          Take the controlling role (default: controlled)
      --local-ufrag=FRAG     Local ICE username fragment
      --local-password=PWD  Local ICE password
      --remote-ufrag=FRAG    Remote ICE username fragment
      --remote-password=PWD Remote ICE password

Network:
  -p, --port=NUM             Local UDP port to bind (default: ephemeral)
  -s, --stun-address=HOST:PORT  STUN server for server-reflexive discovery
  -t, --turn-address=HOST:PORT  TURN server (accepted but unused: no relay
                                candidate is allocated)
      --turn-username=USER   TURN long-term credential username (unused)
      --turn-password=PASS   TURN long-term credential password (unused)

Miscellaneous:
  -h, --help                 Prints this help message and exits
  -v, --version              Prints version information and exits`

func help() {
	c := color.New(color.FgCyan)
	c.Println("iceagentd")
	fmt.Println(helpString)
}
