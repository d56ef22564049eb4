package sysmon

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"
)

// tcpListen is the socket state code for LISTEN in /proc/net/tcp.
const tcpListen = 0x0A

var procNetFiles = []struct {
	path string
	tcp  bool
}{
	{"/proc/net/tcp", true},
	{"/proc/net/tcp6", true},
	{"/proc/net/udp", false},
	{"/proc/net/udp6", false},
}

// PortBound reports whether any local socket is bound to port. TCP
// sockets must be listening; UDP sockets are unconnected so any
// bound socket counts.
func PortBound(port int) bool {
	for _, f := range procNetFiles {
		file, err := os.Open(f.path)
		if err != nil {
			continue
		}
		bound := scanProcNet(file, port, f.tcp)
		file.Close()
		if bound {
			return true
		}
	}
	return false
}

// scanProcNet scans a /proc/net table for a socket bound to port.
// Lines look like:
//
//	0: 00000000:0801 00000000:0000 0A ...
//
// where 0801 is the local port in hex and 0A the state.
func scanProcNet(r io.Reader, port int, requireListen bool) bool {
	sc := bufio.NewScanner(r)
	sc.Scan() // header
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 4 {
			continue
		}
		local := fields[1]
		colon := strings.LastIndexByte(local, ':')
		if colon < 0 {
			continue
		}
		p, err := strconv.ParseInt(local[colon+1:], 16, 32)
		if err != nil || int(p) != port {
			continue
		}
		if !requireListen {
			return true
		}
		st, err := strconv.ParseInt(fields[3], 16, 32)
		if err == nil && st == tcpListen {
			return true
		}
	}
	return false
}
