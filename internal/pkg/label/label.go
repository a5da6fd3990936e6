// Package label turns experiment log file names into short descriptions.
//
// Names follow u<e|p><count>_<dl|ul|up>_<traffic>_b<bandwidth>, for example
// ue2_dl_tcp_b40.txt for two UEs running downlink TCP over 40 MHz.
package label

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

var pattern = regexp.MustCompile(`u[pe](\d*)_([du][pl])_([a-z]+)_b(\d+)`)

var directions = map[string]string{
	"dl": "Downlink (Server → UE)",
	"up": "Uplink (UE → Server)",
	"ul": "Uplink (UE → Server)",
}

var traffic = map[string]string{
	"rtt": "Ping (RTT)",
	"tcp": "TCP",
	"udp": "UDP",
}

// Describe returns a human readable description of filename, or
// "File: <filename>" when the name does not follow the convention.
func Describe(filename string) string {
	stem := strings.ToLower(strings.TrimSuffix(filename, filepath.Ext(filename)))
	m := pattern.FindStringSubmatch(stem)
	if m == nil {
		return "File: " + filename
	}

	ues := m[1]
	if ues == "" {
		ues = "1"
	}
	unit := "UE"
	if ues != "1" {
		unit = "UEs"
	}

	direction, ok := directions[m[2]]
	if !ok {
		direction = strings.ToUpper(m[2])
	}
	kind, ok := traffic[m[3]]
	if !ok {
		kind = strings.ToUpper(m[3])
	}

	return fmt.Sprintf("%s %s | %s | %s | %sMHz", ues, unit, direction, kind, m[4])
}
