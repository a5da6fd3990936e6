package label_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/PauloFidalgo/cmov-5g/internal/pkg/label"
)

func TestDescribe(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"ue1_dl_rtt_b20.txt", "1 UE | Downlink (Server → UE) | Ping (RTT) | 20MHz"},
		{"UE3_UL_UDP_B40.log", "3 UEs | Uplink (UE → Server) | UDP | 40MHz"},
		{"up_up_tcp_b10.txt", "1 UE | Uplink (UE → Server) | TCP | 10MHz"},
		{"ue2_dl_quic_b100.txt", "2 UEs | Downlink (Server → UE) | QUIC | 100MHz"},
		{"realtime_log.txt", "File: realtime_log.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.want, label.Describe(tt.filename))
		})
	}
}
