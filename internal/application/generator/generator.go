package generator

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/PauloFidalgo/cmov-5g/internal/domain"
)

// BaseLatency is the latency around which generated entries are spread.
const BaseLatency int64 = 1748351985647759

const header = `[UTIL]: Setting the config -c file to /local/etc/flexric/flexric.conf
[UTIL]: Setting path -p for the shared libraries to /local/lib/flexric/
[xAapp]: Initializing ...
[xApp]: nearRT-RIC IP Address = 127.0.0.1, PORT = 36422
Connected E2 nodes = 1
[xApp]: Successfully subscribed to RAN_FUNC_ID 2

`

// Config describes the runtime characteristics of the generator. A negative
// Entries count runs until the context is cancelled.
type Config struct {
	Interval   time.Duration
	Entries    int
	StartID    int64
	RandSource rand.Source
}

// Generator writes KPM indication blocks in the format emitted by the xApp.
type Generator struct {
	cfg    Config
	logger domain.Logger
	rnd    *rand.Rand
}

// New creates a configured generator instance.
func New(cfg Config, logger domain.Logger) *Generator {
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
	}
	if cfg.Entries == 0 {
		cfg.Entries = 100
	}
	if cfg.StartID <= 0 {
		cfg.StartID = 1
	}

	source := cfg.RandSource
	if source == nil {
		source = rand.NewSource(time.Now().UnixNano())
	}

	return &Generator{
		cfg:    cfg,
		logger: logger,
		rnd:    rand.New(source),
	}
}

// Header returns the connection banner printed before the first indication.
func (g *Generator) Header() string {
	return header
}

// Entry renders one indication block with randomised measurements.
func (g *Generator) Entry(id int64) string {
	latency := BaseLatency + g.rnd.Int63n(2_000_001) - 1_000_000
	dl := g.uniform(100000, 1500000)
	ul := g.uniform(1000, 15000)
	dlVolume := int64(dl * g.uniform(0.8, 1.2))
	ulVolume := int64(ul * g.uniform(0.8, 1.2))
	delay := g.uniform(3000, 8000)
	prbDl := int64(dl * g.uniform(0.1, 0.2))
	prbUl := int64(ul * g.uniform(0.5, 1.0))

	var b strings.Builder
	fmt.Fprintf(&b, "\n      %d KPM ind_msg latency = %d [μs]\n", id, latency)
	b.WriteString("UE ID type = gNB, amf_ue_ngap_id = 1\n")
	b.WriteString("ran_ue_id = 1\n")
	fmt.Fprintf(&b, "DRB.PdcpSduVolumeDL = %d [kb]\n", dlVolume)
	fmt.Fprintf(&b, "DRB.PdcpSduVolumeUL = %d [kb]\n", ulVolume)
	fmt.Fprintf(&b, "DRB.RlcSduDelayDl = %.2f [μs]\n", delay)
	fmt.Fprintf(&b, "DRB.UEThpDl = %.2f [kbps]\n", dl)
	fmt.Fprintf(&b, "DRB.UEThpUl = %.2f [kbps]\n", ul)
	fmt.Fprintf(&b, "RRU.PrbTotDl = %d [PRBs]\n", prbDl)
	fmt.Fprintf(&b, "RRU.PrbTotUl = %d [PRBs]\n", prbUl)
	return b.String()
}

// Log renders the header followed by n consecutive entries.
func (g *Generator) Log(n int) string {
	var b strings.Builder
	b.WriteString(header)
	for i := 0; i < n; i++ {
		b.WriteString(g.Entry(g.cfg.StartID + int64(i)))
	}
	return b.String()
}

// Run writes one entry per interval to w until the configured number of
// entries has been written or ctx is cancelled, and returns how many entries
// were written. The first entry is written immediately.
func (g *Generator) Run(ctx context.Context, w io.Writer) (int, error) {
	ticker := time.NewTicker(g.cfg.Interval)
	defer ticker.Stop()

	written := 0
	for id := g.cfg.StartID; g.cfg.Entries < 0 || written < g.cfg.Entries; id++ {
		if _, err := io.WriteString(w, g.Entry(id)); err != nil {
			return written, errors.Wrapf(err, "write entry %d", id)
		}
		if s, ok := w.(interface{ Sync() error }); ok {
			if err := s.Sync(); err != nil {
				return written, errors.Wrapf(err, "sync entry %d", id)
			}
		}
		written++
		g.log(ctx, "generator: added entry %d", id)

		if g.cfg.Entries >= 0 && written >= g.cfg.Entries {
			break
		}

		select {
		case <-ctx.Done():
			g.log(ctx, "generator: context cancelled after %d entries: %v", written, ctx.Err())
			return written, nil
		case <-ticker.C:
		}
	}
	return written, nil
}

func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + g.rnd.Float64()*(hi-lo)
}

func (g *Generator) log(ctx context.Context, format string, v ...any) {
	if g.logger == nil {
		return
	}
	g.logger.Printf(ctx, format, v...)
}
