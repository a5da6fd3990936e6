// Package kpm extracts KPM indication records from FlexRIC xApp logs.
//
// A record starts at an anchor line
//
//	<id> KPM ind_msg latency = <int> [μs]
//
// and collects the metric lines that follow it, each of the form
// <Namespace>.<Field> = <number> [<unit>], until the next anchor or the end
// of the text. Every other line is ignored.
package kpm

import (
	"bufio"
	"context"
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/PauloFidalgo/cmov-5g/internal/domain"
)

const (
	maxLineSize      = 1 << 20
	ctxCheckInterval = 256
)

var (
	anchorPattern = regexp.MustCompile(`^\s*(\d+)\s+KPM\s+ind_msg\s+latency\s*=\s*(\d+)`)
	metricPattern = regexp.MustCompile(`^\s*([A-Za-z]\w*)\.([A-Za-z]\w*)\s*=\s*([-+]?(?:\d+\.?\d*|\.\d+)(?:[eE][-+]?\d+)?)\s*(?:\[[^\]]*\])?\s*$`)
)

// metricColumns maps the field part of a metric line to its table column.
var metricColumns = map[string]string{
	"PdcpSduVolumeDL": domain.ColumnPdcpSduVolumeDL,
	"PdcpSduVolumeUL": domain.ColumnPdcpSduVolumeUL,
	"RlcSduDelayDl":   domain.ColumnRlcSduDelayDl,
	"UEThpDl":         domain.ColumnUEThpDl,
	"UEThpUl":         domain.ColumnUEThpUl,
	"PrbTotDl":        domain.ColumnPrbTotDl,
	"PrbTotUl":        domain.ColumnPrbTotUl,
}

// Parser is the in-process extraction engine for the KPM log grammar.
type Parser struct{}

// New creates a Parser.
func New() *Parser {
	return &Parser{}
}

// Extract parses every KPM block found in text. It returns
// domain.ErrNoRecords when the text holds no anchor line.
func (p *Parser) Extract(ctx context.Context, text string) (domain.Table, error) {
	table := domain.Table{Columns: append([]string(nil), domain.MeasurementColumns...)}

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var (
		current domain.Fields
		lineNo  int
	)
	for scanner.Scan() {
		lineNo++
		if lineNo%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return domain.Table{}, err
			}
		}

		line := scanner.Text()
		if id, latency, ok := parseAnchor(line); ok {
			if current != nil {
				table.Rows = append(table.Rows, current)
			}
			current = domain.Fields{domain.ColumnID: id, domain.ColumnLatency: latency}
			continue
		}
		if current == nil {
			continue
		}
		if column, value, ok := parseMetric(line); ok {
			current[column] = value
		}
	}
	if err := scanner.Err(); err != nil {
		return domain.Table{}, errors.Wrap(domain.ErrMalformedOutput, err.Error())
	}
	if current != nil {
		table.Rows = append(table.Rows, current)
	}

	if len(table.Rows) == 0 {
		return table, domain.ErrNoRecords
	}
	return table, nil
}

func parseAnchor(line string) (id, latency string, ok bool) {
	m := anchorPattern.FindStringSubmatch(line)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

func parseMetric(line string) (column, value string, ok bool) {
	m := metricPattern.FindStringSubmatch(line)
	if m == nil {
		return "", "", false
	}
	column, ok = metricColumns[m[2]]
	if !ok {
		return "", "", false
	}
	return column, m[3], true
}

var _ domain.Extractor = (*Parser)(nil)
