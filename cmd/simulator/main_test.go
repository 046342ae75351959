package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/signalsfoundry/wsn-simulator/core"
	"github.com/signalsfoundry/wsn-simulator/internal/config"
	"github.com/signalsfoundry/wsn-simulator/internal/logging"
	"github.com/signalsfoundry/wsn-simulator/model"
)

func TestParseArgsOverlaysFlags(t *testing.T) {
	cfg, opts, err := parseArgs([]string{"-protocol", "teen", "-nodes", "40", "-rounds", "10", "-hard", "60", "-soft", "8", "-seed", "5"}, io.Discard)
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	s := cfg.Simulation
	if s.Protocol != model.ProtocolTEEN || s.Nodes != 40 || s.Rounds != 10 {
		t.Fatalf("unexpected simulation config: %+v", s)
	}
	if s.HardThreshold != 60 || s.SoftThreshold != 8 {
		t.Fatalf("thresholds = %v/%v, want 60/8", s.HardThreshold, s.SoftThreshold)
	}
	if s.Seed == nil || *s.Seed != 5 {
		t.Fatalf("seed = %v, want 5", s.Seed)
	}
	if s.PacketsPerRound != 3 {
		t.Fatalf("packets default = %d, want 3", s.PacketsPerRound)
	}
	if opts.compare || opts.asJSON {
		t.Fatalf("unexpected cli options: %+v", opts)
	}
}

func TestParseArgsRejectsInvalidInput(t *testing.T) {
	cases := []struct {
		name string
		args []string
		want error
	}{
		{"nodes out of range", []string{"-nodes", "500"}, config.ErrInvalidConfig},
		{"unknown protocol", []string{"-protocol", "spin"}, model.ErrUnknownProtocol},
		{"teen in comparison", []string{"-compare", "-protocols", "direct,teen"}, config.ErrProtocolNotComparable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := parseArgs(tc.args, io.Discard)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestRunPrintsSingleProtocolReport(t *testing.T) {
	cfg, opts, err := parseArgs([]string{"-protocol", "direct", "-nodes", "10", "-rounds", "5", "-seed", "2"}, io.Discard)
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}

	var out bytes.Buffer
	if err := run(context.Background(), cfg, opts, logging.Noop(), &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	text := out.String()
	for _, want := range []string{"Protocol: Direct", "Packets delivered:", "Dead nodes:", "/ 10", "Residual energy"} {
		if !strings.Contains(text, want) {
			t.Fatalf("report missing %q:\n%s", want, text)
		}
	}
	// Header plus five rounds.
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if got := len(lines); got != 3+1+1+5 {
		t.Fatalf("report has %d lines:\n%s", got, text)
	}
}

func TestRunComparisonJSONMatchesCore(t *testing.T) {
	cfg, opts, err := parseArgs([]string{"-compare", "-nodes", "20", "-rounds", "8", "-seed", "11", "-json"}, io.Discard)
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if !opts.compare || !opts.asJSON {
		t.Fatalf("cli options = %+v", opts)
	}

	var out bytes.Buffer
	if err := run(context.Background(), cfg, opts, logging.Noop(), &out); err != nil {
		t.Fatalf("run: %v", err)
	}

	var table map[model.Protocol]core.ComparisonEntry
	if err := json.Unmarshal(out.Bytes(), &table); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out.String())
	}
	if len(table) != 3 {
		t.Fatalf("table has %d rows, want 3", len(table))
	}
	if _, ok := table[model.ProtocolTEEN]; ok {
		t.Fatalf("TEEN must not appear in comparisons")
	}

	want, err := core.RunComparison(context.Background(), nil, 20, 8, 3, core.DefaultParams(), core.WithSeed(11))
	if err != nil {
		t.Fatalf("RunComparison: %v", err)
	}
	for p, e := range want {
		if table[p] != e {
			t.Fatalf("%v: got %+v, want %+v", p, table[p], e)
		}
	}
}

func TestWriteComparisonOrdersRows(t *testing.T) {
	table := map[model.Protocol]core.ComparisonEntry{
		model.ProtocolPEGASIS: {AliveCount: 7, DeliveredTotal: 30},
		model.ProtocolDirect:  {AliveCount: 1, DeliveredTotal: 12},
	}
	var out bytes.Buffer
	if err := writeComparison(&out, []model.Protocol{model.ProtocolDirect, model.ProtocolPEGASIS}, table); err != nil {
		t.Fatalf("writeComparison: %v", err)
	}
	text := out.String()
	if strings.Index(text, "Direct") > strings.Index(text, "PEGASIS") {
		t.Fatalf("rows out of order:\n%s", text)
	}
}
