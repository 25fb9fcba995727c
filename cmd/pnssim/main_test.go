package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/alan-christopher/pns/go/pns"
	"github.com/alan-christopher/pns/go/pns/store/sqlite"
)

func TestParseConfig(t *testing.T) {
	t.Setenv("PNS_ROUNDS", "50,60")
	t.Setenv("PNS_ATTACK", "false")
	t.Setenv("PNS_SEED", "7")

	cfg, err := parseConfig(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(cfg.Rounds, []int{50, 60}) {
		t.Errorf("Rounds == %v, want [50 60]", cfg.Rounds)
	}
	if !reflect.DeepEqual(cfg.Attack, []bool{false}) {
		t.Errorf("Attack == %v, want [false]", cfg.Attack)
	}
	if !reflect.DeepEqual(cfg.Mean, []float64{0.1}) || cfg.ResolvePolicy != "deferred" || cfg.Seed != 7 {
		t.Errorf("defaults not applied: %+v", cfg)
	}

	cfg, err = parseConfig([]string{"--rounds", "5", "--seed", "9", "--resolve", "all"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(cfg.Rounds, []int{5}) || cfg.Seed != 9 || cfg.ResolvePolicy != "all" {
		t.Errorf("flags did not override env: %+v", cfg)
	}

	if _, err := parseConfig([]string{"--no-such-flag"}); err == nil {
		t.Errorf("expected error for unknown flag: got nil")
	}
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "runs.db")
	trDir := filepath.Join(dir, "transcripts")
	var out, errOut bytes.Buffer
	err := run(context.Background(), []string{
		"--rounds", "200,300",
		"--attack", "true,false",
		"--db", dbPath,
		"--transcripts", trDir,
	}, &out, &errOut)
	if err != nil {
		t.Fatalf("unexpected error: %v\n%s", err, errOut.String())
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("got %d lines of output, want a header and 4 experiments:\n%s", len(lines), out.String())
	}
	if lines[0] != header() {
		t.Errorf("header == %q, want %q", lines[0], header())
	}
	for _, l := range lines[1:] {
		if got := len(strings.Split(l, ", ")); got != len(columns) {
			t.Errorf("line %q has %d columns, want %d", l, got, len(columns))
		}
	}

	db, err := sqlite.Open(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("opening db: %v", err)
	}
	defer db.Close()
	rs := sqlite.NewRunStore(db)
	ids, err := rs.ListRuns(context.Background())
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(ids) != 4 {
		t.Fatalf("saved %d runs, want 4", len(ids))
	}
	for _, id := range ids {
		saved, err := rs.LoadRun(context.Background(), id)
		if err != nil {
			t.Fatalf("LoadRun(%s): %v", id, err)
		}
		f, err := os.Open(filepath.Join(trDir, id+".pnst"))
		if err != nil {
			t.Fatalf("opening transcript: %v", err)
		}
		h, err := pns.ReadTranscript(f)
		f.Close()
		if err != nil {
			t.Fatalf("reading transcript %s: %v", id, err)
		}
		if h.Len() != len(saved.Rounds) {
			t.Errorf("run %s: transcript has %d rounds, store has %d", id, h.Len(), len(saved.Rounds))
		}
		if saved.AttackEnabled && h.Stats().Pending != 0 {
			t.Errorf("run %s: %d rounds left pending after resolving", id, h.Stats().Pending)
		}
	}
}

func TestRunDefaultMean(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	var out, errOut bytes.Buffer
	err := run(context.Background(), []string{"--rounds", "20", "--mean", "0", "--db", dbPath}, &out, &errOut)
	if err != nil {
		t.Fatalf("unexpected error: %v\n%s", err, errOut.String())
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines of output, want 2:\n%s", len(lines), out.String())
	}
	if got := strings.Split(lines[1], ", ")[2]; got != "0.1" {
		t.Errorf("Mean column == %s, want 0.1", got)
	}

	db, err := sqlite.Open(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("opening db: %v", err)
	}
	defer db.Close()
	rs := sqlite.NewRunStore(db)
	ids, err := rs.ListRuns(context.Background())
	if err != nil || len(ids) != 1 {
		t.Fatalf("ListRuns == %v, %v, want one run", ids, err)
	}
	saved, err := rs.LoadRun(context.Background(), ids[0])
	if err != nil {
		t.Fatalf("LoadRun: %v", err)
	}
	if saved.MeanPhotonNumber != 0.1 {
		t.Errorf("saved mean == %v, want 0.1", saved.MeanPhotonNumber)
	}
}

func TestRunBadPolicy(t *testing.T) {
	var out, errOut bytes.Buffer
	if err := run(context.Background(), []string{"--resolve", "some"}, &out, &errOut); err == nil {
		t.Errorf("expected error: got nil")
	}
}

func TestApplyCartesian(t *testing.T) {
	var got []string
	applyCartesian(func(args []any) {
		got = append(got, fmt.Sprintf("%v/%v", args[0], args[1]))
	}, [][]any{toAny([]int{1, 2}), toAny([]bool{true, false})})
	want := []string{"1/true", "1/false", "2/true", "2/false"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("applyCartesian visited %v, want %v", got, want)
	}

	calls := 0
	applyCartesian(func([]any) { calls++ }, [][]any{toAny([]int{1}), nil})
	if calls != 0 {
		t.Errorf("empty parameter list still produced %d calls", calls)
	}
}
