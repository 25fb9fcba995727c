// pnssim runs a photon-number-splitting attack simulation for each entry in
// the cartesian product of a collection of tuning parameters, e.g. pulses sent
// and whether Eve attacks, and outputs a CSV of relevant statistics for each
// combination, e.g. how many rounds Eve resolved and how many she got right.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/alan-christopher/pns/go/pns"
	"github.com/alan-christopher/pns/go/pns/photon"
	"github.com/alan-christopher/pns/go/pns/store"
	"github.com/alan-christopher/pns/go/pns/store/memory"
	"github.com/alan-christopher/pns/go/pns/store/sqlite"
	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	flag "github.com/spf13/pflag"
)

// Config holds pnssim configuration. Environment variables provide defaults,
// which command line flags override.
type Config struct {
	Rounds        []int     `env:"PNS_ROUNDS"             envDefault:"10000"`
	Mean          []float64 `env:"PNS_MEAN_PHOTON_NUMBER" envDefault:"0.1"`
	Attack        []bool    `env:"PNS_ATTACK"             envDefault:"true"`
	Poisson       bool      `env:"PNS_POISSON"`
	MaxPhotons    int       `env:"PNS_MAX_PHOTONS"        envDefault:"2"`
	ResolvePolicy string    `env:"PNS_RESOLVE_POLICY"     envDefault:"deferred"`
	Seed          uint64    `env:"PNS_SEED"               envDefault:"42"`
	DBPath        string    `env:"PNS_DB"`
	TranscriptDir string    `env:"PNS_TRANSCRIPT_DIR"`
	Verbose       bool      `env:"PNS_VERBOSE"`
}

// columns lists the Experiment fields reported, in output order.
var columns = []string{"RunID", "Rounds", "Mean", "Attack", "Policy",
	"Vacuum", "SinglePhoton", "MultiPhoton", "Deferred", "Intercepted",
	"Resolved", "EveKnown", "EveCorrect"}

// An Experiment packages together the result of simulating a single
// parameterization for easy formatting.
type Experiment struct {
	// Fields corresponding to experiment parameters
	RunID  string
	Rounds int
	Mean   float64
	Attack bool
	Policy pns.ResolvePolicy

	// Fields corresponding to experiment results
	Vacuum       int
	SinglePhoton int
	MultiPhoton  int
	Deferred     int
	Intercepted  int
	Resolved     int
	EveKnown     int
	EveCorrect   int
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		log.Fatalf("pnssim: %v", err)
	}
}

// parseConfig parses the environment, then args, into a Config.
func parseConfig(args []string) (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	fs := flag.NewFlagSet("pnssim", flag.ContinueOnError)
	fs.IntSliceVar(&cfg.Rounds, "rounds", cfg.Rounds, "The number of pulses to send per run.")
	fs.Float64SliceVar(&cfg.Mean, "mean", cfg.Mean, "The mean photons per pulse of Alice's source.")
	fs.BoolSliceVar(&cfg.Attack, "attack", cfg.Attack, "Whether Eve attacks the channel.")
	fs.BoolVar(&cfg.Poisson, "poisson", cfg.Poisson, "Derive photon count weights from the mean, instead of the fixed 70/25/5 split.")
	fs.IntVar(&cfg.MaxPhotons, "max-photons", cfg.MaxPhotons, "The largest photon count distinguished by the Poisson sampler.")
	fs.StringVar(&cfg.ResolvePolicy, "resolve", cfg.ResolvePolicy, "Which rounds Eve resolves after basis disclosure: deferred or all.")
	fs.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "The seed for every run's randomness.")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "If set, the SQLite database to save each run to. Runs are otherwise kept in memory.")
	fs.StringVar(&cfg.TranscriptDir, "transcripts", cfg.TranscriptDir, "If set, the directory to write each run's transcript to.")
	fs.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "Log every pulse.")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func run(ctx context.Context, args []string, out, errOut io.Writer) error {
	cfg, err := parseConfig(args)
	if err != nil {
		return err
	}
	policy, err := pns.ParseResolvePolicy(cfg.ResolvePolicy)
	if err != nil {
		return err
	}
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: level}))

	var rs store.RoundStore = memory.New()
	if cfg.DBPath != "" {
		db, err := sqlite.Open(ctx, cfg.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()
		rs = sqlite.NewRunStore(db)
	}
	if cfg.TranscriptDir != "" {
		if err := os.MkdirAll(cfg.TranscriptDir, 0o755); err != nil {
			return fmt.Errorf("mkdir transcript dir: %w", err)
		}
	}

	fmt.Fprintln(out, header())
	tmpl := template.Must(template.New("line").Parse(lineTmpl()))
	var runErr error
	applyCartesian(func(args []any) {
		if runErr != nil {
			return
		}
		exp := &Experiment{
			RunID:  uuid.NewString(),
			Rounds: args[0].(int),
			Mean:   args[1].(float64),
			Attack: args[2].(bool),
			Policy: policy,
		}
		s, err := simulate(cfg, exp, logger.With(slog.String("run", exp.RunID)))
		if err != nil {
			runErr = fmt.Errorf("simulating %+v: %w", exp, err)
			return
		}
		if err := persist(ctx, cfg, rs, exp, s); err != nil {
			runErr = err
			return
		}
		if err := tmpl.Execute(out, exp); err != nil {
			runErr = fmt.Errorf("BUG: could not fill in line template: %w", err)
		}
	}, [][]any{toAny(cfg.Rounds), toAny(cfg.Mean), toAny(cfg.Attack)})
	return runErr
}

func simulate(cfg Config, exp *Experiment, logger *slog.Logger) (*pns.Session, error) {
	if exp.Mean == 0 {
		exp.Mean = pns.DefaultMeanPhotonNumber
	}
	r := rand.New(rand.NewPCG(cfg.Seed, uint64(exp.Rounds)))
	opts := pns.Opts{
		MeanPhotonNumber: exp.Mean,
		AttackEnabled:    exp.Attack,
		Rand:             r,
		ResolvePolicy:    exp.Policy,
		Logger:           logger,
	}
	if cfg.Poisson {
		w, err := photon.PoissonWeights(exp.Mean, cfg.MaxPhotons)
		if err != nil {
			return nil, err
		}
		if opts.Sampler, err = photon.NewCategorical(w, r); err != nil {
			return nil, err
		}
	}
	s, err := pns.NewSession(opts)
	if err != nil {
		return nil, err
	}
	exp.Mean = s.MeanPhotonNumber()
	if err := s.TransmitRandom(exp.Rounds); err != nil {
		return nil, err
	}
	before := s.History().Stats()
	exp.Vacuum = before.Vacuum
	exp.SinglePhoton = before.SinglePhoton
	exp.MultiPhoton = before.MultiPhoton
	exp.Deferred = before.Pending
	exp.Intercepted = before.EveKnown

	exp.Resolved = s.Resolve()
	exp.EveKnown = s.History().Stats().EveKnown
	exp.EveCorrect = s.History().Columns().EveCorrect()
	return s, nil
}

func persist(ctx context.Context, cfg Config, rs store.RoundStore, exp *Experiment, s *pns.Session) error {
	if err := rs.SaveRun(ctx, store.NewRun(exp.RunID, s)); err != nil {
		return err
	}
	if cfg.TranscriptDir == "" {
		return nil
	}
	f, err := os.Create(filepath.Join(cfg.TranscriptDir, exp.RunID+".pnst"))
	if err != nil {
		return fmt.Errorf("creating transcript: %w", err)
	}
	if err := pns.WriteTranscript(f, s.History()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func header() string {
	return strings.Join(columns, ", ")
}

func lineTmpl() string {
	var els []string
	for _, c := range columns {
		els = append(els, "{{."+c+"}}")
	}
	return strings.Join(els, ", ") + "\n"
}

func toAny[T any](vs []T) []any {
	r := make([]any, 0, len(vs))
	for _, v := range vs {
		r = append(r, v)
	}
	return r
}

// applyCartesian calls f once for each element of the cartesian product of
// args.
func applyCartesian(f func([]any), args [][]any) {
	for i := range args {
		if len(args[i]) == 0 {
			return
		}
	}
	for i := range args {
		if len(args[i]) == 1 {
			continue
		}
		l := make([][]any, len(args))
		r := make([][]any, len(args))
		copy(l, args)
		copy(r, args)
		l[i] = args[i][:1]
		r[i] = args[i][1:]
		applyCartesian(f, l)
		applyCartesian(f, r)
		return
	}
	x := make([]any, 0, len(args))
	for _, a := range args {
		x = append(x, a[0])
	}
	f(x)
}
