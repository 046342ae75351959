package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"

	"github.com/signalsfoundry/wsn-simulator/core"
	"github.com/signalsfoundry/wsn-simulator/internal/config"
	"github.com/signalsfoundry/wsn-simulator/internal/logging"
	"github.com/signalsfoundry/wsn-simulator/internal/observability"
	"github.com/signalsfoundry/wsn-simulator/model"
)

// cliOptions are the settings that only make sense for the command line.
type cliOptions struct {
	compare bool
	asJSON  bool
}

func main() {
	cfg, opts, err := parseArgs(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "simulator: %v\n", err)
		os.Exit(2)
	}

	log := logging.New(cfg.Logging)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	shutdown, err := observability.InitTracing(ctx, cfg.Tracing, log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.Err(err))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdown, log)

	if err := run(ctx, cfg, opts, log, os.Stdout); err != nil {
		log.Error(ctx, "simulation failed", logging.Err(err))
		os.Exit(1)
	}
}

// parseArgs layers flags over the YAML file named by -config and the
// environment, then validates the result.
func parseArgs(args []string, errOut io.Writer) (config.Config, cliOptions, error) {
	fs := flag.NewFlagSet("simulator", flag.ContinueOnError)
	fs.SetOutput(errOut)

	configPath := fs.String("config", "", "optional YAML config file")
	protocol := fs.String("protocol", "", "routing protocol: Direct, LEACH, PEGASIS or TEEN")
	compare := fs.Bool("compare", false, "compare protocols side by side instead of running one")
	protocols := fs.String("protocols", "", "comma-separated protocols to compare (default Direct,LEACH,PEGASIS)")
	nodes := fs.Int("nodes", 0, "number of sensor nodes (10-150)")
	rounds := fs.Int("rounds", 0, "number of rounds (5-80)")
	packets := fs.Int("packets", 0, "packets per round (1-10)")
	hard := fs.Float64("hard", 0, "TEEN hard threshold (10-90)")
	soft := fs.Float64("soft", 0, "TEEN soft threshold (1-20)")
	seed := fs.Uint64("seed", 0, "random seed; omit for a random run")
	asJSON := fs.Bool("json", false, "print the result as JSON")
	logLevel := fs.String("log-level", "", "log level: debug, info, warn, error")

	if err := fs.Parse(args); err != nil {
		return config.Config{}, cliOptions{}, err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return config.Config{}, cliOptions{}, err
	}

	s := &cfg.Simulation
	var flagErr error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "protocol":
			p, err := model.ParseProtocol(*protocol)
			if err != nil {
				flagErr = errors.Join(flagErr, err)
				return
			}
			s.Protocol = p
		case "protocols":
			ps, err := config.ParseProtocolList(*protocols)
			if err != nil {
				flagErr = errors.Join(flagErr, err)
				return
			}
			s.Compare = ps
		case "nodes":
			s.Nodes = *nodes
		case "rounds":
			s.Rounds = *rounds
		case "packets":
			s.PacketsPerRound = *packets
		case "hard":
			s.HardThreshold = *hard
		case "soft":
			s.SoftThreshold = *soft
		case "seed":
			v := *seed
			s.Seed = &v
		case "log-level":
			cfg.Logging.Level = *logLevel
		}
	})
	if flagErr != nil {
		return config.Config{}, cliOptions{}, flagErr
	}

	opts := cliOptions{compare: *compare || len(s.Compare) > 0, asJSON: *asJSON}
	if opts.compare {
		err = s.ValidateComparison()
	} else {
		err = s.Validate()
	}
	if err != nil {
		return config.Config{}, cliOptions{}, err
	}
	return cfg, opts, nil
}

func run(ctx context.Context, cfg config.Config, opts cliOptions, log logging.Logger, out io.Writer) error {
	s := cfg.Simulation
	ctx = logging.ContextWithRunID(ctx, logging.NewID())
	runOpts := append(s.Options(), core.WithLogger(log))

	if opts.compare {
		protocols, err := core.ComparisonProtocols(s.Compare)
		if err != nil {
			return err
		}
		table, err := core.RunComparison(ctx, protocols, s.Nodes, s.Rounds, s.PacketsPerRound, s.Params(), runOpts...)
		if err != nil {
			return err
		}
		if opts.asJSON {
			return writeJSON(out, table)
		}
		return writeComparison(out, protocols, table)
	}

	res, err := core.RunSimulation(ctx, s.Protocol, s.Nodes, s.Rounds, s.PacketsPerRound, s.Params(), runOpts...)
	if err != nil {
		return err
	}
	if opts.asJSON {
		return writeJSON(out, res)
	}
	return writeReport(out, res)
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeReport prints the single-protocol summary followed by the
// per-round series.
func writeReport(out io.Writer, res *core.Result) error {
	n := len(res.FinalNodes)
	dead := n - res.AliveCount()

	fmt.Fprintf(out, "Protocol: %s  Nodes: %d  Rounds: %d  Packets/round: %d  Seed: %d\n",
		res.Protocol, n, res.Rounds, res.PacketsPerRound, res.Seed)
	fmt.Fprintf(out, "Packets delivered: %d\n", res.DeliveredTotal)
	fmt.Fprintf(out, "Dead nodes: %d / %d\n\n", dead, n)

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Round\tDead\tResidual energy\tDelivered\t")
	for i := range res.DeadSeries {
		fmt.Fprintf(tw, "%d\t%d\t%.4f\t%d\t\n", i+1, res.DeadSeries[i], res.EnergySeries[i], res.DeliveredSeries[i])
	}
	return tw.Flush()
}

func writeComparison(out io.Writer, protocols []model.Protocol, table map[model.Protocol]core.ComparisonEntry) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Protocol\tAlive nodes\tPackets delivered")
	fmt.Fprintln(tw, strings.Repeat("-", 8)+"\t"+strings.Repeat("-", 11)+"\t"+strings.Repeat("-", 17))
	for _, p := range protocols {
		e := table[p]
		fmt.Fprintf(tw, "%s\t%d\t%d\n", p, e.AliveCount, e.DeliveredTotal)
	}
	return tw.Flush()
}
