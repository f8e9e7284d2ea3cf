// Command mcctl submits mychain transactions and inspects purchase results
// from the terminal.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/wnt/mychain-dash/internal/chain"
	"github.com/wnt/mychain-dash/internal/config"
	"github.com/wnt/mychain-dash/internal/logger"
	"github.com/wnt/mychain-dash/internal/parser"
)

// env is shared by every subcommand
type env struct {
	cfg    config.Config
	logger zerolog.Logger
	client *chain.Client
	parser *parser.Parser
	in     io.Reader
	out    io.Writer
}

type command struct {
	usage string
	run   func(ctx context.Context, e *env, args []string) error
}

var commands = map[string]command{
	"buy":                 {"buy -amount <utusd> [-denom utusd] [-wait]", runBuy},
	"sell":                {"sell -amount <umc> [-denom umc]", runSell},
	"create-order":        {"create-order -pair <id> -side buy|sell -price <amount> -amount <umc>", runCreateOrder},
	"cancel-order":        {"cancel-order -id <order id>", runCancelOrder},
	"claim-rewards":       {"claim-rewards [-amount <ulc>]", runClaimRewards},
	"claim-order-rewards": {"claim-order-rewards -ids <id,id,...>", runClaimOrderRewards},
	"parse":               {"parse [-file path] [-format raw|terminal]", runParse},
	"history":             {"history [address]", runHistory},
	"backfill":            {"backfill [address]", runBackfill},
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: mcctl [-envFile .env] <command> [flags]")
	fmt.Fprintln(os.Stderr, "Commands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %s\n", commands[name].usage)
	}
}

func main() {
	envFile := flag.String("envFile", ".env", "Path to .env file")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}
	cmd, ok := commands[flag.Arg(0)]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n", flag.Arg(0))
		usage()
		os.Exit(2)
	}

	if err := godotenv.Load(*envFile); err != nil {
		log.Printf("No .env file found at %s, using environment variables", *envFile)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logr := logger.New(cfg.LogLevel, "mcctl")
	pool := chain.NewPool(cfg.RESTEndpoints, chain.PoolOptions{
		Timeout:   cfg.HTTPTimeout,
		RateLimit: cfg.RateLimit,
		Burst:     chain.DefaultPoolOptions().Burst,
		Cooldown:  chain.DefaultPoolOptions().Cooldown,
	}, logr)

	e := &env{
		cfg:    cfg,
		logger: logr,
		client: chain.NewClient(pool, cfg.ChainID, logr),
		parser: parser.New(logr),
		in:     os.Stdin,
		out:    os.Stdout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.run(ctx, e, flag.Args()[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
