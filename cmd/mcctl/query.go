package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/wnt/mychain-dash/internal/database"
	"github.com/wnt/mychain-dash/internal/emitters"
	"github.com/wnt/mychain-dash/internal/portfolio"
	"github.com/wnt/mychain-dash/internal/scraper"
	"github.com/wnt/mychain-dash/internal/signing"
)

func runParse(_ context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("parse", flag.ContinueOnError)
	file := fs.String("file", "", "File holding the transaction response, stdin when empty")
	format := fs.String("format", "raw", "Input format: raw (chain tx response) or terminal (CLI summary)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var raw []byte
	var err error
	if *file == "" {
		raw, err = io.ReadAll(e.in)
	} else {
		raw, err = os.ReadFile(*file)
	}
	if err != nil {
		return fmt.Errorf("read transaction response: %w", err)
	}

	switch *format {
	case "raw":
		return printJSON(e.out, e.parser.ParseRaw(raw))
	case "terminal":
		return printJSON(e.out, e.parser.ParseTerminalResponse(raw))
	}
	return fmt.Errorf("invalid format %q: must be raw or terminal", *format)
}

// addressArg returns the first positional argument or the signer's address
func (e *env) addressArg(args []string) (string, error) {
	if len(args) > 0 {
		addr := args[0]
		if err := signing.ValidateAddress(addr, e.cfg.Bech32Prefix); err != nil {
			return "", err
		}
		return addr, nil
	}
	key, err := e.signer()
	if err != nil {
		return "", fmt.Errorf("no address given: %w", err)
	}
	return key.Address(), nil
}

func runHistory(ctx context.Context, e *env, args []string) error {
	address, err := e.addressArg(args)
	if err != nil {
		return err
	}

	history, err := e.client.UserHistory(ctx, address)
	if err != nil {
		return err
	}

	summary, err := portfolio.SummarizeHistory(address, history.Purchases)
	if err != nil {
		return err
	}

	fmt.Fprintf(e.out, "Address:        %s\n", summary.Address)
	fmt.Fprintf(e.out, "Purchases:      %d\n", len(summary.Purchases))
	fmt.Fprintf(e.out, "Tokens bought:  %s MC\n", portfolio.FormatMicro(summary.TotalTokensBought, 6))
	fmt.Fprintf(e.out, "Total spent:    %s TUSD\n", portfolio.FormatMicro(summary.TotalSpent, 6))
	fmt.Fprintf(e.out, "Average price:  %s\n", portfolio.AveragePrice(summary).StringFixed(8))

	for _, p := range summary.Purchases {
		fmt.Fprintf(e.out, "  #%-4d %s  bought %s  cost %s  %s\n",
			p.SegmentNumber,
			portfolio.TruncateAddress(p.TxHash, 8, 6),
			portfolio.FormatMicro(p.TokensBought, 6),
			portfolio.FormatMicro(p.Cost, 6),
			p.Timestamp,
		)
	}
	return nil
}

func runBackfill(ctx context.Context, e *env, args []string) error {
	if !e.cfg.DatabaseEnabled() {
		return errors.New("backfill needs the purchase journal: set DB_HOST and DB_NAME")
	}

	address, err := e.addressArg(args)
	if err != nil {
		return err
	}

	db, err := database.Connect(e.cfg.DSN())
	if err != nil {
		return err
	}

	emitter := emitters.New(e.cfg.KafkaBroker, e.cfg.KafkaTopic, e.logger)
	defer emitter.Close()

	s, err := scraper.NewScraper(e.client, e.parser, database.NewJournal(db), emitter, e.logger)
	if err != nil {
		return err
	}

	summary, err := s.Run(ctx, address)
	if err != nil {
		return err
	}
	return printJSON(e.out, summary)
}
