package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/wnt/mychain-dash/internal/chain"
	"github.com/wnt/mychain-dash/internal/models"
	"github.com/wnt/mychain-dash/internal/msgs"
	"github.com/wnt/mychain-dash/internal/signing"
)

// errTxRejected is returned after a rejected transaction's raw log was printed
var errTxRejected = errors.New("transaction rejected by the chain")

// txPollInterval is how often a submitted transaction is looked up while waiting
var txPollInterval = time.Second

func (e *env) signer() (*signing.Key, error) {
	if e.cfg.SignerKeyHex == "" {
		return nil, chain.ErrWallet
	}
	key, err := signing.KeyFromHex(e.cfg.SignerKeyHex, e.cfg.Bech32Prefix)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", chain.ErrWallet, err)
	}
	return key, nil
}

func (e *env) fee() models.Fee {
	return models.Fee{
		Amount: models.Coins{{Denom: e.cfg.FeeDenom, Amount: e.cfg.FeeAmount}},
		Gas:    e.cfg.GasLimit,
	}
}

// submit signs and broadcasts msg built for the signer's address and prints
// the tx hash, or the raw log when CheckTx rejected it
func (e *env) submit(ctx context.Context, build func(sender string) msgs.Msg) (*models.TxResult, error) {
	key, err := e.signer()
	if err != nil {
		return nil, err
	}

	result, err := e.client.SignAndBroadcast(ctx, key, build(key.Address()), e.fee(), "")
	if err != nil {
		return nil, err
	}
	if !result.Success() {
		fmt.Fprintf(e.out, "Transaction failed (code %d): %s\n", result.Code, result.RawLog)
		return result, errTxRejected
	}

	fmt.Fprintf(e.out, "Transaction submitted: %s\n", result.TxHash)
	return result, nil
}

// waitForTx polls until hash is committed or ctx is done
func (e *env) waitForTx(ctx context.Context, hash string, timeout time.Duration) (*models.TxResult, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(txPollInterval)
	defer ticker.Stop()

	for {
		tx, err := e.client.TxByHash(ctx, hash)
		if err == nil {
			return tx, nil
		}
		var statusErr *chain.StatusError
		if !errors.As(err, &statusErr) || !statusErr.NotFound() {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("transaction %s not committed: %w", hash, ctx.Err())
		case <-ticker.C:
		}
	}
}

func runBuy(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("buy", flag.ContinueOnError)
	amount := fs.String("amount", "", "Amount to spend in base units")
	denom := fs.String("denom", "utusd", "Denom to spend")
	wait := fs.Bool("wait", true, "Wait for the transaction to be committed and print the purchase breakdown")
	timeout := fs.Duration("timeout", 30*time.Second, "How long to wait for the transaction")
	if err := fs.Parse(args); err != nil {
		return err
	}

	result, err := e.submit(ctx, func(sender string) msgs.Msg {
		return &msgs.MsgBuyMaincoin{Buyer: sender, Amount: models.Coin{Denom: *denom, Amount: *amount}}
	})
	if errors.Is(err, errTxRejected) {
		if err := printJSON(e.out, e.parser.ParsePurchase(result)); err != nil {
			return err
		}
		return errTxRejected
	}
	if err != nil {
		return err
	}

	if *wait {
		committed, err := e.waitForTx(ctx, result.TxHash, *timeout)
		if err != nil {
			return err
		}
		result = committed
	}

	parsed := e.parser.ParsePurchase(result)
	if err := printJSON(e.out, parsed); err != nil {
		return err
	}
	if !parsed.Success {
		return errTxRejected
	}
	return nil
}

func runSell(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("sell", flag.ContinueOnError)
	amount := fs.String("amount", "", "MainCoin amount to sell in base units")
	denom := fs.String("denom", "umc", "Denom to sell")
	if err := fs.Parse(args); err != nil {
		return err
	}

	_, err := e.submit(ctx, func(sender string) msgs.Msg {
		return &msgs.MsgSellMaincoin{Seller: sender, Amount: models.Coin{Denom: *denom, Amount: *amount}}
	})
	return err
}

func runCreateOrder(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("create-order", flag.ContinueOnError)
	pair := fs.Uint64("pair", 1, "Trading pair id")
	side := fs.String("side", "buy", "Order side: buy or sell")
	price := fs.String("price", "", "Price per unit in base units of the quote denom")
	priceDenom := fs.String("price-denom", "utusd", "Quote denom")
	amount := fs.String("amount", "", "Order amount in base units")
	amountDenom := fs.String("amount-denom", "umc", "Base denom")
	if err := fs.Parse(args); err != nil {
		return err
	}

	isBuy, err := parseSide(*side)
	if err != nil {
		return err
	}

	_, err = e.submit(ctx, func(sender string) msgs.Msg {
		return &msgs.MsgCreateOrder{
			Maker:  sender,
			PairID: *pair,
			Price:  models.Coin{Denom: *priceDenom, Amount: *price},
			Amount: models.Coin{Denom: *amountDenom, Amount: *amount},
			IsBuy:  isBuy,
		}
	})
	return err
}

func runCancelOrder(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("cancel-order", flag.ContinueOnError)
	id := fs.Uint64("id", 0, "Order id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	_, err := e.submit(ctx, func(sender string) msgs.Msg {
		return &msgs.MsgCancelOrder{Maker: sender, OrderID: *id}
	})
	return err
}

func runClaimRewards(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("claim-rewards", flag.ContinueOnError)
	amount := fs.String("amount", "", "Amount to claim, everything when empty")
	if err := fs.Parse(args); err != nil {
		return err
	}

	_, err := e.submit(ctx, func(sender string) msgs.Msg {
		return &msgs.MsgClaimRewards{User: sender, Amount: *amount}
	})
	return err
}

func runClaimOrderRewards(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("claim-order-rewards", flag.ContinueOnError)
	ids := fs.String("ids", "", "Comma separated order ids")
	if err := fs.Parse(args); err != nil {
		return err
	}

	orderIDs, err := parseIDs(*ids)
	if err != nil {
		return err
	}

	_, err = e.submit(ctx, func(sender string) msgs.Msg {
		return &msgs.MsgClaimOrderRewards{User: sender, OrderIDs: orderIDs}
	})
	return err
}

func parseSide(side string) (bool, error) {
	switch strings.ToLower(side) {
	case "buy":
		return true, nil
	case "sell":
		return false, nil
	}
	return false, fmt.Errorf("invalid side %q: must be buy or sell", side)
}

func parseIDs(s string) ([]uint64, error) {
	var ids []uint64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid order id %q", part)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, errors.New("at least one order id is required")
	}
	return ids, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
