// =================================
// File: cmd/ammd/main.go
// =================================
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/solchat-labs/amm-engine/internal/chain"
	"github.com/solchat-labs/amm-engine/internal/config"
	"github.com/solchat-labs/amm-engine/internal/engine"
	"github.com/solchat-labs/amm-engine/internal/logger"
	"github.com/solchat-labs/amm-engine/internal/token"
	"github.com/solchat-labs/amm-engine/internal/txpipe"
	"github.com/solchat-labs/amm-engine/internal/wallet"
)

const usage = `Usage: ammd [-config path] <command> [arguments]

Commands:
  swap   <from> <to> <amount> [slippage_millibps]
  add    <tokenA> <tokenB> <amountA> <amountB>
  create <tokenA> <tokenB> <amountA> <amountB>
  status <tokenA> <tokenB>
  unwrap
`

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the configuration file")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.Init(cfg.DebugLogging, cfg.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	eng, err := buildEngine(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize engine", zap.Error(err))
	}

	ctx := context.Background()
	result, err := dispatch(ctx, eng, args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		flag.Usage()
		os.Exit(2)
	}

	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(out))
	if r, ok := result.(*engine.Result); ok && !r.Success {
		os.Exit(1)
	}
}

func buildEngine(cfg *config.Config, log *zap.Logger) (*engine.Engine, error) {
	w, err := wallet.New(cfg.WalletKey)
	if err != nil {
		return nil, fmt.Errorf("wallet: %w", err)
	}
	log.Info("Wallet loaded", zap.String("address", w.Payer().String()))

	client := chain.NewRPCClient(cfg.RPCURL, log)

	tier := txpipe.TierDevnet
	if cfg.Network == config.NetworkMainnet {
		tier = txpipe.TierMainnet
	}
	var opts []txpipe.Option
	if cfg.MaxAttempts > 0 {
		opts = append(opts, txpipe.WithMaxAttempts(uint(cfg.MaxAttempts)))
	}
	pipe := txpipe.New(client, w, tier, log, opts...)

	return engine.New(engine.Params{
		Client:            client,
		Wallet:            w,
		Tokens:            token.NewRegistry(cfg.Network, log),
		Pipeline:          pipe,
		ProgramID:         cfg.ProgramID(),
		Network:           cfg.Network,
		SlippageMilliBps:  cfg.SlippageMilliBps,
		SOLReferencePrice: decimal.NewFromFloat(cfg.SOLReferencePrice),
		Logger:            log,
	}), nil
}

func dispatch(ctx context.Context, eng *engine.Engine, args []string) (interface{}, error) {
	command, rest := args[0], args[1:]
	switch command {
	case "swap":
		if len(rest) < 3 || len(rest) > 4 {
			return nil, fmt.Errorf("swap needs <from> <to> <amount> [slippage_millibps]")
		}
		amount, err := decimal.NewFromString(rest[2])
		if err != nil {
			return nil, fmt.Errorf("invalid amount %q", rest[2])
		}
		req := engine.SwapRequest{FromSymbol: rest[0], ToSymbol: rest[1], Amount: amount}
		if len(rest) == 4 {
			if _, err := fmt.Sscanf(rest[3], "%d", &req.SlippageMilliBps); err != nil {
				return nil, fmt.Errorf("invalid slippage %q", rest[3])
			}
		}
		return eng.Swap(ctx, req), nil

	case "add", "create":
		if len(rest) != 4 {
			return nil, fmt.Errorf("%s needs <tokenA> <tokenB> <amountA> <amountB>", command)
		}
		amountA, err := decimal.NewFromString(rest[2])
		if err != nil {
			return nil, fmt.Errorf("invalid amount %q", rest[2])
		}
		amountB, err := decimal.NewFromString(rest[3])
		if err != nil {
			return nil, fmt.Errorf("invalid amount %q", rest[3])
		}
		req := engine.DepositRequest{
			SymbolA: rest[0], SymbolB: rest[1],
			AmountA: amountA, AmountB: amountB,
		}
		if command == "create" {
			return eng.CreatePool(ctx, req), nil
		}
		return eng.AddLiquidity(ctx, req), nil

	case "status":
		if len(rest) != 2 {
			return nil, fmt.Errorf("status needs <tokenA> <tokenB>")
		}
		return eng.Status(ctx, rest[0], rest[1])

	case "unwrap":
		return eng.Unwrap(ctx), nil

	default:
		return nil, fmt.Errorf("unknown command %q", command)
	}
}
