package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"foundation/internal/adapter/repo"
	"foundation/internal/catalog"
	"foundation/internal/domain"
	"foundation/internal/donation"
	"foundation/internal/infra"
	"foundation/internal/units"
	"foundation/internal/wallet"
)

const usage = `usage: donate <command> [flags]

commands:
  send            donate a catalog tier from the key in DONOR_PRIVATE_KEY
  quote           print the transfer for a tier without signing
  intents         list recent bank-transfer intents
  mark-received   mark a bank-transfer intent as received
`

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "send":
		err = runSend(ctx, os.Args[2:])
	case "quote":
		err = runQuote(os.Args[2:])
	case "intents":
		err = runIntents(ctx, os.Args[2:])
	case "mark-received":
		err = runMarkReceived(ctx, os.Args[2:])
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "donate %s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

type selection struct {
	method string
	chain  string
	tier   int
}

func selectionFlags(fs *flag.FlagSet) *selection {
	s := &selection{}
	fs.StringVar(&s.method, "method", "ETH", "payment method (ETH, USDC, USDT, DAI)")
	fs.StringVar(&s.chain, "chain", "", "chain name; defaults to the first chain carrying the method")
	fs.IntVar(&s.tier, "tier", 0, "tier index (0 supporter, 1 sponsor, 2 premium)")
	return s
}

func (s *selection) resolve(cat *catalog.Catalog) (catalog.PaymentMethod, catalog.Chain, error) {
	method, err := cat.ParsePaymentMethod(s.method)
	if err != nil {
		return "", "", err
	}
	if s.chain == "" {
		return method, cat.AvailableChains(method)[0], nil
	}
	chain, err := cat.ParseChain(s.chain)
	return method, chain, err
}

func runQuote(args []string) error {
	fs := flag.NewFlagSet("quote", flag.ExitOnError)
	sel := selectionFlags(fs)
	_ = fs.Parse(args)

	cfg, err := infra.LoadDonorConfig()
	if err != nil {
		return err
	}
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return err
	}
	method, chain, err := sel.resolve(cat)
	if err != nil {
		return err
	}
	t, err := donation.BuildTransfer(cat, method, chain, sel.tier, cfg.DonationAddress)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "amount\t%s\n", cat.FormatAmount(method, t.Amount, cfg.DefaultLocale))
	fmt.Fprintf(w, "chain\t%s (%d)\n", t.Chain, t.ChainID)
	fmt.Fprintf(w, "base units\t%s\n", t.BaseUnits)
	fmt.Fprintf(w, "to\t%s\n", t.To.Hex())
	fmt.Fprintf(w, "value\t%s\n", units.ToHex(t.Value))
	if t.Data != "" {
		fmt.Fprintf(w, "data\t%s\n", t.Data)
	}
	fmt.Fprintf(w, "gas limit\t%d\n", t.GasLimit)
	fmt.Fprintf(w, "eth equivalent\t%g\n", cat.ConvertMethodAmountToEth(t.Amount, method))
	return w.Flush()
}

func runSend(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	sel := selectionFlags(fs)
	timeout := fs.Duration("timeout", 10*time.Minute, "give up waiting for the receipt after this long")
	skipEstimate := fs.Bool("skip-estimate", false, "submit without simulating the transfer first")
	_ = fs.Parse(args)

	cfg, err := infra.LoadDonorConfig()
	if err != nil {
		return err
	}
	if cfg.PrivateKey == "" {
		return errors.New("DONOR_PRIVATE_KEY is required")
	}
	key, err := crypto.HexToECDSA(cfg.PrivateKey)
	if err != nil {
		return fmt.Errorf("parse DONOR_PRIVATE_KEY: %w", err)
	}
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return err
	}
	method, chain, err := sel.resolve(cat)
	if err != nil {
		return err
	}
	if m, _ := cat.Method(method); !m.IsCrypto() {
		return fmt.Errorf("%s is paid by bank transfer; use the website", method)
	}

	logger := infra.NewLogger("cli").With().Str("cmd", "donate").Logger()

	endpoints := make(map[int64]string, len(cfg.RPCURLs))
	for name, u := range cfg.RPCURLs {
		if id, ok := cat.ChainID(catalog.Chain(name)); ok {
			endpoints[id] = u
		}
	}
	initial, _ := cat.ChainID(chain)
	if _, ok := endpoints[initial]; !ok {
		return fmt.Errorf("no RPC_URL_%s configured", strings.ToUpper(string(chain)))
	}

	w, err := wallet.New(wallet.Options{
		PrivateKey:     key,
		Endpoints:      endpoints,
		InitialChainID: initial,
		PollInterval:   cfg.ReceiptPollInterval,
		Logger:         &logger,
	})
	if err != nil {
		return err
	}
	defer w.Disconnect(context.Background())

	opts := donation.Options{
		Catalog:         cat,
		Wallet:          w,
		Recipient:       cfg.DonationAddress,
		ConfirmationURL: cfg.ConfirmationURL,
		Locale:          cfg.DefaultLocale,
		Logger:          &logger,
		OnTransition: func(t donation.Transition) {
			fmt.Fprintf(os.Stderr, "  %s -> %s\n", t.From, t.To)
		},
	}
	if !*skipEstimate {
		opts.Estimator = w
	}
	orch, err := donation.NewOrchestrator(opts)
	if err != nil {
		return err
	}
	if err := orch.SelectMethod(ctx, method); err != nil {
		return err
	}
	if err := orch.SelectTier(sel.tier); err != nil {
		return err
	}
	if err := orch.ConnectWallet(ctx); err != nil {
		return err
	}
	if err := orch.SelectChain(ctx, chain); err != nil {
		return err
	}
	if !orch.CanDonate() {
		snap := orch.Snapshot()
		return fmt.Errorf("cannot donate in state %s: %s", snap.State, snap.Status.Message)
	}

	sendCtx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()
	res, err := orch.Donate(sendCtx)
	if err != nil {
		if donation.KindOf(err) == donation.KindRejected {
			return errors.New("request rejected")
		}
		return err
	}
	fmt.Printf("donated %s from %s\n", res.Confirmation.DisplayAmount, w.Address().Hex())
	fmt.Printf("tx      %s\n", res.TxHash.Hex())
	fmt.Printf("confirm %s\n", res.RedirectURL)
	return nil
}

func openIntents(ctx context.Context) (*repo.DonationIntentRepositoryPG, func(), error) {
	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		return nil, nil, errors.New("DATABASE_URL is required")
	}
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, nil, fmt.Errorf("create pool: %w", err)
	}
	logger := infra.NewLogger("cli").With().Str("cmd", "donate").Logger()
	return repo.NewDonationIntentRepository(infra.NewSQLRunner(pool, logger)), pool.Close, nil
}

func runIntents(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("intents", flag.ExitOnError)
	limit := fs.Int("limit", 20, "number of intents to show")
	_ = fs.Parse(args)

	intents, closeFn, err := openIntents(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	items, err := intents.ListRecent(ctx, *limit)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMETHOD\tAMOUNT\tLOCALE\tSTATUS\tCREATED")
	for _, it := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", it.ID, it.Method, it.DisplayAmount, it.Locale, it.Status, it.CreatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

func runMarkReceived(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("mark-received", flag.ExitOnError)
	id := fs.String("id", "", "intent id")
	_ = fs.Parse(args)
	if strings.TrimSpace(*id) == "" {
		return errors.New("-id is required")
	}

	intents, closeFn, err := openIntents(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := intents.MarkReceived(ctx, strings.TrimSpace(*id)); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("no pending intent %s", *id)
		}
		return err
	}
	fmt.Printf("intent %s marked received\n", *id)
	return nil
}
