package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/statewire/walletcore/pkg/log"
	"github.com/statewire/walletcore/pkg/sign"
	"github.com/statewire/walletcore/pkg/transport"
	"github.com/statewire/walletcore/pkg/wire"
	"github.com/statewire/walletcore/provider/channelnet"
	"github.com/statewire/walletcore/provider/geth"
	"github.com/statewire/walletcore/wallet"
)

const usage = `walletctl - wallet operations against a chain node and an off-chain payment network

Usage:
  walletctl key add <name> <private-key-hex>
  walletctl key list
  walletctl key delete <name>
  walletctl endpoint add <url> <chain-id>
  walletctl endpoint list
  walletctl balance <token-address> [owner-address]
  walletctl send <to-address> <amount-wei>
  walletctl sign <message>
  walletctl history <address>
  walletctl pay <recipient-address> <amount-wei> [token-address]
`

// operationTimeout bounds every single wallet operation end to end.
const operationTimeout = 90 * time.Second

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		fmt.Print(usage)
		os.Exit(2)
	}

	conf, lg, store := bootstrap()

	var err error
	switch args[0] {
	case "key":
		err = runKey(store, args[1:])
	case "endpoint":
		err = runEndpoint(store, args[1:])
	case "balance", "send", "sign", "history", "pay":
		err = runWalletCommand(conf, lg, store, args)
	default:
		fmt.Print(usage)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func bootstrap() (*Config, log.Logger, *Store) {
	rootLg := log.NewZapLogger(log.Config{Level: log.LevelWarn}).Named("walletctl")

	conf, err := LoadConfig(rootLg)
	if err != nil {
		rootLg.Fatal("failed to load configuration", "error", err)
	}
	lg := log.NewZapLogger(conf.Log).Named("walletctl")

	store, err := OpenStore(conf.DBPath)
	if err != nil {
		lg.Fatal("failed to open local store", "error", err)
	}

	return conf, lg, store
}

func runKey(store *Store, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: walletctl key <add|list|delete>")
	}

	switch args[0] {
	case "add":
		if len(args) != 3 {
			return fmt.Errorf("usage: walletctl key add <name> <private-key-hex>")
		}
		dto, err := store.AddKey(args[1], args[2])
		if err != nil {
			return err
		}
		fmt.Printf("Stored key %q with address %s\n", dto.Name, dto.Address)
		return nil

	case "list":
		keys, err := store.ListKeys()
		if err != nil {
			return err
		}
		if len(keys) == 0 {
			fmt.Println("No keys stored.")
			return nil
		}
		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Name", "Address"})
		t.AppendSeparator()
		for _, key := range keys {
			t.AppendRow(table.Row{key.Name, key.Address})
		}
		t.Render()
		return nil

	case "delete":
		if len(args) != 2 {
			return fmt.Errorf("usage: walletctl key delete <name>")
		}
		return store.DeleteKey(args[1])

	default:
		return fmt.Errorf("unknown key subcommand %q", args[0])
	}
}

func runEndpoint(store *Store, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: walletctl endpoint <add|list>")
	}

	switch args[0] {
	case "add":
		if len(args) != 3 {
			return fmt.Errorf("usage: walletctl endpoint add <url> <chain-id>")
		}
		var chainID uint64
		if _, err := fmt.Sscanf(args[2], "%d", &chainID); err != nil || chainID == 0 {
			return fmt.Errorf("invalid chain id %q", args[2])
		}
		if err := store.AddEndpoint(args[1], chainID); err != nil {
			return err
		}
		fmt.Printf("Stored endpoint %s for chain %d\n", args[1], chainID)
		return nil

	case "list":
		endpoints, err := store.ListEndpoints()
		if err != nil {
			return err
		}
		if len(endpoints) == 0 {
			fmt.Println("No endpoints stored.")
			return nil
		}
		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Chain", "URL", "Last Used"})
		t.AppendSeparator()
		for _, ep := range endpoints {
			t.AppendRow(table.Row{ep.ChainID, ep.URL, ep.LastUsedAt.Format(time.RFC3339)})
		}
		t.SetColumnConfigs([]table.ColumnConfig{{Number: 1, AutoMerge: true}})
		t.Render()
		return nil

	default:
		return fmt.Errorf("unknown endpoint subcommand %q", args[0])
	}
}

// runWalletCommand connects the wallet, executes one operation and waits
// for its settlement event.
func runWalletCommand(conf *Config, lg log.Logger, store *Store, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	client, ownerAddress, err := buildClient(ctx, conf, lg, store, args[0] == "pay")
	if err != nil {
		return err
	}
	client.Start(ctx)

	failed := make(chan error, 1)
	client.HandleOperationFailed(func(_ context.Context, opErr *wallet.OpError) {
		failed <- opErr
	})
	client.HandleOffchainError(func(_ context.Context, opErr *wallet.OpError) {
		failed <- opErr
	})

	if err := connectWallet(ctx, client, failed); err != nil {
		return err
	}

	switch args[0] {
	case "balance":
		return cmdBalance(ctx, client, ownerAddress, args[1:], failed)
	case "send":
		return cmdSend(ctx, client, args[1:], failed)
	case "sign":
		return cmdSign(ctx, client, args[1:], failed)
	case "history":
		return cmdHistory(ctx, client, args[1:], failed)
	case "pay":
		return cmdPay(ctx, client, args[1:], failed)
	}
	return fmt.Errorf("unknown command %q", args[0])
}

func buildClient(ctx context.Context, conf *Config, lg log.Logger, store *Store, needChannels bool) (*wallet.Client, string, error) {
	privateKeyHex := conf.PrivateKeyHex
	if privateKeyHex == "" {
		key, err := store.GetKeyByName(conf.KeyName)
		if err != nil {
			return nil, "", err
		}
		privateKeyHex = key.PrivateKey
	}
	signer, err := sign.NewEthereumSigner(privateKeyHex)
	if err != nil {
		return nil, "", fmt.Errorf("invalid private key: %w", err)
	}

	rpcURL := conf.ChainRPCURL
	if rpcURL == "" {
		endpoint, err := store.PickEndpoint()
		if err != nil {
			return nil, "", err
		}
		rpcURL = endpoint.URL
	}
	if err := store.TouchEndpoint(rpcURL); err != nil {
		lg.Warn("failed to record endpoint usage", "error", err)
	}

	chain, err := geth.DialProvider(ctx, geth.DefaultConfig, rpcURL, signer, lg)
	if err != nil {
		return nil, "", fmt.Errorf("failed to dial chain node: %w", err)
	}

	var channels *channelnet.Client
	if needChannels {
		if conf.ChannelURL == "" {
			return nil, "", fmt.Errorf("WALLETCTL_CHANNEL_URL is required for off-chain commands")
		}
		channels = channelnet.NewClient(transport.NewWSDialer(transport.DefaultWSDialerConfig), signer)
		if err := channels.Start(ctx, conf.ChannelURL, func(err error) {
			if err != nil {
				lg.Error("off-chain connection closed", "error", err)
			}
		}); err != nil {
			return nil, "", fmt.Errorf("failed to connect to the off-chain network: %w", err)
		}
	}

	cfg := wallet.ClientConfig{Chain: chain, Logger: lg}
	if channels != nil {
		cfg.Channels = channels
	}
	return wallet.NewClient(cfg), signer.Address(), nil
}

func connectWallet(ctx context.Context, client *wallet.Client, failed chan error) error {
	connected := make(chan struct{})
	client.HandleWalletConnected(func(_ context.Context, address string, chainID uint64) {
		fmt.Printf("Connected as %s on chain %d\n", wallet.ShortenAddress(address), chainID)
		close(connected)
	})

	client.ConnectWallet(ctx)
	select {
	case <-connected:
		return nil
	case err := <-failed:
		return err
	case <-ctx.Done():
		return fmt.Errorf("timed out connecting the wallet")
	}
}

func cmdBalance(ctx context.Context, client *wallet.Client, owner string, args []string, failed chan error) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: walletctl balance <token-address> [owner-address]")
	}
	token := args[0]
	if len(args) > 1 {
		owner = args[1]
	}

	done := make(chan struct{})
	client.HandleContractReadResult(func(_ context.Context, result wire.Params, callID string) {
		raw := result.StringOr("result", "0")
		display, err := wallet.WeiToDisplay(raw, wallet.DefaultDecimals)
		if err != nil {
			display = raw
		}
		fmt.Printf("Balance of %s: %s (%s wei)\n", wallet.ShortenAddress(owner), display, raw)
		close(done)
	})

	if opErr := client.CallContract(ctx, wallet.BalanceOfRequest(token, owner, "balance")); opErr != nil {
		return opErr
	}
	return wait(ctx, done, failed)
}

func cmdSend(ctx context.Context, client *wallet.Client, args []string, failed chan error) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: walletctl send <to-address> <amount-wei>")
	}

	done := make(chan struct{})
	client.HandleTransactionSubmitted(func(_ context.Context, hash string) {
		fmt.Printf("Submitted: %s\n", hash)
	})
	client.HandleTransactionReceipt(func(_ context.Context, receipt wire.Params) {
		fmt.Printf("Mined in block %d: %s\n",
			receipt.Uint64Or("blockNumber", 0), receipt.StringOr("hash", ""))
		close(done)
	})
	client.HandleTransactionFailed(func(_ context.Context, hash, message string) {
		failed <- fmt.Errorf("transaction %s failed: %s", hash, message)
	})

	if opErr := client.SendNativeToken(ctx, args[0], args[1]); opErr != nil {
		return opErr
	}
	return wait(ctx, done, failed)
}

func cmdSign(ctx context.Context, client *wallet.Client, args []string, failed chan error) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: walletctl sign <message>")
	}

	done := make(chan struct{})
	client.HandleSignatureResult(func(_ context.Context, signature, originalData string) {
		fmt.Printf("Message:   %s\nSignature: %s\n", originalData, signature)
		close(done)
	})

	if opErr := client.SignPersonalMessage(ctx, args[0]); opErr != nil {
		return opErr
	}
	return wait(ctx, done, failed)
}

func cmdHistory(ctx context.Context, client *wallet.Client, args []string, failed chan error) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: walletctl history <address>")
	}

	done := make(chan struct{})
	client.HandleHistoryReceived(func(_ context.Context, transactions []wallet.TransactionRecord) {
		defer close(done)
		if len(transactions) == 0 {
			fmt.Println("No transactions found.")
			return
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Hash", "From", "To", "Value", "Block", "Status"})
		t.AppendSeparator()
		for _, tx := range transactions {
			t.AppendRow(table.Row{
				tx.Hash,
				wallet.ShortenAddress(tx.From),
				wallet.ShortenAddress(tx.To),
				tx.Value,
				tx.BlockNumber,
				tx.Status,
			})
		}
		t.Render()
	})

	if opErr := client.GetTransactionHistory(ctx, args[0]); opErr != nil {
		return opErr
	}
	return wait(ctx, done, failed)
}

func cmdPay(ctx context.Context, client *wallet.Client, args []string, failed chan error) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: walletctl pay <recipient-address> <amount-wei> [token-address]")
	}
	token := ""
	if len(args) > 2 {
		token = args[2]
	}

	done := make(chan struct{})
	client.HandlePaymentSent(func(_ context.Context, paymentID string, _ wire.Params) {
		fmt.Printf("Payment sent: %s\n", paymentID)
		close(done)
	})

	if opErr := client.SendPayment(ctx, args[0], args[1], token); opErr != nil {
		return opErr
	}
	return wait(ctx, done, failed)
}

func wait(ctx context.Context, done chan struct{}, failed chan error) error {
	select {
	case <-done:
		return nil
	case err := <-failed:
		return err
	case <-ctx.Done():
		return fmt.Errorf("timed out waiting for the operation to settle")
	}
}
