package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"x402mint"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	homeDir, _ = os.UserHomeDir()
	configDir  = filepath.Join(homeDir, ".x402mint")
	dbpath     = filepath.Join(configDir, "settlements.db")
	keypath    = filepath.Join(configDir, "keypair.json")
	rpcURL     = x402mint.DevnetRPC
	tokenFlag  = "usdc"
	priceFlag  = ""
	keyFlag    = ""

	log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
)

func main() {
	root := &cobra.Command{
		Use:   "x402mint",
		Short: "settle verified USD payments into on-chain token transfers",
	}

	root.PersistentFlags().StringVar(&rpcURL, "rpc", x402mint.DevnetRPC, "Solana RPC URL")
	root.PersistentFlags().StringVar(&tokenFlag, "token", "usdc", "token to settle in: usdc, usdt, btc, ltc")

	root.AddCommand(initCmd())
	root.AddCommand(recoverCmd())
	root.AddCommand(settleCmd())
	root.AddCommand(swapCmd())
	root.AddCommand(ledgerCmd())
	root.AddCommand(balanceCmd())
	root.AddCommand(tokensCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "create treasury wallet",
		Run: func(cmd *cobra.Command, args []string) {
			if _, err := os.Stat(keypath); err == nil {
				fmt.Println("wallet exists")
				return
			}

			mnemonic, wallet, err := x402mint.GenerateWallet()
			if err != nil {
				die(err)
			}

			fmt.Println("keypair generated")
			fmt.Printf("pubkey: %s\n\n", wallet.Pubkey)
			fmt.Println("save your seed phrase:")
			fmt.Println(mnemonic)
			fmt.Println("")

			pwd := readpwd("password: ")
			if err := x402mint.SaveWallet(keypath, wallet.Secret, pwd); err != nil {
				die(err)
			}

			store, err := x402mint.OpenStore(dbpath)
			if err != nil {
				die(err)
			}
			store.Close()

			fmt.Printf("saved: %s\n", keypath)
		},
	}
}

func recoverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recover",
		Short: "restore treasury wallet from mnemonic",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Print("mnemonic: ")
			reader := bufio.NewReader(os.Stdin)
			mnemonic, _ := reader.ReadString('\n')
			mnemonic = strings.TrimSpace(mnemonic)

			wallet, err := x402mint.RecoverWallet(mnemonic)
			if err != nil {
				die(err)
			}

			fmt.Printf("pubkey: %s\n", wallet.Pubkey)

			pwd := readpwd("password: ")
			if err := x402mint.SaveWallet(keypath, wallet.Secret, pwd); err != nil {
				die(err)
			}

			fmt.Println("wallet recovered")
		},
	}
}

func settleCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "settle <payer> <usd>",
		Short: "settle a verified USD payment into a token transfer",
		Long:  "Payer is the already-verified buyer address from the payment proof.\nExample: x402mint settle 7xKX...gAsU 10.00",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			payer, err := solana.PublicKeyFromBase58(args[0])
			if err != nil {
				die(fmt.Errorf("invalid payer: %w", err))
			}
			usd, err := decimal.NewFromString(args[1])
			if err != nil {
				die(fmt.Errorf("invalid usd amount: %w", err))
			}

			t, ok := x402mint.GetToken(tokenFlag)
			if !ok {
				die(fmt.Errorf("token not supported: %s (use: usdc, usdt, btc, ltc)", tokenFlag))
			}

			price := x402mint.PriceFor(t)
			if priceFlag != "" {
				override, err := decimal.NewFromString(priceFlag)
				if err != nil {
					die(fmt.Errorf("invalid price: %w", err))
				}
				price = x402mint.StaticPrice(override)
			}

			pwd := readpwd("password: ")
			signer, err := x402mint.LoadSigner(keypath, pwd)
			if err != nil {
				die(err)
			}

			store, err := x402mint.OpenStore(dbpath)
			if err != nil {
				die(err)
			}
			defer store.Close()

			client := rpc.New(rpcURL)
			engine := x402mint.NewEngine(client, signer, log)
			settler := x402mint.NewSettler(client, engine, price, store, t, log)

			fmt.Printf("settling: %s USD in %s\n", usd, t.Symbol)
			fmt.Printf("payer: %s\n", payer.String()[:12]+"...")
			fmt.Printf("rpc: %s\n\n", rpcURL)

			result, err := settler.Settle(context.Background(), x402mint.PaymentIntent{
				Key:   keyFlag,
				Payer: payer,
				USD:   usd,
			})
			if err != nil {
				die(err)
			}

			fmt.Printf("tx: %s\n", result.Signature.String()[:16]+"...")
			fmt.Printf("%s %s → %s (slot %d)\n",
				x402mint.FmtAmount(result.Amount, t.Decimals), t.Symbol, args[0], result.Slot)
			if result.Created {
				fmt.Println("destination account created")
			}
		},
	}
	c.Flags().StringVar(&priceFlag, "price", "", "override USD price per token")
	c.Flags().StringVar(&keyFlag, "key", "", "idempotency key (derived when empty)")
	return c
}

func swapCmd() *cobra.Command {
	var slippageBps int
	c := &cobra.Command{
		Use:   "swap <from> <to> <amount>",
		Short: "swap treasury holdings via Jupiter",
		Long:  "Example: x402mint swap usdc btc 25.00",
		Args:  cobra.ExactArgs(3),
		Run: func(cmd *cobra.Command, args []string) {
			from, ok := x402mint.GetToken(strings.ToLower(args[0]))
			if !ok {
				die(fmt.Errorf("token not supported: %s", args[0]))
			}
			to, ok := x402mint.GetToken(strings.ToLower(args[1]))
			if !ok {
				die(fmt.Errorf("token not supported: %s", args[1]))
			}
			amount, err := x402mint.ParseAmount(args[2], from.Decimals)
			if err != nil {
				die(err)
			}

			pwd := readpwd("password: ")
			signer, err := x402mint.LoadSigner(keypath, pwd)
			if err != nil {
				die(err)
			}

			client := rpc.New(rpcURL)
			engine := x402mint.NewEngine(client, signer, log)
			jup := x402mint.NewJupiter()

			ctx := context.Background()
			quote, err := jup.Quote(ctx, from.Mint, to.Mint, amount, slippageBps)
			if err != nil {
				die(err)
			}
			fmt.Printf("quote: %s %s → %s %s (impact %s%%)\n",
				args[2], from.Symbol, quote.OutAmount, to.Symbol, quote.PriceImpactPct)

			sig, slot, err := x402mint.ExecuteSwap(ctx, jup, engine, quote)
			if err != nil {
				die(err)
			}

			fmt.Printf("tx: %s (slot %d)\n", sig.String()[:16]+"...", slot)
		},
	}
	c.Flags().IntVar(&slippageBps, "slippage", 50, "slippage tolerance in basis points")
	return c
}

func ledgerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ledger",
		Short: "list settlements",
		Run: func(cmd *cobra.Command, args []string) {
			store, err := x402mint.OpenStore(dbpath)
			if err != nil {
				die(err)
			}
			defer store.Close()

			records, err := store.ListRecords(20)
			if err != nil {
				die(err)
			}

			if len(records) == 0 {
				fmt.Println("no settlements")
				return
			}

			fmt.Printf("%-10s | %-12s | %10s | %-6s | %s\n", "ID", "PAYER", "USD", "STATUS", "SIG")
			fmt.Println(strings.Repeat("-", 65))
			for _, r := range records {
				sig := r.Signature
				if len(sig) > 16 {
					sig = sig[:16] + "..."
				}
				fmt.Printf("%-10s | %-12s | %10s | %-6s | %s\n",
					r.ID[:8], r.Payer[:12], r.USD, r.Status, sig)
			}
		},
	}
}

func balanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "check treasury balances",
		Run: func(cmd *cobra.Command, args []string) {
			pwd := readpwd("password: ")
			signer, err := x402mint.LoadSigner(keypath, pwd)
			if err != nil {
				die(err)
			}

			pubkey := signer.Pubkey()
			fmt.Printf("pubkey: %s\n", pubkey.String())
			fmt.Printf("rpc: %s\n\n", rpcURL)

			client := rpc.New(rpcURL)
			ctx := context.Background()

			for _, info := range x402mint.Tokens {
				bal, err := x402mint.TokenBalance(ctx, client, pubkey, info)
				if err != nil {
					fmt.Printf("%s: (no account)\n", info.Symbol)
				} else {
					fmt.Printf("%s: %s\n", info.Symbol, x402mint.FmtAmount(bal, info.Decimals))
				}
			}

			sol, err := x402mint.SolBalance(ctx, client, pubkey)
			if err != nil {
				fmt.Printf("SOL: (error)\n")
			} else {
				fmt.Printf("SOL: %.6f\n", float64(sol)/1e9)
			}
		},
	}
}

func tokensCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tokens",
		Short: "list supported tokens",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%-6s | %-6s | %s\n", "KEY", "SYMBOL", "MINT")
			fmt.Println(strings.Repeat("-", 60))
			for key, info := range x402mint.Tokens {
				fmt.Printf("%-6s | %-6s | %s\n", key, info.Symbol, info.Mint[:16]+"...")
			}
		},
	}
}

func die(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

func readpwd(prompt string) []byte {
	fmt.Print(prompt)
	pwd, _ := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	return pwd
}
