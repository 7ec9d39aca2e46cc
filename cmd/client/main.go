package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/DanielPopoola/multibank-gateway/internal/client"
	"github.com/DanielPopoola/multibank-gateway/internal/config"
)

const menu = `
--- Payment Client ---
1. Connect to gateway
2. Authenticate
3. Check balance
4. Make payment
5. Idempotency test (re-send with a fixed payment id)
6. List pending payments
7. Retry pending payments
8. Transaction history
9. Disconnect
0. Exit
`

func main() {
	logFile, err := os.OpenFile("client.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintln(os.Stderr, "opening log file:", err)
		os.Exit(1)
	}
	defer logFile.Close()
	logger := slog.New(slog.NewJSONHandler(logFile, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadClientConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "loading config:", err)
		os.Exit(1)
	}

	c, err := client.New(cfg, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "creating client:", err)
		os.Exit(1)
	}
	defer c.Close()

	fmt.Println("client id:", c.ClientID())
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print(menu, "> ")
		if !scanner.Scan() {
			return
		}

		switch strings.TrimSpace(scanner.Text()) {
		case "1":
			if err := c.Connect(); err != nil {
				fmt.Println("connect failed:", err)
				continue
			}
			c.StartMonitor()
			fmt.Println("connected")
		case "2":
			username := prompt(scanner, "username: ")
			password := prompt(scanner, "password: ")
			bankName := prompt(scanner, "bank: ")
			if _, err := c.Authenticate(username, password, bankName); err != nil {
				fmt.Println("authentication failed:", err)
				continue
			}
			fmt.Println("authenticated")
		case "3":
			balance, err := c.CheckBalance()
			if err != nil {
				fmt.Println("balance check failed:", err)
				continue
			}
			fmt.Printf("balance: %s\n", formatCents(balance))
		case "4":
			makePayment(scanner, c, "")
		case "5":
			fixedID := prompt(scanner, "fixed payment id: ")
			makePayment(scanner, c, fixedID)
		case "6":
			pending, err := c.Pending()
			if err != nil {
				fmt.Println("listing pending failed:", err)
				continue
			}
			if len(pending) == 0 {
				fmt.Println("no pending payments")
				continue
			}
			for _, p := range pending {
				fmt.Printf("%s  %s -> %s/%s  queued %s\n",
					p.PaymentID, formatCents(p.AmountCents), p.ReceiverBank, p.ReceiverAccount,
					p.CreatedAt.Format("2006-01-02 15:04:05"))
			}
		case "7":
			retried, resolved, err := c.RetryPending()
			if err != nil {
				fmt.Printf("retried %d, resolved %d, stopped: %v\n", retried, resolved, err)
				continue
			}
			fmt.Printf("retried %d, resolved %d\n", retried, resolved)
		case "8":
			records, err := c.TransactionHistory(20)
			if err != nil {
				fmt.Println("history failed:", err)
				continue
			}
			if len(records) == 0 {
				fmt.Println("no transactions")
				continue
			}
			for _, r := range records {
				fmt.Printf("%s  %-6s %s  %s  %s\n",
					r.Timestamp.Format("2006-01-02 15:04:05"), r.Kind, formatCents(r.AmountCents), r.Counterparty, r.EntryID)
			}
		case "9":
			c.Close()
			fmt.Println("disconnected")
		case "0":
			return
		default:
			fmt.Println("unknown option")
		}
	}
}

func makePayment(scanner *bufio.Scanner, c *client.Client, fixedID string) {
	receiverAccount := prompt(scanner, "receiver account: ")
	receiverBank := prompt(scanner, "receiver bank: ")
	amountCents, err := parseAmount(prompt(scanner, "amount: "))
	if err != nil {
		fmt.Println(err)
		return
	}

	resp, err := c.MakePayment(receiverAccount, receiverBank, amountCents, fixedID)
	if err != nil {
		fmt.Println("payment failed:", err)
		return
	}
	fmt.Printf("status: %s  transaction: %s\n%s\n", resp.Status, resp.TransactionID, resp.Message)
}

func prompt(scanner *bufio.Scanner, label string) string {
	fmt.Print(label)
	if !scanner.Scan() {
		return ""
	}
	return strings.TrimSpace(scanner.Text())
}

// parseAmount converts a decimal amount like "150.25" to cents.
func parseAmount(s string) (int64, error) {
	value, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	cents := int64(math.Round(value * 100))
	if cents <= 0 {
		return 0, fmt.Errorf("amount must be positive")
	}
	return cents, nil
}

func formatCents(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}
