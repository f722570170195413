package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"golang.org/x/term"

	"duit/internal/auth"
	"duit/internal/core"
	"duit/internal/storage"
)

// duit-init creates the settings row the server refuses to run without a
// password for. It is the only way to set the initial password; the server
// itself never invents one.
func main() {
	dbPath := flag.String("db", "./data/duit.db", "path to the sqlite database")
	budget := flag.String("budget", "5000000", "initial monthly budget")
	currency := flag.String("currency", core.DefaultCurrency, "currency code")
	flag.Parse()

	if err := run(*dbPath, *budget, *currency); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(dbPath, budgetStr, currency string) error {
	monthlyBudget, err := decimal.NewFromString(budgetStr)
	if err != nil {
		return fmt.Errorf("invalid budget %q: %w", budgetStr, err)
	}
	if monthlyBudget.IsNegative() {
		return core.ErrNegativeBudget
	}

	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	ctx := context.Background()
	if _, err := store.GetSettings(ctx); err == nil {
		return errors.New("already initialized; use the change-password endpoint to rotate the password")
	} else if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("check settings: %w", err)
	}

	password, err := promptPassword()
	if err != nil {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if _, err := store.CreateSettings(ctx, core.AppSettings{
		PasswordHash:  hash,
		MonthlyBudget: monthlyBudget,
		Currency:      currency,
	}); err != nil {
		return fmt.Errorf("create settings: %w", err)
	}

	fmt.Printf("initialized %s (budget %s %s)\n", dbPath, monthlyBudget, currency)
	return nil
}

func promptPassword() (string, error) {
	fmt.Print("Password: ")
	first, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}

	fmt.Print("Confirm password: ")
	second, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}

	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	if len(first) < 6 {
		return "", errors.New("password must be at least 6 characters")
	}
	return string(first), nil
}
