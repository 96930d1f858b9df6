package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/sebkoller/moneyguru/internal/config"
	"github.com/sebkoller/moneyguru/internal/currency"
	"github.com/sebkoller/moneyguru/internal/date"
	applog "github.com/sebkoller/moneyguru/internal/log"
	"github.com/sebkoller/moneyguru/internal/model"
	"github.com/sebkoller/moneyguru/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(cfg.LogLevel),
		Component: applog.ComponentApp,
	})
	applog.SetDefault(logger)

	registry := currency.NewRegistry()
	if !registry.Has(cfg.DefaultCurrency) {
		logger.Error("unknown default currency", applog.FieldCurrency, cfg.DefaultCurrency)
		os.Exit(1)
	}

	store, err := storage.Open(cfg, logger.WithComponent(applog.ComponentStorage).Logger)
	if err != nil {
		logger.Error("failed to open document store", applog.FieldError, err)
		os.Exit(1)
	}
	defer store.Close()

	ctx := context.Background()
	snap, err := store.Load(ctx)
	if err != nil {
		logger.Error("failed to load document", applog.FieldError, err)
		os.Exit(1)
	}

	defaultCurrency := snap.DefaultCurrency
	if defaultCurrency == "" {
		defaultCurrency = cfg.DefaultCurrency
	}
	rates := currency.NewRatesDB(nil, logger.WithComponent(applog.ComponentRates).Logger)
	doc := model.NewDocument(defaultCurrency, rates, logger.WithComponent(applog.ComponentDocument).Logger)
	if err := snap.Restore(doc); err != nil {
		logger.Error("failed to restore document", applog.FieldError, err)
		os.Exit(1)
	}

	today := date.Today()
	doc.CookUntil(today.AddDays(cfg.CookAheadDays))

	printOverview(doc, today, defaultCurrency)

	if doc.Modified() {
		if err := store.Save(ctx, storage.NewSnapshot(doc)); err != nil {
			logger.Error("failed to save document", applog.FieldError, err)
			os.Exit(1)
		}
	}
}

// printOverview writes current balances and the upcoming scheduled
// occurrences to stdout.
func printOverview(doc *model.Document, today date.Date, currencyCode string) {
	fmt.Printf("Balances as of %s\n", today)
	for _, account := range doc.Accounts.All() {
		if account.Inactive {
			continue
		}
		balance := doc.Accounts.Entries(account).Balance(today, currencyCode, false)
		fmt.Printf("  %-30s %12s  (%s)\n", account.Name, balance.Value().StringFixed(2), account.Type)
	}

	upcoming := 0
	horizon := today.AddDays(31)
	fmt.Printf("\nNext 31 days\n")
	for _, account := range doc.Accounts.All() {
		for _, e := range doc.Accounts.Entries(account).All() {
			if !e.IsSpawned() || e.Date().Before(today) || e.Date().After(horizon) {
				continue
			}
			label := e.Txn.Description
			if e.Spawn.Kind == model.BudgetSpawn {
				label = "budget: " + label
			}
			fmt.Printf("  %s  %-30s %12s  %s\n", e.Date(), label,
				e.Split.Amount.Value().StringFixed(2), account.Name)
			upcoming++
		}
	}
	if upcoming == 0 {
		fmt.Println("  nothing scheduled")
	}
}
