// Command ledger-import imports a CSV file from disk into the configured
// ledger backend and prints a summary.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ledger/internal/cli"
	applog "ledger/internal/log"
	"ledger/internal/services"
)

func main() {
	verbose := flag.Bool("v", false, "print every imported transaction")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-v] file.csv\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig(cli.SetupLogger(applog.ComponentImport, nil))
	cfg.AMQPURL = ""
	logger := cli.SetupLogger(applog.ComponentImport, cfg)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	be := cli.InitBackend(ctx, logger, cfg)
	defer cli.RunCleanup(logger, 10*time.Second, be.Cleanup)

	path, err := filepath.Abs(flag.Arg(0))
	if err != nil {
		logger.Error("Invalid path", "error", err)
		os.Exit(1)
	}

	if err := run(ctx, services.NewLedgerService(be.Repository, localFiles{}), path, *verbose); err != nil {
		logger.Error("Import failed", "error", err, "file", path)
		cli.RunCleanup(logger, 10*time.Second, be.Cleanup)
		os.Exit(1)
	}
}

func run(ctx context.Context, svc *services.LedgerService, path string, verbose bool) error {
	report, err := svc.Import(ctx, path)
	if err != nil {
		return err
	}

	for _, rej := range report.Rejected {
		fmt.Printf("skipped line %d: %s\n", rej.Line, rej.Reason)
	}
	if verbose {
		for _, tx := range report.Transactions {
			fmt.Printf("%s\t%-7s\t%s\t%s\n", tx.ID, tx.Type, tx.Value.StringFixed(2), tx.Title)
		}
	}

	balance, err := svc.Balance(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("imported %d transactions, skipped %d rows, balance %s\n",
		len(report.Transactions), len(report.Rejected), balance.Total.StringFixed(2))
	return nil
}
