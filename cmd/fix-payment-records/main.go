package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/uvtab/emis_backend/config"
	"github.com/uvtab/emis_backend/models"
	"github.com/uvtab/emis_backend/utils"
	"github.com/uvtab/emis_backend/workflow"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "Report what would change, write nothing")
	markHistorical := flag.Bool("mark-historical", false, "Also mark pre-tracking paid candidates as cleared")
	actorName := flag.String("actor", "", "Username recorded on repaired records")
	flag.Parse()

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}
	logger := logrus.New()

	var actor *models.User
	if strings.TrimSpace(*actorName) != "" {
		var err error
		actor, err = models.GetUserByUsername(db, strings.TrimSpace(*actorName))
		if err != nil {
			fmt.Fprintf(os.Stderr, "actor not found: %v\n", err)
			os.Exit(2)
		}
	}

	if os.Getenv("REDIS_ADDRESS") != "" {
		config.ConnectRedisWithRetry()
	}
	ctx := context.Background()
	lock, err := utils.AcquireRunLock(ctx, "fix-payment-records", "all", 30*time.Minute)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer lock.Release(ctx)

	rec := &workflow.Reconciler{DB: db, Logger: logger, Actor: actor, DryRun: *dryRun}
	scope := workflow.Scope{}

	verb := "fixed"
	if *dryRun {
		verb = "would fix"
	}

	backfill, err := rec.BackfillPaymentAmounts(scope)
	if err != nil {
		fmt.Fprintf(os.Stderr, "backfill payment amounts: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Payment amounts: %s %d of %d cleared-without-amount candidates (%d skipped), %s\n",
		verb, backfill.Fixed, backfill.Checked, backfill.Skipped, utils.FormatUGX(backfill.AmountCorrected))

	if *markHistorical {
		hist, err := rec.MarkHistoricalCleared(scope)
		if err != nil {
			fmt.Fprintf(os.Stderr, "mark historical: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Historical clearance: %s %d of %d zero-balance candidates (%d skipped), %s\n",
			verb, hist.Fixed, hist.Checked, hist.Skipped, utils.FormatUGX(hist.AmountCorrected))
	}

	pay, err := rec.RecomputePaymentRecords(scope)
	if err != nil {
		fmt.Fprintf(os.Stderr, "recompute payment records: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Payment records: %d checked, %s %d, created %d, %s corrected\n",
		pay.RecordsChecked, verb, pay.RecordsUpdated, pay.RecordsCreated, utils.FormatUGX(pay.AmountCorrected))
}
