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

// harmonize-billing runs the whole pipeline in order: audit candidate
// balances, repair the fixable ones, then recompute the center/series
// payment aggregates so they agree with the repaired balances.
func main() {
	center := flag.String("center", "", "Limit to one center number")
	series := flag.String("series", "", "Limit to one series name")
	dryRun := flag.Bool("dry-run", false, "Report what would change, write nothing")
	actorName := flag.String("actor", "", "Username recorded on repaired records")
	flag.Parse()

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}
	logger := logrus.New()

	scope, err := workflow.ResolveScope(db, strings.TrimSpace(*center), strings.TrimSpace(*series))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	var actor *models.User
	if strings.TrimSpace(*actorName) != "" {
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
	lock, err := utils.AcquireRunLock(ctx, "harmonize-billing", scope.Describe(), 30*time.Minute)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer lock.Release(ctx)

	auditor := &workflow.Auditor{DB: db, Logger: logger}
	report, err := auditor.Run(scope)
	if err != nil {
		fmt.Fprintf(os.Stderr, "audit failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Audit %s (%s): %d checked, %d discrepancies, drift %s\n",
		report.RunID, scope.Describe(), report.Checked, len(report.Discrepancies),
		utils.FormatUGX(report.DriftTotal()))

	rec := &workflow.Reconciler{DB: db, Logger: logger, Actor: actor, DryRun: *dryRun}
	verb := "fixed"
	if *dryRun {
		verb = "would fix"
	}

	stats, err := rec.FixCandidates(report.Discrepancies)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fix candidates: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Candidates: %s %d of %d (%d skipped), %s corrected\n",
		verb, stats.Fixed, stats.Checked, stats.Skipped, utils.FormatUGX(stats.AmountCorrected))

	pay, err := rec.RecomputePaymentRecords(scope)
	if err != nil {
		fmt.Fprintf(os.Stderr, "recompute payment records: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Payment records: %d checked, %s %d, created %d, %s corrected\n",
		pay.RecordsChecked, verb, pay.RecordsUpdated, pay.RecordsCreated, utils.FormatUGX(pay.AmountCorrected))

	fmt.Println("billing harmonization complete")
}
