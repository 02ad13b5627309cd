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
	"github.com/uvtab/emis_backend/utils"
	"github.com/uvtab/emis_backend/workflow"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "Report what would change, write nothing")
	series := flag.String("series", "", "Limit to one series name")
	verbose := flag.Bool("verbose", false, "Print every affected candidate")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: fix-multilevel-billing [--dry-run] [--series NAME] [--verbose] <center_number>")
		os.Exit(2)
	}

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}
	logger := logrus.New()

	scope, err := workflow.ResolveScope(db, strings.TrimSpace(flag.Arg(0)), strings.TrimSpace(*series))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	auditor := &workflow.Auditor{DB: db, Logger: logger}
	report, err := auditor.AuditCandidates(scope)
	if err != nil {
		fmt.Fprintf(os.Stderr, "audit failed: %v\n", err)
		os.Exit(1)
	}

	// Only candidates enrolled in more than one level are in this tool's
	// remit; everything else stays for audit-fees.
	var targets []workflow.Discrepancy
	for _, d := range report.Discrepancies {
		if d.MultiLevel {
			targets = append(targets, d)
		}
	}

	fmt.Printf("Checked %d candidates at %s: %d multi-level discrepancies\n",
		report.Checked, scope.Describe(), len(targets))
	if *verbose {
		for _, d := range targets {
			fmt.Printf("  %s %s: stored %s, expected %s\n",
				d.RegNumber, d.Category, utils.FormatUGX(d.Actual), utils.FormatUGX(d.Expected))
		}
	}
	if len(targets) == 0 {
		return
	}

	if os.Getenv("REDIS_ADDRESS") != "" {
		config.ConnectRedisWithRetry()
	}
	ctx := context.Background()
	lock, err := utils.AcquireRunLock(ctx, "fix-multilevel-billing", scope.Describe(), 10*time.Minute)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer lock.Release(ctx)

	rec := &workflow.Reconciler{DB: db, Logger: logger, DryRun: *dryRun}
	stats, err := rec.FixCandidates(targets)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fix failed: %v\n", err)
		os.Exit(1)
	}
	verb := "fixed"
	if *dryRun {
		verb = "would fix"
	}
	fmt.Printf("%s %d of %d (%d skipped), %s corrected\n",
		verb, stats.Fixed, stats.Checked, stats.Skipped, utils.FormatUGX(stats.AmountCorrected))
}
