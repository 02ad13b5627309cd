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
	center := flag.String("center", "", "Limit to one center number")
	series := flag.String("series", "", "Limit to one series name")
	dryRun := flag.Bool("dry-run", false, "With --fix: report what would change, write nothing")
	fix := flag.Bool("fix", false, "Repair fixable discrepancies after the audit")
	export := flag.String("export", "", "Write the report to this xlsx file")
	actorName := flag.String("actor", "", "Username recorded on repaired records (with --fix)")
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

	auditor := &workflow.Auditor{DB: db, Logger: logger}
	report, err := auditor.Run(scope)
	if err != nil {
		fmt.Fprintf(os.Stderr, "audit failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Audit %s (%s)\n", report.RunID, scope.Describe())
	fmt.Printf("Checked %d candidates: %d correct, %d discrepancies, %d orphan fees, %d missing payment amounts\n",
		report.Checked, report.CorrectCount, len(report.Discrepancies), len(report.Orphans), len(report.MissingAmounts))
	if report.MultiLevelCount > 0 {
		fmt.Printf("Multi-level formal candidates: %d\n", report.MultiLevelCount)
	}
	for _, d := range report.Discrepancies {
		fmt.Printf("  %-22s %s %s: stored %s, expected %s\n",
			d.Kind, d.RegNumber, d.Category, utils.FormatUGX(d.Actual), utils.FormatUGX(d.Expected))
	}
	for _, d := range report.Orphans {
		fmt.Printf("  %-22s %s: stored %s with no enrollment\n", d.Kind, d.RegNumber, utils.FormatUGX(d.Actual))
	}
	for _, d := range report.MissingAmounts {
		fmt.Printf("  %-22s %s: cleared with no amount\n", d.Kind, d.RegNumber)
	}
	fmt.Printf("Total drift: %s\n", utils.FormatUGX(report.DriftTotal()))

	if *export != "" {
		if err := workflow.ExportAuditReport(report, *export); err != nil {
			fmt.Fprintf(os.Stderr, "export failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Report written to %s\n", *export)
	}

	if !*fix {
		return
	}

	if os.Getenv("REDIS_ADDRESS") != "" {
		config.ConnectRedisWithRetry()
	}
	ctx := context.Background()
	lock, err := utils.AcquireRunLock(ctx, "audit-fees", scope.Describe(), 10*time.Minute)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer lock.Release(ctx)

	var actor *models.User
	if strings.TrimSpace(*actorName) != "" {
		actor, err = models.GetUserByUsername(db, strings.TrimSpace(*actorName))
		if err != nil {
			fmt.Fprintf(os.Stderr, "actor not found: %v\n", err)
			os.Exit(2)
		}
	}

	rec := &workflow.Reconciler{DB: db, Logger: logger, Actor: actor, DryRun: *dryRun}
	stats, err := rec.FixCandidates(report.Discrepancies)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fix failed: %v\n", err)
		os.Exit(1)
	}
	verb := "fixed"
	if *dryRun {
		verb = "would fix"
	}
	fmt.Printf("%s %d of %d discrepancies (%d skipped), %s corrected\n",
		verb, stats.Fixed, stats.Checked, stats.Skipped, utils.FormatUGX(stats.AmountCorrected))
}
