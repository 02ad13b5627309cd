package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/uvtab/emis_backend/config"
	"github.com/uvtab/emis_backend/utils"
	"github.com/uvtab/emis_backend/workflow"
)

func main() {
	series := flag.String("series", "", "Limit to one series name")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: diagnose-center-billing [--series NAME] <center_number>")
		os.Exit(2)
	}
	centerNumber := strings.TrimSpace(flag.Arg(0))

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}

	scope, err := workflow.ResolveScope(db, centerNumber, strings.TrimSpace(*series))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	auditor := &workflow.Auditor{DB: db, Logger: logrus.New()}
	report, err := auditor.Run(scope)
	if err != nil {
		fmt.Fprintf(os.Stderr, "diagnose failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Center %s (%s)\n", scope.Center.CenterNumber, scope.Center.CenterName)
	for _, s := range report.Summaries {
		fmt.Printf("\nSeries: %s\n", s.SeriesName)
		fmt.Printf("  candidates: %d (%d paid)\n", s.CandidateCount, s.PaidCount)
		fmt.Printf("  paid:  %s\n", utils.FormatUGX(s.PaidTotal))
		fmt.Printf("  due:   %s\n", utils.FormatUGX(s.DueTotal))
		fmt.Printf("  total: %s\n", utils.FormatUGX(s.GrandTotal))
		if s.HasPaymentRecord {
			fmt.Printf("  payment record: %s", utils.FormatUGX(s.StoredAmountPaid))
			if !s.GhostDiff.IsZero() {
				fmt.Printf("  (drift %s from recomputed paid total)", utils.FormatUGX(s.GhostDiff))
			}
			fmt.Println()
		} else {
			fmt.Println("  payment record: none")
		}
	}

	fmt.Printf("\nCandidate checks: %d checked, %d correct\n", report.Checked, report.CorrectCount)
	for _, d := range report.Discrepancies {
		fmt.Printf("  %-22s %s %s: stored %s, expected %s", d.Kind, d.RegNumber, d.Category,
			utils.FormatUGX(d.Actual), utils.FormatUGX(d.Expected))
		if d.MultiLevel {
			fmt.Printf("  [multi-level]")
		}
		if d.Detail != "" {
			fmt.Printf("  (%s)", d.Detail)
		}
		fmt.Println()
	}
	for _, d := range report.Orphans {
		fmt.Printf("  %-22s %s: stored %s with no enrollment\n", d.Kind, d.RegNumber, utils.FormatUGX(d.Actual))
	}
	for _, d := range report.MissingAmounts {
		fmt.Printf("  %-22s %s: cleared with no amount\n", d.Kind, d.RegNumber)
	}
}
