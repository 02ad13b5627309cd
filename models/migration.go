package models

import (
	"log"

	"github.com/uvtab/emis_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&AssessmentCenter{}, &AssessmentSeries{},
		&Occupation{}, &Level{}, &Module{}, &Paper{},
		&Candidate{}, &CandidateLevel{}, &CandidateModule{}, &CandidatePaper{},
		&CenterSeriesPayment{},
		&User{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
