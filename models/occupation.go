package models

import "time"

type OccupationStructureType string

const (
	OccupationStructureModules OccupationStructureType = "modules"
	OccupationStructurePapers  OccupationStructureType = "papers"
)

type Occupation struct {
	ID            int                     `gorm:"primary_key" json:"id"`
	Code          string                  `gorm:"size:50;uniqueIndex;not null" json:"code"`
	Name          string                  `gorm:"size:100;uniqueIndex;not null" json:"name"`
	StructureType OccupationStructureType `gorm:"size:10;not null;default:'modules'" json:"structure_type"`
	CreatedAt     time.Time               `gorm:"autoCreateTime" json:"created_at"`
}

type Module struct {
	ID           int        `gorm:"primary_key" json:"id"`
	Code         string     `gorm:"size:50;uniqueIndex;not null" json:"code"`
	Name         string     `gorm:"size:255;not null" json:"name"`
	OccupationId int        `gorm:"index" json:"occupation_id"`
	Occupation   *Occupation `json:"occupation,omitempty"`
	LevelId      int        `gorm:"index;not null" json:"level_id"`
	Level        *Level     `json:"level,omitempty"`
}

type Paper struct {
	ID           int    `gorm:"primary_key" json:"id"`
	Code         string `gorm:"size:50;uniqueIndex;not null" json:"code"`
	Name         string `gorm:"size:255;not null" json:"name"`
	OccupationId int    `gorm:"index" json:"occupation_id"`
	LevelId      int    `gorm:"index;not null" json:"level_id"`
	GradeType    string `gorm:"size:10" json:"grade_type"` // theory | practical
}
