package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/versekeeper/versekeeper/scripture"
)

// Stage represents where a verse sits in the memorization cadence.
type Stage string

const (
	StageBacklog  Stage = "backlog"
	StageDaily    Stage = "daily"
	StageWeekly   Stage = "weekly"
	StageMonthly  Stage = "monthly"
	StageMastered Stage = "mastered"
)

// Stages lists all stages in cadence order.
var Stages = []Stage{StageBacklog, StageDaily, StageWeekly, StageMonthly, StageMastered}

// listNames maps each stage to its canonical list name in the item store.
var listNames = map[Stage]string{
	StageBacklog:  "Scripture Memorization - Backlog",
	StageDaily:    "Scripture Memorization - Daily",
	StageWeekly:   "Scripture Memorization - Weekly",
	StageMonthly:  "Scripture Memorization - Monthly",
	StageMastered: "Scripture Memorization - Mastered",
}

// ListName returns the canonical store list name for the stage.
func (s Stage) ListName() string {
	return listNames[s]
}

// Valid reports whether the stage is one of the five known stages.
func (s Stage) Valid() bool {
	_, ok := listNames[s]
	return ok
}

// ParseStage resolves a stored stage value, tolerating case differences.
func ParseStage(raw string) (Stage, bool) {
	s := Stage(strings.ToLower(strings.TrimSpace(raw)))
	return s, s.Valid()
}

// MemorizationItem is one verse (or verse range) under memorization.
//
// Counter is stage-dependent: remaining daily/weekly/monthly reviews before
// promotion. MasteredCursor indexes into the mastered review-month sequence.
// Backlog items carry no due date. Notes hold the verse text, filled lazily
// from the lookup providers.
type MemorizationItem struct {
	ID             string              `json:"id" validate:"required,uuid4"`
	Reference      scripture.Reference `json:"reference" validate:"required"`
	Stage          Stage               `json:"stage" validate:"required,oneof=backlog daily weekly monthly mastered"`
	Counter        int                 `json:"counter" validate:"min=0"`
	MasteredCursor int                 `json:"masteredCursor" validate:"min=0"`
	Completed      bool                `json:"completed"`
	Notes          string              `json:"notes,omitempty"`
	LastReviewedAt *time.Time          `json:"lastReviewedAt,omitempty"`
	NextDueAt      *time.Time          `json:"nextDueAt,omitempty"`
	CreatedAt      time.Time           `json:"createdAt" validate:"required"`
	UpdatedAt      time.Time           `json:"updatedAt" validate:"required"`
}

// ItemList is the persisted collection wrapper.
type ItemList struct {
	Items      []MemorizationItem `json:"items" validate:"dive"`
	TotalCount int                `json:"totalCount"`
}

// NewItem creates a Backlog item for the given reference.
// The store assigns the ID on insert.
func NewItem(ref scripture.Reference) MemorizationItem {
	now := time.Now()
	return MemorizationItem{
		Reference: ref,
		Stage:     StageBacklog,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// global validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// ValidateStruct performs validation on any struct that has validation tags.
func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err != nil {
		validationErrors := err.(validator.ValidationErrors)
		var msgs []string
		for _, e := range validationErrors {
			msgs = append(msgs, fmt.Sprintf("validation failed on field '%s': rule '%s' (value: '%v')", e.StructNamespace(), e.Tag(), e.Value()))
		}
		return fmt.Errorf("%s", strings.Join(msgs, "; "))
	}
	return nil
}
