package models

import (
	"testing"

	"github.com/google/uuid"

	"github.com/versekeeper/versekeeper/scripture"
)

func TestStageListNames(t *testing.T) {
	cases := map[Stage]string{
		StageBacklog:  "Scripture Memorization - Backlog",
		StageDaily:    "Scripture Memorization - Daily",
		StageWeekly:   "Scripture Memorization - Weekly",
		StageMonthly:  "Scripture Memorization - Monthly",
		StageMastered: "Scripture Memorization - Mastered",
	}
	for stage, want := range cases {
		if got := stage.ListName(); got != want {
			t.Errorf("%s.ListName() = %q, want %q", stage, got, want)
		}
		if !stage.Valid() {
			t.Errorf("%s should be valid", stage)
		}
	}
	if Stage("someday").Valid() {
		t.Error("unknown stage reported valid")
	}
}

func TestParseStage(t *testing.T) {
	cases := []struct {
		in   string
		want Stage
		ok   bool
	}{
		{"daily", StageDaily, true},
		{"Daily", StageDaily, true},
		{"  MASTERED ", StageMastered, true},
		{"someday", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseStage(tc.in)
		if ok != tc.ok {
			t.Errorf("ParseStage(%q) ok = %v, want %v", tc.in, ok, tc.ok)
			continue
		}
		if ok && got != tc.want {
			t.Errorf("ParseStage(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNewItemDefaults(t *testing.T) {
	ref := scripture.Reference{Book: "2 Nephi", Chapter: 2, Start: 25, End: 25}
	item := NewItem(ref)

	if item.Stage != StageBacklog {
		t.Errorf("stage = %s, want backlog", item.Stage)
	}
	if item.ID != "" {
		t.Error("ID must be assigned by the store, not the constructor")
	}
	if item.Completed {
		t.Error("new items start incomplete")
	}
	if item.CreatedAt.IsZero() || item.UpdatedAt.IsZero() {
		t.Error("timestamps not set")
	}
}

func TestValidateStruct(t *testing.T) {
	valid := NewItem(scripture.Reference{Book: "John", Chapter: 3, Start: 16, End: 16})
	valid.ID = uuid.NewString()
	if err := ValidateStruct(valid); err != nil {
		t.Errorf("valid item rejected: %v", err)
	}

	noID := valid
	noID.ID = ""
	if err := ValidateStruct(noID); err == nil {
		t.Error("missing ID accepted")
	}

	badStage := valid
	badStage.Stage = "someday"
	if err := ValidateStruct(badStage); err == nil {
		t.Error("unknown stage accepted")
	}

	negative := valid
	negative.Counter = -1
	if err := ValidateStruct(negative); err == nil {
		t.Error("negative counter accepted")
	}
}
