// Planvault - Plant Shutdown Planning Data Store and Sync Server
// Copyright 2026 Planvault Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/planvault/planvault

package validation

import (
	"strings"
	"testing"
)

type actorPayload struct {
	Actor string `validate:"required,actorname,max=100"`
}

func TestActorNameValidator(t *testing.T) {
	tests := []struct {
		name  string
		actor string
		valid bool
	}{
		{"simple", "alice", true},
		{"with space", "Jean Tremblay", true},
		{"accented", "Éloïse Côté", true},
		{"hyphen underscore", "ops-team_2", true},
		{"digits", "user42", true},
		{"empty", "", false},
		{"angle brackets", "<script>", false},
		{"quotes", `"alice"`, false},
		{"slash", "a/b", false},
		{"too long", strings.Repeat("a", 101), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateStruct(&actorPayload{Actor: tc.actor})
			if tc.valid && err != nil {
				t.Errorf("actor %q rejected: %v", tc.actor, err)
			}
			if !tc.valid && err == nil {
				t.Errorf("actor %q accepted, want rejection", tc.actor)
			}
		})
	}
}

type bulkPayload struct {
	Count int `validate:"gte=1,lte=50"`
}

func TestRangeValidation(t *testing.T) {
	if err := ValidateStruct(&bulkPayload{Count: 25}); err != nil {
		t.Errorf("valid count rejected: %v", err)
	}
	if err := ValidateStruct(&bulkPayload{Count: 0}); err == nil {
		t.Error("count 0 accepted")
	}
	if err := ValidateStruct(&bulkPayload{Count: 51}); err == nil {
		t.Error("count 51 accepted")
	}
}

func TestToAPIErrorSingleField(t *testing.T) {
	err := ValidateStruct(&actorPayload{Actor: ""})
	if err == nil {
		t.Fatal("expected validation error")
	}

	apiErr := err.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("code = %q", apiErr.Code)
	}
	if apiErr.Details["field"] != "Actor" {
		t.Errorf("field = %v", apiErr.Details["field"])
	}
	if !strings.Contains(apiErr.Message, "required") {
		t.Errorf("message = %q", apiErr.Message)
	}
}

type multiPayload struct {
	Actor string `validate:"required"`
	Count int    `validate:"gte=1"`
}

func TestToAPIErrorMultipleFields(t *testing.T) {
	err := ValidateStruct(&multiPayload{})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if len(err.Errors()) != 2 {
		t.Fatalf("error count = %d, want 2", len(err.Errors()))
	}

	apiErr := err.ToAPIError()
	fields, ok := apiErr.Details["fields"].([]map[string]interface{})
	if !ok || len(fields) != 2 {
		t.Errorf("details fields = %v", apiErr.Details["fields"])
	}
}

func TestValidateStructPassing(t *testing.T) {
	if err := ValidateStruct(&multiPayload{Actor: "ok", Count: 1}); err != nil {
		t.Errorf("valid payload rejected: %v", err)
	}
}
