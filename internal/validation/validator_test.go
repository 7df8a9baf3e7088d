// Reelmatch - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelmatch

package validation

import (
	"strings"
	"testing"
)

type interactionBody struct {
	UserID int     `json:"user_id" validate:"gt=0"`
	ItemID int     `json:"item_id" validate:"gt=0"`
	Type   string  `json:"type" validate:"required,interaction_type"`
	Weight float64 `json:"weight" validate:"gte=0,lte=100"`
}

type itemBody struct {
	Title  string   `json:"title" validate:"notblank,max=10"`
	Genres []string `json:"genres" validate:"max=2"`
	Mode   string   `query:"mode" validate:"omitempty,oneof=hybrid collaborative"`
}

func TestGetValidator_Singleton(t *testing.T) {
	t.Parallel()

	if GetValidator() != GetValidator() {
		t.Error("GetValidator() should return the same instance")
	}
}

func TestValidateStruct(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   any
		wantErr []string
	}{
		{
			name:  "valid interaction",
			input: &interactionBody{UserID: 1, ItemID: 2, Type: "watch_complete"},
		},
		{
			name:    "unknown interaction type",
			input:   &interactionBody{UserID: 1, ItemID: 2, Type: "like"},
			wantErr: []string{"type must be one of: view, book, rate, watch_complete"},
		},
		{
			name:  "several failures use json names",
			input: &interactionBody{UserID: 0, ItemID: -1, Type: "view", Weight: -2},
			wantErr: []string{
				"user_id must be greater than 0",
				"item_id must be greater than 0",
				"weight must be greater than or equal to 0",
			},
		},
		{
			name:    "missing type",
			input:   &interactionBody{UserID: 1, ItemID: 1},
			wantErr: []string{"type is required"},
		},
		{
			name:    "blank title",
			input:   &itemBody{Title: "   "},
			wantErr: []string{"title must not be blank"},
		},
		{
			name:    "long title and too many genres",
			input:   &itemBody{Title: "A very long title", Genres: []string{"a", "b", "c"}},
			wantErr: []string{"title must be at most 10 characters", "genres must be at most 2 entries"},
		},
		{
			name:    "query tag name",
			input:   &itemBody{Title: "Ok", Mode: "random"},
			wantErr: []string{"mode must be one of: hybrid collaborative"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := ValidateStruct(tt.input)
			if len(tt.wantErr) == 0 {
				if err != nil {
					t.Fatalf("ValidateStruct() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatal("ValidateStruct() = nil, want error")
			}
			if len(err.Errors()) != len(tt.wantErr) {
				t.Fatalf("got %d errors (%v), want %d", len(err.Errors()), err, len(tt.wantErr))
			}
			for i, want := range tt.wantErr {
				if got := err.Errors()[i].Error(); got != want {
					t.Errorf("error[%d] = %q, want %q", i, got, want)
				}
			}
		})
	}
}

func TestToAPIError(t *testing.T) {
	t.Parallel()

	single := ValidateStruct(&interactionBody{UserID: 1, ItemID: 1, Type: "nope"}).ToAPIError()
	if single.Code != ErrorCode {
		t.Errorf("Code = %q, want %q", single.Code, ErrorCode)
	}
	if single.Details["field"] != "type" || single.Details["tag"] != "interaction_type" {
		t.Errorf("Details = %v", single.Details)
	}

	multi := ValidateStruct(&interactionBody{Type: "view"}).ToAPIError()
	fields, ok := multi.Details["fields"].([]map[string]any)
	if !ok || len(fields) != 2 {
		t.Fatalf("Details[fields] = %v, want two entries", multi.Details["fields"])
	}
	if !strings.Contains(multi.Message, "user_id") || !strings.Contains(multi.Message, "item_id") {
		t.Errorf("Message = %q, want both fields", multi.Message)
	}

	empty := (&RequestValidationError{}).ToAPIError()
	if empty.Message != "Validation failed" {
		t.Errorf("empty Message = %q", empty.Message)
	}
}
