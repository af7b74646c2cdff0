package command

import (
	"strings"
	"testing"

	"github.com/grovetools/queued/errors"
)

func TestValidateQueueName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid name", "sales", false},
		{"valid with spaces", "tier 2 support", false},
		{"empty name", "", true},
		{"blank name", "   ", true},
		{"line break", "sales\r\nAction: Logoff", true},
		{"too long", strings.Repeat("q", maxFieldLength+1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateQueueName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateQueueName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateInterface(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"sip", "SIP/100", false},
		{"local channel", "Local/400@agents/n", false},
		{"empty", "", true},
		{"newline", "SIP/100\n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateInterface(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateInterface(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePenalty(t *testing.T) {
	tests := []struct {
		input   int
		wantErr bool
	}{
		{0, false},
		{5, false},
		{MaxPenalty, false},
		{-1, true},
		{MaxPenalty + 1, true},
	}

	for _, tt := range tests {
		err := validatePenalty(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("validatePenalty(%d) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, errors.ErrCodeInvalidInput) {
			t.Errorf("validatePenalty(%d) code = %s, want %s", tt.input, errors.GetCode(err), errors.ErrCodeInvalidInput)
		}
	}
}

func TestValidateUnknownType(t *testing.T) {
	if err := Validate("nonexistent", "value"); err == nil {
		t.Error("Validate() should return error for unknown type")
	}
	if err := Validate("reason", ""); err != nil {
		t.Errorf("Validate(reason, \"\") error = %v", err)
	}
}
