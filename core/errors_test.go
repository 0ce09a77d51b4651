package core

import (
	"reflect"
	"testing"

	"github.com/pkg/errors"
)

func TestValidationError_FieldMap(t *testing.T) {
	err := ValidationError{
		Err: errors.New("invalid payment"),
		Fields: []FieldError{
			{Field: "amount", Error: "amount must be greater than 0"},
			{Field: "category", Error: "this field is required"},
		},
	}
	want := map[string]string{
		"amount":   "amount must be greater than 0",
		"category": "this field is required",
	}
	if got := err.FieldMap(); !reflect.DeepEqual(got, want) {
		t.Errorf("FieldMap() = %v, want %v", got, want)
	}

	if got := (ValidationError{Err: errors.New("nope")}).FieldMap(); got != nil {
		t.Errorf("FieldMap() without fields = %v, want nil", got)
	}
}

func TestIsShutdown(t *testing.T) {
	if !IsShutdown(NewShutdownError("db gone")) {
		t.Error("IsShutdown() = false for a shutdown error")
	}
	if !IsShutdown(errors.Wrap(NewShutdownError("db gone"), "getting account")) {
		t.Error("IsShutdown() = false for a wrapped shutdown error")
	}
	if IsShutdown(errors.New("boom")) {
		t.Error("IsShutdown() = true for an ordinary error")
	}
}
