package validator

import (
	"testing"

	"leaddesk_backend/platform/apperr"
)

type sampleRequest struct {
	Name   string   `json:"name" validate:"required"`
	Emails []string `json:"emails" validate:"min=1,max=2,dive,email"`
	Tab    string   `form:"tab" validate:"omitempty,sample_tab"`
}

func TestValidateReturnsFieldErrors(t *testing.T) {
	val := New()
	if err := val.RegisterOneOf("sample_tab", []string{"open", "archived"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	err := val.Validate(sampleRequest{Emails: []string{"not-an-email"}, Tab: "nope"})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	details, ok := err.(*apperr.Error).Details.([]apperr.FieldError)
	if !ok {
		t.Fatalf("expected field error details, got %T", err.(*apperr.Error).Details)
	}

	got := map[string]bool{}
	for _, d := range details {
		got[d.Field] = true
	}
	for _, field := range []string{"name", "emails[0]", "tab"} {
		if !got[field] {
			t.Errorf("missing field error for %s in %+v", field, details)
		}
	}
}

func TestValidatePassesValidStruct(t *testing.T) {
	val := New()
	_ = val.RegisterOneOf("sample_tab", []string{"open"})
	if err := val.Validate(sampleRequest{Name: "A", Emails: []string{"a@b.co"}, Tab: "open"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
