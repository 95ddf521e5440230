package validator

import (
	"testing"

	"github.com/go-playground/validator/v10"
)

type testPayload struct {
	OrgID  string `json:"org_id" validate:"required,orgnr"`
	Source string `json:"source" validate:"required,url"`
	Limit  int    `json:"limit" validate:"gte=1"`
}

func TestValidateStructSuccess(t *testing.T) {
	payload := testPayload{
		OrgID:  "999888777",
		Source: "https://data.brreg.no/enhetsregisteret/api/enheter",
		Limit:  5,
	}

	if err := ValidateStruct(payload); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidateStructFailures(t *testing.T) {
	payload := testPayload{
		OrgID:  "12345",
		Source: "not a url",
		Limit:  0,
	}

	err := ValidateStruct(payload)
	if err == nil {
		t.Fatal("expected validation error")
	}

	vErrs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}

	if len(vErrs) != 3 {
		t.Fatalf("expected 3 validation errors, got %d", len(vErrs))
	}

	foundOrg := false
	for _, v := range vErrs {
		if v.Field == "org_id" && v.Tag == OrgIDTag {
			foundOrg = true
		}
	}
	if !foundOrg {
		t.Fatal("expected org_id validation error with json tag name")
	}
}

func TestValidateVarOrgNumber(t *testing.T) {
	if err := ValidateVar("orgId", "000000000", "required,"+OrgIDTag); err != nil {
		t.Fatalf("expected nine digits to validate, got %v", err)
	}

	for _, value := range []string{"", "12345678", "1234567890", "99988877a"} {
		err := ValidateVar("orgId", value, "required,"+OrgIDTag)
		if err == nil {
			t.Fatalf("expected %q to fail validation", value)
		}
		vErrs, ok := err.(ValidationErrors)
		if !ok || len(vErrs) != 1 {
			t.Fatalf("expected single ValidationErrors entry for %q, got %v", value, err)
		}
		if vErrs[0].Field != "orgId" {
			t.Fatalf("expected field name orgId, got %q", vErrs[0].Field)
		}
	}
}

func TestRegisterValidation(t *testing.T) {
	err := RegisterValidation("is_awesome", func(fl validator.FieldLevel) bool {
		return fl.Field().String() == "awesome"
	})
	if err != nil {
		t.Fatalf("register validation: %v", err)
	}

	type custom struct {
		Value string `validate:"is_awesome"`
	}

	if err := ValidateStruct(custom{Value: "awesome"}); err != nil {
		t.Fatalf("expected custom validation to pass: %v", err)
	}

	if err := ValidateStruct(custom{Value: "bad"}); err == nil {
		t.Fatal("expected custom validation to fail")
	}
}
