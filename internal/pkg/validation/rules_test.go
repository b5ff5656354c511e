package validation

import (
	"reflect"
	"testing"
)

func TestIsOTP(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"123456", true},
		{"000000", true},
		{"12345", false},
		{"1234567", false},
		{"12a456", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := IsOTP(tt.code, 6); got != tt.want {
				t.Errorf("IsOTP(%q) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}

func TestSlotStartPattern(t *testing.T) {
	valid := []string{"09:00", "10:00", "13:00", "15:00"}
	invalid := []string{"08:00", "16:00", "9:00", "10:30", "abc"}

	for _, s := range valid {
		if !CompiledPatterns.SlotStart.MatchString(s) {
			t.Errorf("%q should be a valid slot start", s)
		}
	}
	for _, s := range invalid {
		if CompiledPatterns.SlotStart.MatchString(s) {
			t.Errorf("%q should not be a valid slot start", s)
		}
	}
}

func TestUniqueStrings(t *testing.T) {
	got := UniqueStrings([]string{"Go", " React ", "Go", "", "  ", "SQL"})
	want := []string{"Go", "React", "SQL"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("UniqueStrings = %v, want %v", got, want)
	}
}

func TestValidatorCustomTags(t *testing.T) {
	type payload struct {
		UUCMS string `validate:"required,uucms"`
		Phone string `validate:"omitempty,phone"`
	}

	if err := Validator().Struct(payload{UUCMS: "UUCMS004", Phone: "+919876543210"}); err != nil {
		t.Fatalf("valid payload rejected: %v", err)
	}
	if err := Validator().Struct(payload{UUCMS: "bad id!"}); err == nil {
		t.Fatal("expected uucms tag to reject value")
	}
	if err := Validator().Struct(payload{UUCMS: "UUCMS004", Phone: "12"}); err == nil {
		t.Fatal("expected phone tag to reject value")
	}
}

func TestStringValidation(t *testing.T) {
	if NewStringValidation("   ").Validate() {
		t.Error("blank required value should fail")
	}
	if !NewStringValidation("").WithRequired(false).Validate() {
		t.Error("empty optional value should pass")
	}
	if NewStringValidation("CS").WithPattern(CompiledPatterns.SubjectCode).Validate() {
		t.Error("CS is not a subject code")
	}
	if !NewStringValidation("CS101").WithPattern(CompiledPatterns.SubjectCode).Validate() {
		t.Error("CS101 is a subject code")
	}
}
