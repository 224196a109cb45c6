package validation

import "testing"

func TestIsValidEmail(t *testing.T) {
	valid := []string{"ada@example.com", "first.last+tag@coop.ng", " spaced@example.org "}
	for _, e := range valid {
		if !IsValidEmail(e) {
			t.Errorf("expected %q to be valid", e)
		}
	}
	invalid := []string{"", "not-an-email", "a@b", "@example.com"}
	for _, e := range invalid {
		if IsValidEmail(e) {
			t.Errorf("expected %q to be invalid", e)
		}
	}
}

func TestIsValidPhone(t *testing.T) {
	valid := []string{"+2348012345678", "2348012345678", "08012345678", "0801-234-5678"}
	for _, p := range valid {
		if !IsValidPhone(p) {
			t.Errorf("expected %q to be valid", p)
		}
	}
	invalid := []string{"", "12345", "080123456", "+14155552671"}
	for _, p := range invalid {
		if IsValidPhone(p) {
			t.Errorf("expected %q to be invalid", p)
		}
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := map[string]string{
		"08012345678":    "+2348012345678",
		"2348012345678":  "+2348012345678",
		"+2348012345678": "+2348012345678",
	}
	for in, want := range tests {
		if got := NormalizePhone(in); got != want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIsValidNIN(t *testing.T) {
	if !IsValidNIN("12345678901") {
		t.Error("11 digits should be valid")
	}
	for _, n := range []string{"1234567890", "123456789012", "1234567890a"} {
		if IsValidNIN(n) {
			t.Errorf("expected %q to be invalid", n)
		}
	}
}

func TestIsValidAccountNumber(t *testing.T) {
	if !IsValidAccountNumber("0123456789") {
		t.Error("10 digits should be valid")
	}
	if IsValidAccountNumber("012345678") {
		t.Error("9 digits should be invalid")
	}
}

func TestIsValidRegNumber(t *testing.T) {
	for _, r := range []string{"RC123456", "bn1234567", "LTD12345"} {
		if !IsValidRegNumber(r) {
			t.Errorf("expected %q to be valid", r)
		}
	}
	if IsValidRegNumber("123456") {
		t.Error("bare digits should be invalid")
	}
}

func TestValidateCollectsErrors(t *testing.T) {
	errs := Validate(
		Required("name", ""),
		Email("email", "bad"),
		Phone("phone", "08012345678"),
	)
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %d: %v", len(errs), errs)
	}
	if errs.Error() == "" {
		t.Error("Error() should describe the first failure")
	}
}

func TestSanitizeString(t *testing.T) {
	if got := SanitizeString("  hello\x00world  ", 8); got != "hellowor" {
		t.Errorf("unexpected sanitized value %q", got)
	}
}
