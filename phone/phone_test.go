package phone

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct{ in, want string }{
		{"0912345678", "0912345678"},
		{"84912345678", "0912345678"},
		{"+84 912 345 678", "0912345678"},
		{"091-234-5678", "0912345678"},
		{"912345678", "0912345678"},
		{"(09) 1234.5678", "0912345678"},
		{"", ""},
		{"abc", ""},
	}
	for _, c := range cases {
		if got := Normalize(c.in); got != c.want {
			t.Errorf("Normalize(%q) = %q want %q", c.in, got, c.want)
		}
	}
}

func TestValid(t *testing.T) {
	valid := []string{"0912345678", "84912345678", "+84 912 345 678", "912345678"}
	for _, v := range valid {
		if !Valid(v) {
			t.Errorf("Valid(%q) = false want true", v)
		}
	}
	invalid := []string{"", "091234567", "09123456789", "8491234567", "hello"}
	for _, v := range invalid {
		if Valid(v) {
			t.Errorf("Valid(%q) = true want false", v)
		}
	}
}

func TestMask(t *testing.T) {
	if got := Mask("84912345678"); got != "091****678" {
		t.Errorf("Mask = %q want 091****678", got)
	}
	if got := Mask("0912345678"); got != "091****678" {
		t.Errorf("Mask = %q want 091****678", got)
	}
	if got := Mask("12345"); got != "012345" {
		t.Errorf("short number Mask = %q want 012345", got)
	}
}

func TestSameCanonicalForm(t *testing.T) {
	a, b := Normalize("84 91 234 5678"), Normalize("091.234.5678")
	if a != b {
		t.Fatalf("%q and %q should normalize to the same key", a, b)
	}
}
