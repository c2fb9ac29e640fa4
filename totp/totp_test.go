package totp

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

var rfcSecret = []byte("12345678901234567890")

func TestGenerateRFC4226Vectors(t *testing.T) {
	// Appendix D of RFC 4226, 6-digit codes for counters 0..9.
	want := []string{
		"755224", "287082", "359152", "969429", "338314",
		"254676", "287922", "162583", "399871", "520489",
	}

	for counter, code := range want {
		got, err := Generate(rfcSecret, uint64(counter), 6)
		if err != nil {
			t.Fatalf("Generate(counter=%d) failed: %v", counter, err)
		}
		if got != code {
			t.Fatalf("Generate(counter=%d) = %q, want %q", counter, got, code)
		}
	}
}

func TestGenerateRFC6238Vectors(t *testing.T) {
	// Appendix B of RFC 6238, SHA-1 column, 8-digit codes.
	cases := []struct {
		ts   int64
		code string
	}{
		{59, "94287082"},
		{1111111109, "07081804"},
		{1111111111, "14050471"},
		{1234567890, "89005924"},
		{2000000000, "69279037"},
		{20000000000, "65353130"},
	}

	for _, tc := range cases {
		counter := uint64(tc.ts / 30)
		got, err := Generate(rfcSecret, counter, 8)
		if err != nil {
			t.Fatalf("Generate(t=%d) failed: %v", tc.ts, err)
		}
		if got != tc.code {
			t.Fatalf("Generate(t=%d) = %q, want %q", tc.ts, got, tc.code)
		}
	}
}

func TestGenerateShapeAcrossDigitWidths(t *testing.T) {
	for digits := MinDigits; digits <= MaxDigits; digits++ {
		for counter := uint64(0); counter < 50; counter++ {
			code, err := Generate(rfcSecret, counter, digits)
			if err != nil {
				t.Fatalf("Generate(digits=%d, counter=%d) failed: %v", digits, counter, err)
			}
			if len(code) != digits {
				t.Fatalf("Generate(digits=%d, counter=%d) = %q, wrong width", digits, counter, code)
			}
			for i := 0; i < len(code); i++ {
				if code[i] < '0' || code[i] > '9' {
					t.Fatalf("Generate(digits=%d, counter=%d) = %q, non-digit at %d", digits, counter, code, i)
				}
			}
		}
	}
}

func TestGenerateRejectsBadDigits(t *testing.T) {
	for _, digits := range []int{-1, 0, 5, 11} {
		if _, err := Generate(rfcSecret, 0, digits); err == nil {
			t.Fatalf("Generate accepted digits=%d", digits)
		}
	}
}

func TestDecodeBase32(t *testing.T) {
	cases := []struct {
		in   string
		want []byte
	}{
		{"JBSWY3DPEHPK3PXP", []byte{0x48, 0x65, 0x6c, 0x6c, 0x6f, 0x21, 0xde, 0xad, 0xbe, 0xef}},
		{"jbswy3dpehpk3pxp", []byte{0x48, 0x65, 0x6c, 0x6c, 0x6f, 0x21, 0xde, 0xad, 0xbe, 0xef}},
		{"JBSW Y3DP EHPK 3PXP", []byte{0x48, 0x65, 0x6c, 0x6c, 0x6f, 0x21, 0xde, 0xad, 0xbe, 0xef}},
		{"MZXW6===", []byte("foo")},
		{"MZXW6", []byte("foo")},
	}

	for _, tc := range cases {
		got := DecodeBase32(tc.in)
		if !bytes.Equal(got, tc.want) {
			t.Fatalf("DecodeBase32(%q) = %x, want %x", tc.in, got, tc.want)
		}
	}
}

func TestDecodeBase32RejectsInvalidInput(t *testing.T) {
	for _, in := range []string{"", "   ", "====", "MZXW1", "MZXW0", "MZXW8", "not!base32", "ABC$DEF"} {
		if got := DecodeBase32(in); got != nil {
			t.Fatalf("DecodeBase32(%q) = %x, want nil", in, got)
		}
	}
}

func TestBase32RoundTrip(t *testing.T) {
	for _, canonical := range []string{"MZXW6", "JBSWY3DPEHPK3PXP", "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"} {
		raw := DecodeBase32(canonical)
		if raw == nil {
			t.Fatalf("DecodeBase32(%q) = nil", canonical)
		}
		again := DecodeBase32(EncodeBase32(raw))
		if !bytes.Equal(raw, again) {
			t.Fatalf("round trip of %q: %x != %x", canonical, raw, again)
		}
		if EncodeBase32(raw) != canonical {
			t.Fatalf("EncodeBase32 not canonical for %q: got %q", canonical, EncodeBase32(raw))
		}
	}
}

func TestVerifyWindow(t *testing.T) {
	params := Params{Issuer: "arkivault", Digits: 6, Period: 30, Skew: 1}
	secret := EncodeBase32(rfcSecret)
	now := time.Unix(1111111111, 0)

	codeAt := func(offsetSteps int64) string {
		counter := uint64(now.Unix()/30 + offsetSteps)
		code, err := Generate(rfcSecret, counter, 6)
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		return code
	}

	if !params.Verify(secret, codeAt(0), now) {
		t.Fatal("current-step code rejected")
	}
	if !params.Verify(secret, codeAt(-1), now) {
		t.Fatal("previous-step code rejected within skew")
	}
	if !params.Verify(secret, codeAt(1), now) {
		t.Fatal("next-step code rejected within skew")
	}
	if params.Verify(secret, codeAt(-2), now) {
		t.Fatal("two-steps-old code accepted")
	}
	if params.Verify(secret, codeAt(2), now) {
		t.Fatal("two-steps-ahead code accepted")
	}
}

func TestVerifyStructuralFailuresReturnFalse(t *testing.T) {
	params := Params{Digits: 6, Period: 30, Skew: 1}
	secret := EncodeBase32(rfcSecret)
	now := time.Unix(1111111111, 0)

	cases := []struct {
		name   string
		secret string
		token  string
	}{
		{"empty token", secret, ""},
		{"short token", secret, "12345"},
		{"long token", secret, "1234567"},
		{"alpha token", secret, "12345a"},
		{"empty secret", "", "123456"},
		{"invalid secret", "not!base32", "123456"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if params.Verify(tc.secret, tc.token, now) {
				t.Fatal("expected false")
			}
		})
	}
}

func TestVerifyTrimsWhitespace(t *testing.T) {
	params := Params{Digits: 6, Period: 30, Skew: 1}
	now := time.Unix(59, 0)
	code, err := Generate(rfcSecret, uint64(now.Unix()/30), 6)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !params.Verify(EncodeBase32(rfcSecret), "  "+code+"\n", now) {
		t.Fatal("whitespace-wrapped code rejected")
	}
}

func TestGenerateSecretIsCanonical(t *testing.T) {
	raw, encoded, err := GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret failed: %v", err)
	}
	if len(raw) != secretBytes {
		t.Fatalf("secret is %d bytes, want %d", len(raw), secretBytes)
	}
	if !bytes.Equal(DecodeBase32(encoded), raw) {
		t.Fatal("encoded secret does not decode to the raw bytes")
	}
}

func TestProvisionURI(t *testing.T) {
	params := Params{Issuer: "Arkivault", Digits: 6, Period: 30}
	uri := params.ProvisionURI("JBSWY3DPEHPK3PXP", "alice@example.com")

	wantPrefix := "otpauth://totp/Arkivault:alice@example.com?"
	if len(uri) < len(wantPrefix) || uri[:len(wantPrefix)] != wantPrefix {
		t.Fatalf("unexpected URI prefix: %q", uri)
	}
	for _, fragment := range []string{"secret=JBSWY3DPEHPK3PXP", "issuer=Arkivault", "digits=6", "period=30", "algorithm=SHA1"} {
		if !strings.Contains(uri, fragment) {
			t.Fatalf("URI %q missing %q", uri, fragment)
		}
	}
}
