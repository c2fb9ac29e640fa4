package password

import (
	"strings"
	"testing"
)

// fastParams keeps the tests quick while staying above the validation floor.
func fastParams() Params {
	return Params{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   16,
	}
}

func newTestHasher(t *testing.T) *Hasher {
	t.Helper()
	h, err := NewHasher(fastParams())
	if err != nil {
		t.Fatalf("NewHasher failed: %v", err)
	}
	return h
}

func TestHashAndVerify(t *testing.T) {
	h := newTestHasher(t)

	encoded, err := h.Hash("password123")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$v=") {
		t.Fatalf("unexpected PHC prefix: %q", encoded)
	}

	if !h.Verify(encoded, "password123") {
		t.Fatal("correct secret rejected")
	}
	if h.Verify(encoded, "password124") {
		t.Fatal("wrong secret accepted")
	}
	if h.Verify(encoded, "") {
		t.Fatal("empty secret accepted")
	}
}

func TestHashSaltIsFresh(t *testing.T) {
	h := newTestHasher(t)

	a, err := h.Hash("password123")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	b, err := h.Hash("password123")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if a == b {
		t.Fatal("two hashes of the same secret are identical")
	}
}

func TestVerifyMalformedHashNeverErrors(t *testing.T) {
	h := newTestHasher(t)

	malformed := []string{
		"",
		"plaintext",
		"$argon2id$v=19$m=8192,t=1,p=1$short",
		"$argon2id$v=19$m=8192,t=1,p=1$!!!$!!!",
		"$argon2id$v=19$m=0,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaGhhc2hoYXNoaGFzaA",
		"$argon2i$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaGhhc2hoYXNoaGFzaA",
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaGhhc2hoYXNoaGFzaA",
		"$argon2id$v=19$m=8192,t=1,p=999$c2FsdHNhbHRzYWx0c2FsdA$aGFzaGhhc2hoYXNoaGFzaA",
	}

	for _, encoded := range malformed {
		if h.Verify(encoded, "password123") {
			t.Fatalf("malformed hash %q verified", encoded)
		}
		if _, usable := h.VerifyUsable(encoded, "password123"); usable {
			t.Fatalf("malformed hash %q reported usable", encoded)
		}
	}
}

func TestVerifyUsableDistinguishesMismatch(t *testing.T) {
	h := newTestHasher(t)

	encoded, err := h.Hash("recovery-code-1")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	match, usable := h.VerifyUsable(encoded, "recovery-code-2")
	if !usable {
		t.Fatal("well-formed hash reported unusable")
	}
	if match {
		t.Fatal("wrong secret matched")
	}
}

func TestNeedsUpgrade(t *testing.T) {
	weak := newTestHasher(t)
	encoded, err := weak.Hash("password123")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	stronger := fastParams()
	stronger.Time = 3
	h2, err := NewHasher(stronger)
	if err != nil {
		t.Fatalf("NewHasher failed: %v", err)
	}

	if up, err := weak.NeedsUpgrade(encoded); err != nil || up {
		t.Fatalf("same-params hash flagged for upgrade: %v %v", up, err)
	}
	if up, err := h2.NeedsUpgrade(encoded); err != nil || !up {
		t.Fatalf("weaker hash not flagged for upgrade: %v %v", up, err)
	}
	if _, err := h2.NeedsUpgrade("garbage"); err == nil {
		t.Fatal("NeedsUpgrade accepted a malformed hash")
	}
}

func TestNewHasherRejectsWeakParams(t *testing.T) {
	cases := []func(*Params){
		func(p *Params) { p.Memory = 1024 },
		func(p *Params) { p.Time = 0 },
		func(p *Params) { p.Parallelism = 0 },
		func(p *Params) { p.SaltLength = 8 },
		func(p *Params) { p.KeyLength = 8 },
	}

	for i, mutate := range cases {
		p := fastParams()
		mutate(&p)
		if _, err := NewHasher(p); err == nil {
			t.Fatalf("case %d: weak params accepted", i)
		}
	}
}
