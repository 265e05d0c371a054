package authcore

import (
	"bytes"
	"testing"
)

func TestNewSecretMaterialRequiresSigningSecret(t *testing.T) {
	if _, err := NewSecretMaterial("   ", "x"); err == nil {
		t.Fatal("blank signing secret accepted")
	}
}

func TestSecretMaterialKeySeparation(t *testing.T) {
	s, err := NewSecretMaterial("signing", "sensitive")
	if err != nil {
		t.Fatalf("NewSecretMaterial: %v", err)
	}

	signing := s.SigningKey()
	sensitive := s.SensitiveKey()
	lookup := s.LookupKey()

	if len(signing) != 32 || len(sensitive) != 32 || len(lookup) != 32 {
		t.Fatalf("key lengths = %d/%d/%d", len(signing), len(sensitive), len(lookup))
	}
	if bytes.Equal(signing, sensitive) || bytes.Equal(sensitive, lookup) || bytes.Equal(signing, lookup) {
		t.Fatal("derived keys must not share material")
	}
}

func TestSecretMaterialSensitiveDefaultsToSigning(t *testing.T) {
	explicit, err := NewSecretMaterial("primary", "primary")
	if err != nil {
		t.Fatalf("NewSecretMaterial: %v", err)
	}
	defaulted, err := NewSecretMaterial("primary", "")
	if err != nil {
		t.Fatalf("NewSecretMaterial: %v", err)
	}

	if !bytes.Equal(explicit.SensitiveKey(), defaulted.SensitiveKey()) {
		t.Fatal("blank sensitive secret did not fall back to the signing secret")
	}
}

func TestSecretMaterialAccessorsReturnCopies(t *testing.T) {
	s, err := NewSecretMaterial("signing", "")
	if err != nil {
		t.Fatalf("NewSecretMaterial: %v", err)
	}

	key := s.SigningKey()
	key[0] ^= 0xFF

	if bytes.Equal(key, s.SigningKey()) {
		t.Fatal("accessor returned a live reference to internal key material")
	}
}
