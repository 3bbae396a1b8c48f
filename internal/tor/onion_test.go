package tor

import (
	"errors"
	"strings"
	"testing"
)

// Addresses derived from fixed public keys; no real service behind them.
const (
	// all-zero key
	zeroKeyOnion = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaam2dqd.onion"
	// key bytes 0..31
	seqKeyOnion = "aaaqeayeaudaocajbifqydiob4ibceqtcqkrmfyydenbwha5dyp3kead.onion"
)

func TestIsOnionHost(t *testing.T) {
	t.Parallel()

	tests := []struct {
		host string
		want bool
	}{
		{zeroKeyOnion, true},
		{strings.ToUpper(zeroKeyOnion), true},
		{zeroKeyOnion + ":8080", true},
		{"files." + seqKeyOnion, true},
		{zeroKeyOnion + ".", true},
		{"example.com", false},
		{"onion.example.com", false},
		{"127.0.0.1:9050", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsOnionHost(tt.host); got != tt.want {
			t.Errorf("IsOnionHost(%q) = %v, want %v", tt.host, got, tt.want)
		}
	}
}

func TestIsValidV3Address(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		address string
		want    bool
	}{
		{name: "zero key", address: zeroKeyOnion, want: true},
		{name: "sequential key", address: seqKeyOnion, want: true},
		{name: "uppercase", address: strings.ToUpper(zeroKeyOnion), want: true},
		{name: "bad checksum", address: strings.Replace(zeroKeyOnion, "m2dqd", "m2dqe", 1), want: false},
		{name: "v2 length", address: "expyuzz4wqqyqhjn.onion", want: false},
		{name: "invalid base32 digit", address: strings.Replace(zeroKeyOnion, "a", "1", 1), want: false},
		{name: "missing suffix", address: strings.TrimSuffix(zeroKeyOnion, OnionSuffix), want: false},
		{name: "empty", address: "", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := IsValidV3Address(tt.address); got != tt.want {
				t.Errorf("IsValidV3Address(%q) = %v, want %v", tt.address, got, tt.want)
			}
		})
	}
}

func TestAddressFromPublicKey(t *testing.T) {
	t.Parallel()

	key := make([]byte, 32)
	got, err := AddressFromPublicKey(key)
	if err != nil {
		t.Fatalf("AddressFromPublicKey() error = %v", err)
	}
	if got != zeroKeyOnion {
		t.Errorf("AddressFromPublicKey(zero) = %q, want %q", got, zeroKeyOnion)
	}

	for i := range key {
		key[i] = byte(i)
	}
	got, err = AddressFromPublicKey(key)
	if err != nil {
		t.Fatalf("AddressFromPublicKey() error = %v", err)
	}
	if got != seqKeyOnion {
		t.Errorf("AddressFromPublicKey(seq) = %q, want %q", got, seqKeyOnion)
	}
	if !IsValidV3Address(got) {
		t.Error("generated address does not validate")
	}

	if _, err := AddressFromPublicKey(key[:31]); !errors.Is(err, ErrInvalidOnionAddress) {
		t.Errorf("short key error = %v, want ErrInvalidOnionAddress", err)
	}
}

func TestNormalizeAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{name: "already normal", input: zeroKeyOnion, want: zeroKeyOnion},
		{name: "url with path", input: "http://" + strings.ToUpper(zeroKeyOnion) + "/files/?C=M", want: zeroKeyOnion},
		{name: "https with port", input: "https://" + seqKeyOnion + ":443/", want: seqKeyOnion},
		{name: "missing suffix", input: "  " + strings.TrimSuffix(seqKeyOnion, OnionSuffix) + " ", want: seqKeyOnion},
		{name: "v2", input: "expyuzz4wqqyqhjn.onion", wantErr: ErrV2AddressDeprecated},
		{name: "garbage", input: "example.com", wantErr: ErrInvalidOnionAddress},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := NormalizeAddress(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("NormalizeAddress() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizeAddress() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("NormalizeAddress() = %q, want %q", got, tt.want)
			}
		})
	}
}
