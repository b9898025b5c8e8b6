package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"horizon/internal/infrastructure/crypto"
)

const testKey = "01234567890123456789012345678901"

func TestRevealSharableID(t *testing.T) {
	enc, err := crypto.NewEncryptor(testKey)
	if err != nil {
		t.Fatalf("NewEncryptor() error = %v", err)
	}
	sealed, err := enc.Seal("acc-123")
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}

	got, err := revealSharableID(testKey, sealed)
	if err != nil || got != "acc-123" {
		t.Errorf("revealSharableID() = %q, %v", got, err)
	}

	if _, err := revealSharableID(testKey, "not-a-sharable-id"); err == nil {
		t.Error("expected error for garbage input")
	}
	if _, err := revealSharableID("short", sealed); err == nil {
		t.Error("expected error for invalid key")
	}
}

func TestRun_UsageErrors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantOut string
	}{
		{name: "no command", args: nil, wantOut: "Usage:"},
		{name: "unknown command", args: []string{"drop-everything"}, wantOut: "Unknown command: drop-everything"},
		{name: "reveal without id", args: []string{"reveal-sharable-id"}, wantOut: "--id is required"},
		{name: "bad flag", args: []string{"migrate", "--timeout=soon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := run(tt.args, &out)
			if !errors.Is(err, errUsage) {
				t.Fatalf("run() error = %v, want errUsage", err)
			}
			if !strings.Contains(out.String(), tt.wantOut) {
				t.Errorf("output = %q, want it to contain %q", out.String(), tt.wantOut)
			}
		})
	}
}

func TestRun_Help(t *testing.T) {
	var out bytes.Buffer
	if err := run([]string{"help"}, &out); err != nil {
		t.Fatalf("run(help) error = %v", err)
	}
	if !strings.Contains(out.String(), "reveal-sharable-id") {
		t.Errorf("help output missing commands: %q", out.String())
	}
}

func TestRun_RevealSharableID(t *testing.T) {
	t.Setenv("ENCRYPTION_KEY", testKey)
	t.Setenv("PLAID_CLIENT_ID", "plaid-client")
	t.Setenv("PLAID_SECRET", "plaid-secret")
	t.Setenv("DWOLLA_KEY", "dwolla-key")
	t.Setenv("DWOLLA_SECRET", "dwolla-secret")

	enc, err := crypto.NewEncryptor(testKey)
	if err != nil {
		t.Fatalf("NewEncryptor() error = %v", err)
	}
	sealed, err := enc.Seal("acc-456")
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}

	var out bytes.Buffer
	if err := run([]string{"reveal-sharable-id", "--id=" + sealed}, &out); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "acc-456" {
		t.Errorf("output = %q, want acc-456", got)
	}

	out.Reset()
	err = run([]string{"reveal-sharable-id", "--id=garbage"}, &out)
	if err == nil || errors.Is(err, errUsage) {
		t.Errorf("run() error = %v, want a reveal failure", err)
	}
}
