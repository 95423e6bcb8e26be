// Copyright The ovirt-iso-upload Authors
// SPDX-License-Identifier: Apache-2.0

package util

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// writeISO writes a minimal file carrying an ISO 9660 primary volume
// descriptor signature at the standard offset.
func writeISO(t *testing.T, sig []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.iso")
	data := make([]byte, isoSignatureOffset+2048)
	copy(data[isoSignatureOffset:], sig)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestVerifyISO(t *testing.T) {
	if err := VerifyISO(writeISO(t, isoSignature)); err != nil {
		t.Fatalf("valid signature rejected: %v", err)
	}
}

func TestVerifyISOBadSignature(t *testing.T) {
	for _, sig := range [][]byte{
		nil, // zeroes
		[]byte("CD001\x01\x00\x00"),
		[]byte{0x01, 'C', 'D', '0', '0', '2', 0x01, 0x00},
	} {
		err := VerifyISO(writeISO(t, sig))
		if err == nil {
			t.Fatalf("signature %q was accepted", sig)
		}
		if !strings.Contains(err.Error(), "not an ISO 9660 image") {
			t.Fatalf("unexpected error: %v", err)
		}
	}
}

func TestVerifyISOTooSmall(t *testing.T) {
	path := filepath.Join(t.TempDir(), "small.iso")
	if err := os.WriteFile(path, make([]byte, 512), 0644); err != nil {
		t.Fatal(err)
	}

	err := VerifyISO(path)
	if err == nil {
		t.Fatal("truncated file was accepted")
	}
	if !strings.Contains(err.Error(), "too small") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestVerifyISOMissingFile(t *testing.T) {
	if err := VerifyISO(filepath.Join(t.TempDir(), "nope.iso")); err == nil {
		t.Fatal("missing file was accepted")
	}
}

func TestGetImageInfo(t *testing.T) {
	path := writeISO(t, isoSignature)

	info, err := GetImageInfo(path)
	if err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			t.Skip(err)
		}
		t.Fatal(err)
	}

	if info.Format != "raw" {
		t.Fatalf("format = %q, want raw", info.Format)
	}
	if info.VirtualSize == 0 {
		t.Fatal("virtual size not reported")
	}
}
