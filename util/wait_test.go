// Copyright The ovirt-iso-upload Authors
// SPDX-License-Identifier: Apache-2.0

package util

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestWaitUntilReady(t *testing.T) {
	checks := 0
	err := WaitUntilReady(time.Second, time.Millisecond, func() (bool, error) {
		checks++
		return checks >= 3, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if checks != 3 {
		t.Fatalf("check ran %d times, want 3", checks)
	}
}

func TestWaitUntilReadyTimeout(t *testing.T) {
	err := WaitUntilReady(10*time.Millisecond, time.Millisecond, func() (bool, error) {
		return false, nil
	})
	if err == nil {
		t.Fatal("expected a timeout")
	}
	if !strings.Contains(err.Error(), "time limit exceeded") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWaitUntilReadyCheckError(t *testing.T) {
	err := WaitUntilReady(time.Second, time.Millisecond, func() (bool, error) {
		return false, fmt.Errorf("remote says no")
	})
	if err == nil || !strings.Contains(err.Error(), "remote says no") {
		t.Fatalf("unexpected error: %v", err)
	}
}
