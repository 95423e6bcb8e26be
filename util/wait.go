// Copyright The ovirt-iso-upload Authors
// SPDX-License-Identifier: Apache-2.0

package util

import (
	"fmt"
	"time"
)

// WaitUntilReady polls checkFunction every delay until it reports done, an
// error, or timeout expires. The first check happens after one delay has
// passed, never sooner, so remote APIs are not hammered right after a
// mutating call.
func WaitUntilReady(timeout, delay time.Duration, checkFunction func() (bool, error)) error {
	after := time.After(timeout)
	for {
		select {
		case <-after:
			return fmt.Errorf("time limit exceeded")
		default:
		}

		time.Sleep(delay)

		done, err := checkFunction()
		if err != nil {
			return err
		}

		if done {
			break
		}
	}
	return nil
}
