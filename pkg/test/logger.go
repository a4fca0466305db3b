// SPDX-License-Identifier: AGPL-3.0-only

// Package test holds helpers shared by the package tests.
package test

import (
	"testing"

	"github.com/go-kit/log"
)

type testingLogger struct {
	t testing.TB
}

// NewTestingLogger returns a logger that writes through t.Log, so the
// output is only shown for failed or verbose tests.
func NewTestingLogger(t testing.TB) log.Logger {
	return &testingLogger{t: t}
}

func (l *testingLogger) Log(keyvals ...interface{}) error {
	l.t.Helper()
	l.t.Log(keyvals...)
	return nil
}
