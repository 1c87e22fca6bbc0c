// SPDX-FileCopyrightText: Copyright 2026 The authcore Authors
// SPDX-License-Identifier: Apache-2.0

// Package logger provides the package-level structured logger used across
// the authorization-server core. It wraps log/slog behind a singleton so
// that pipeline packages can log without threading a logger through every
// constructor.
package logger

import (
	"log/slog"
	"os"
	"sync/atomic"
)

var singleton atomic.Pointer[slog.Logger]

func init() {
	singleton.Store(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))
}

// Set replaces the package-level logger. Intended for host applications that
// want their own slog handler (and for tests).
func Set(l *slog.Logger) {
	if l == nil {
		return
	}
	singleton.Store(l)
}

func get() *slog.Logger {
	return singleton.Load()
}

// Debug logs a static debug message.
func Debug(msg string) { get().Debug(msg) }

// Debugw logs a debug message with structured key-value pairs.
func Debugw(msg string, kv ...any) { get().Debug(msg, kv...) }

// Info logs a static info message.
func Info(msg string) { get().Info(msg) }

// Infow logs an info message with structured key-value pairs.
func Infow(msg string, kv ...any) { get().Info(msg, kv...) }

// Warn logs a static warning message.
func Warn(msg string) { get().Warn(msg) }

// Warnw logs a warning message with structured key-value pairs.
func Warnw(msg string, kv ...any) { get().Warn(msg, kv...) }

// Error logs a static error message.
func Error(msg string) { get().Error(msg) }

// Errorw logs an error message with structured key-value pairs. The error
// value, if present, should be passed as kv["err"] by convention:
// logger.Errorw("mint failed", "err", err).
func Errorw(msg string, kv ...any) { get().Error(msg, kv...) }
