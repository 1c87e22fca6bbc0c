// SPDX-FileCopyrightText: Copyright 2026 The authcore Authors
// SPDX-License-Identifier: Apache-2.0

package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setForTest(t *testing.T) *bytes.Buffer {
	t.Helper()
	prev := singleton.Load()
	var buf bytes.Buffer
	Set(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { singleton.Store(prev) })
	return &buf
}

func TestLogLevels(t *testing.T) { //nolint:paralleltest // mutates shared singleton
	tests := []struct {
		name string
		log  func()
		want string
	}{
		{"debug", func() { Debug("hello") }, "hello"},
		{"debugw", func() { Debugw("hello", "k", "v") }, "hello"},
		{"info", func() { Info("hello") }, "hello"},
		{"infow", func() { Infow("hello", "k", "v") }, "hello"},
		{"warn", func() { Warn("hello") }, "hello"},
		{"warnw", func() { Warnw("hello", "k", "v") }, "hello"},
		{"error", func() { Error("hello") }, "hello"},
		{"errorw", func() { Errorw("hello", "err", assert.AnError) }, "hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := setForTest(t)
			tt.log()

			var entry map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
			assert.Equal(t, tt.want, entry["msg"])
		})
	}
}

func TestSetIgnoresNil(t *testing.T) { //nolint:paralleltest // mutates shared singleton
	before := get()
	Set(nil)
	assert.Same(t, before, get())
}
