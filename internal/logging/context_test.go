// CTGP Popularity - Track Popularity Aggregation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ctgp-popularity

package logging

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestGeneratedIDs(t *testing.T) {
	t.Parallel()

	if id := GenerateCorrelationID(); len(id) != 8 {
		t.Errorf("correlation ID length = %d, want 8", len(id))
	}
	if id := GenerateRequestID(); len(id) != 36 {
		t.Errorf("request ID length = %d, want 36", len(id))
	}
	if GenerateCorrelationID() == GenerateCorrelationID() {
		t.Error("correlation IDs should differ")
	}
}

func TestContextIDs(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if CorrelationIDFromContext(ctx) != "" || RequestIDFromContext(ctx) != "" {
		t.Fatal("empty context should carry no IDs")
	}

	ctx = ContextWithCorrelationID(ctx, "cycle-01")
	ctx = ContextWithRequestID(ctx, "req-456")
	if got := CorrelationIDFromContext(ctx); got != "cycle-01" {
		t.Errorf("CorrelationIDFromContext() = %q", got)
	}
	if got := RequestIDFromContext(ctx); got != "req-456" {
		t.Errorf("RequestIDFromContext() = %q", got)
	}

	fresh := ContextWithNewCorrelationID(context.Background())
	if len(CorrelationIDFromContext(fresh)) != 8 {
		t.Error("ContextWithNewCorrelationID should store an 8 character ID")
	}
}

func TestCtx_AddsContextFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := zerolog.New(&buf)

	ctx := ContextWithLogger(context.Background(), base)
	ctx = ContextWithCorrelationID(ctx, "abc12345")
	ctx = ContextWithRequestID(ctx, "req-1")

	Ctx(ctx).Info().Msg("refreshing")
	CtxWarn(ctx).Msg("slow page")
	CtxErr(ctx, errors.New("feed down")).Msg("failed")

	out := buf.String()
	for _, want := range []string{`"correlation_id":"abc12345"`, `"request_id":"req-1"`, `"error":"feed down"`, "slow page"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s: %s", want, out)
		}
	}
}

func TestCtxWith_ExtraFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	ctx := ContextWithLogger(context.Background(), zerolog.New(&buf))
	ctx = ContextWithCorrelationID(ctx, "c0ffee00")

	l := CtxWith(ctx).Str("track_set", "nintendo").Logger()
	l.Info().Msg("done")

	out := buf.String()
	if !strings.Contains(out, `"track_set":"nintendo"`) || !strings.Contains(out, `"correlation_id":"c0ffee00"`) {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestLoggerFromContext_FallsBackToGlobal(t *testing.T) {
	var buf bytes.Buffer
	prev := Logger()
	SetLogger(NewTestLogger(&buf))
	defer SetLogger(prev)

	l := LoggerFromContext(context.Background())
	l.Info().Msg("global")
	CtxInfo(context.Background()).Msg("also global")

	if strings.Count(buf.String(), "global") != 2 {
		t.Errorf("global logger not used: %s", buf.String())
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	prev := Logger()
	SetLogger(NewTestLogger(&buf))
	defer SetLogger(prev)

	l := WithComponent("wiki")
	l.Info().Msg("catalogue refreshed")

	if !strings.Contains(buf.String(), `"component":"wiki"`) {
		t.Errorf("component field missing: %s", buf.String())
	}
}
