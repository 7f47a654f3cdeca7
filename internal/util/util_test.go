package util

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoggerOr(t *testing.T) {
	nop := zap.NewNop()
	assert.Same(t, nop, LoggerOr(nop))
	assert.Same(t, GetLogger(), LoggerOr(nil))
}

func TestStartSpanWithoutTracer(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "Test.Span")
	defer span.End()

	require.NotNil(t, ctx)
	assert.NotNil(t, span)
}

func TestInitTracerWithoutEndpoint(t *testing.T) {
	tp, err := InitTracer(ServiceName, "")
	require.NoError(t, err)
	defer func() { _ = tp.Shutdown(context.Background()) }()

	_, span := StartSpan(context.Background(), "Test.Recorded")
	assert.True(t, span.SpanContext().IsValid())
	span.End()
}

func TestMalformedRecordsCounter(t *testing.T) {
	before := testutil.ToFloat64(MalformedRecordsTotal.WithLabelValues("inventory.txt"))
	MalformedRecordsTotal.WithLabelValues("inventory.txt").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(MalformedRecordsTotal.WithLabelValues("inventory.txt")))
}
