package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	domain "github.com/operationseasyfi/ai-voice-agent/internal/domain/intake"
	"github.com/operationseasyfi/ai-voice-agent/internal/service/callrecord"
	"github.com/operationseasyfi/ai-voice-agent/internal/service/callrouting"
	"github.com/operationseasyfi/ai-voice-agent/internal/service/intake"
)

var (
	_ intake.MetricsCollector      = (*Registry)(nil)
	_ callrouting.MetricsCollector = (*Registry)(nil)
	_ callrecord.MetricsCollector  = (*Registry)(nil)
)

func TestRegistry_Counters(t *testing.T) {
	r := NewRegistry(prometheus.NewRegistry())
	ctx := context.Background()

	r.RecordTurn(ctx, domain.StepLoanAmount, intake.DirectiveReask, 2*time.Millisecond)
	r.RecordTurn(ctx, domain.StepLoanAmount, intake.DirectiveReask, 3*time.Millisecond)
	r.RecordOptOut(ctx, domain.StepEmployment)
	r.RecordTransfer(ctx, domain.TierMid, true)
	r.RecordRoutingDecision(ctx, &callrouting.Decision{Tier: domain.TierHigh, TotalDebt: 40000})
	r.RecordPersistence(ctx, callrecord.OutcomeSuccess)
	r.RecordRecordingLookup(ctx, callrecord.OutcomeNotFound)
	r.RecordDNCEntry(ctx, callrecord.OutcomeFailed)
	r.ObserveHTTPRequest("POST", "/v1/calls/turn", 200, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.turnsTotal.WithLabelValues("loan_amount", "reask")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.optOutsTotal.WithLabelValues("employment")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.transfersTotal.WithLabelValues("MID", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.routingDecision.WithLabelValues("HIGH", "none")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.persistenceTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.recordingLookups.WithLabelValues("not_found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.dncEntriesTotal.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.httpRequestsTotal.WithLabelValues("POST", "/v1/calls/turn", "200")))
}

func TestNewRegistry_SeparateRegisterers(t *testing.T) {
	assert.NotPanics(t, func() {
		NewRegistry(prometheus.NewRegistry())
		NewRegistry(prometheus.NewRegistry())
	})
}
