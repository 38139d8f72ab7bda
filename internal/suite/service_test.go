package suite

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taoyao-code/deploy-sentinel/internal/check"
	"github.com/taoyao-code/deploy-sentinel/internal/metrics"
	"github.com/taoyao-code/deploy-sentinel/internal/notify"
)

type recordingMailer struct{ calls atomic.Int32 }

func (m *recordingMailer) Send(context.Context, string, string) error {
	m.calls.Add(1)
	return nil
}

func passing(name, category string) check.Check {
	return check.Check{Name: name, Category: category, Required: true,
		Probe: func(context.Context, *check.RunContext) error { return nil }}
}

func failing(name, category string) check.Check {
	return check.Check{Name: name, Category: category, Required: true,
		Probe: func(context.Context, *check.RunContext) error { return errors.New("HTTP 500") }}
}

func newTestService(mailer notify.Mailer, statusChecks, e2eChecks []check.Check) (*Service, *metrics.AppMetrics) {
	m := metrics.NewAppMetrics(metrics.NewRegistry())
	orch := check.NewOrchestrator(check.NewRunner(nil), check.NewAggregator(nil), nil, nil)
	n := notify.NewNotifier(mailer, "deploy-sentinel", nil, m)
	return NewService(orch, n, m, nil, statusChecks, e2eChecks), m
}

func TestService_RunStatus(t *testing.T) {
	t.Run("全部通过_更新指标且不告警", func(t *testing.T) {
		mailer := &recordingMailer{}
		svc, m := newTestService(mailer, []check.Check{
			passing("Public Site", "Site"),
			passing("Demo Application", "Demo"),
		}, nil)

		report := svc.RunStatus(context.Background())

		require.Equal(t, check.OverallOK, report.OverallStatus)
		assert.Zero(t, mailer.calls.Load())
		assert.Equal(t, float64(0), testutil.ToFloat64(m.RunLastStatus))
		assert.Equal(t, float64(1),
			testutil.ToFloat64(m.RunTotal.WithLabelValues("parallel", "ok")))
		assert.Equal(t, float64(2),
			testutil.ToFloat64(m.CheckTotal.WithLabelValues("Site", "passed"))+
				testutil.ToFloat64(m.CheckTotal.WithLabelValues("Demo", "passed")))
	})

	t.Run("含失败_告警恰好一次", func(t *testing.T) {
		mailer := &recordingMailer{}
		svc, m := newTestService(mailer, []check.Check{
			passing("Public Site", "Site"),
			failing("Demo Application", "Demo"),
		}, nil)

		report := svc.RunStatus(context.Background())

		require.Equal(t, check.OverallDegraded, report.OverallStatus)
		assert.Equal(t, int32(1), mailer.calls.Load())
		assert.Equal(t, float64(1), testutil.ToFloat64(m.RunLastStatus))
	})
}

func TestService_RunFull(t *testing.T) {
	mailer := &recordingMailer{}
	svc, m := newTestService(mailer, nil, []check.Check{
		passing("Create Session", "Database"),
		passing("Verify Session Persisted", "Database"),
	})

	report := svc.RunFull(context.Background())

	require.Equal(t, check.OverallOK, report.OverallStatus)
	assert.Equal(t, float64(1),
		testutil.ToFloat64(m.RunTotal.WithLabelValues("sequential", "ok")))
	assert.Zero(t, mailer.calls.Load())
}

func TestService_AppendStatusChecks(t *testing.T) {
	svc, _ := newTestService(nil, []check.Check{passing("Public Site", "Site")}, nil)
	svc.AppendStatusChecks([]check.Check{passing("Docs Site", "Custom")})

	report := svc.RunStatus(context.Background())
	require.Len(t, report.Outcomes, 2)
	assert.Equal(t, "Docs Site", report.Outcomes[1].Name)
}
