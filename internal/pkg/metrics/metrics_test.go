package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

type fakePoolStat struct {
	acquired, idle, total int32
	waits                 int64
	acquire               time.Duration
}

func (s fakePoolStat) AcquiredConns() int32           { return s.acquired }
func (s fakePoolStat) IdleConns() int32               { return s.idle }
func (s fakePoolStat) TotalConns() int32              { return s.total }
func (s fakePoolStat) EmptyAcquireCount() int64       { return s.waits }
func (s fakePoolStat) AcquireDuration() time.Duration { return s.acquire }

func value(t *testing.T, m prometheus.Metric) float64 {
	t.Helper()
	var out dto.Metric
	if err := m.Write(&out); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	if out.Gauge != nil {
		return out.GetGauge().GetValue()
	}
	return out.GetCounter().GetValue()
}

func TestUpdateDBPoolMetrics(t *testing.T) {
	waitsBefore := value(t, DBPoolWaitCount)
	secondsBefore := value(t, DBPoolWaitSeconds)

	UpdateDBPoolMetrics(fakePoolStat{acquired: 2, idle: 3, total: 5, waits: 4, acquire: 2 * time.Second})
	UpdateDBPoolMetrics(fakePoolStat{acquired: 1, idle: 4, total: 5, waits: 6, acquire: 3 * time.Second})

	if got := value(t, DBPoolConnsOpen); got != 5 {
		t.Errorf("expected 5 open conns, got %v", got)
	}
	if got := value(t, DBPoolConnsAcquired); got != 1 {
		t.Errorf("expected 1 acquired conn, got %v", got)
	}
	if got := value(t, DBPoolWaitCount) - waitsBefore; got != 6 {
		t.Errorf("expected wait count to advance by 6, got %v", got)
	}
	if got := value(t, DBPoolWaitSeconds) - secondsBefore; got != 3 {
		t.Errorf("expected 3s of acquire time, got %v", got)
	}

	// A fresh pool starts its totals over.
	UpdateDBPoolMetrics(fakePoolStat{total: 1, waits: 1, acquire: time.Second})
	if got := value(t, DBPoolWaitCount) - waitsBefore; got != 7 {
		t.Errorf("expected wait count 7 after pool restart, got %v", got)
	}
}

func TestUpdateDBPoolMetrics_IgnoresUnknownStat(t *testing.T) {
	UpdateDBPoolMetrics(struct{}{})
}
