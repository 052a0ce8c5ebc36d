package observability

import (
	"strings"
	"testing"
	"time"
)

func TestCounterVecExposition(t *testing.T) {
	c := NewCounterVec("test_requests_total", "Test requests.", []string{"method", "status"})
	c.Inc("GET", "200")
	c.Inc("GET", "200")
	c.Add(3, "POST", "500")

	var b strings.Builder
	if err := c.WritePrometheus(&b); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := b.String()

	if !strings.Contains(out, "# TYPE test_requests_total counter") {
		t.Errorf("missing TYPE line:\n%s", out)
	}
	if !strings.Contains(out, `test_requests_total{method="GET",status="200"} 2.0`) {
		t.Errorf("missing GET sample:\n%s", out)
	}
	if !strings.Contains(out, `test_requests_total{method="POST",status="500"} 3.0`) {
		t.Errorf("missing POST sample:\n%s", out)
	}
}

func TestCounterVecMissingLabelValue(t *testing.T) {
	c := NewCounterVec("test_total", "Test.", []string{"a", "b"})
	c.Inc("only-a")

	var b strings.Builder
	if err := c.WritePrometheus(&b); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !strings.Contains(b.String(), `{a="only-a",b="unknown"}`) {
		t.Errorf("missing label not defaulted to unknown:\n%s", b.String())
	}
}

func TestEscapeLabel(t *testing.T) {
	cases := map[string]string{
		`plain`:       `plain`,
		`with"quote`:  `with\"quote`,
		"with\nbreak": `with\nbreak`,
		`back\slash`:  `back\\slash`,
	}
	for in, want := range cases {
		if got := escapeLabel(in); got != want {
			t.Errorf("escapeLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestHistogramVecBuckets(t *testing.T) {
	h := NewHistogramVec("test_seconds", "Test latency.", []string{"route"}, []float64{0.1, 1})
	h.Observe(0.05, "/a")
	h.Observe(0.5, "/a")
	h.Observe(5, "/a")

	var b strings.Builder
	if err := h.WritePrometheus(&b); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := b.String()

	if !strings.Contains(out, `test_seconds_bucket{route="/a",le="0.1"} 1`) {
		t.Errorf("le=0.1 bucket wrong:\n%s", out)
	}
	if !strings.Contains(out, `test_seconds_bucket{route="/a",le="1"} 2`) {
		t.Errorf("le=1 bucket wrong:\n%s", out)
	}
	if !strings.Contains(out, `test_seconds_bucket{route="/a",le="+Inf"} 3`) {
		t.Errorf("+Inf bucket wrong:\n%s", out)
	}
	if !strings.Contains(out, `test_seconds_count{route="/a"} 3`) {
		t.Errorf("count wrong:\n%s", out)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/x", "200", time.Second)
	m.APIInflightInc()
	m.APIInflightDec()
	m.IncWebhookEvent("checkout.session.completed", "ok")
	m.IncOrder("paid")
	m.AddTicketsIssued(2)
	m.IncEmailSent()
	if err := m.WritePrometheus(&strings.Builder{}); err != nil {
		t.Fatalf("nil WritePrometheus: %v", err)
	}

	var c *Counter
	c.Inc()
	var g *Gauge
	g.Set(1)
	var cv *CounterVec
	cv.Inc("x")
	var hv *HistogramVec
	hv.Observe(1, "x")
}
