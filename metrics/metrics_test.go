package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveHTTP(t *testing.T) {
	c := HTTPRequests.WithLabelValues("POST", "/recommend-pets", "200")
	before := testutil.ToFloat64(c)
	ObserveHTTP("POST", "/recommend-pets", 200, 15*time.Millisecond)
	if got := testutil.ToFloat64(c); got != before+1 {
		t.Errorf("requests = %v, want %v", got, before+1)
	}
}

func TestObserveExtraction(t *testing.T) {
	ObserveExtraction(time.Millisecond, nil)
	ObserveExtraction(time.Millisecond, errors.New("model down"))
	if got := testutil.CollectAndCount(ExtractionDuration); got != 2 {
		t.Errorf("series = %d", got)
	}
}
