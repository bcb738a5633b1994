package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandlerExposesCollectors(t *testing.T) {
	m := New(func() int { return 3 }, func() int { return 1 })
	m.ObserveMutation("created")
	m.ObserveMutation("created")
	m.ObserveMutation("deleted")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		`masque_mask_mutations_total{op="created"} 2`,
		`masque_mask_mutations_total{op="deleted"} 1`,
		"masque_masks 3",
		"masque_sse_clients 1",
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("missing %q in metrics output", want)
		}
	}
}

func TestInstancesDoNotCollide(t *testing.T) {
	New(func() int { return 0 }, func() int { return 0 })
	New(func() int { return 0 }, func() int { return 0 })
}
