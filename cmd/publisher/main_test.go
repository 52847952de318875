package main

import "testing"

func TestGenerateBatch_SizeMatchesUniquePlusDuplicates(t *testing.T) {
	batch := generateBatch(70, 30)

	if len(batch) != 100 {
		t.Fatalf("len(batch) = %d, want 100", len(batch))
	}
}

func TestGenerateBatch_DuplicatesReuseExistingIDs(t *testing.T) {
	batch := generateBatch(5, 15)

	seen := make(map[string]bool)
	for _, e := range batch {
		seen[e.EventID] = true
	}

	if len(seen) > 5 {
		t.Errorf("got %d distinct event IDs, want at most 5", len(seen))
	}
}

func TestGenerateBatch_ZeroUniqueProducesNoDuplicates(t *testing.T) {
	batch := generateBatch(0, 10)

	if len(batch) != 0 {
		t.Errorf("len(batch) = %d, want 0 when there are no unique events to duplicate", len(batch))
	}
}

func TestDeriveStatsURL(t *testing.T) {
	cases := map[string]string{
		"http://eventpipe:8080/publish": "http://eventpipe:8080/stats",
		"http://localhost:8080/publish": "http://localhost:8080/stats",
		"http://localhost:8080":         "http://localhost:8080/stats",
	}

	for in, want := range cases {
		if got := deriveStatsURL(in); got != want {
			t.Errorf("deriveStatsURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGenerateEvent_ShapeMatchesPublishContract(t *testing.T) {
	e := generateEvent("order.created", "fixed-id")

	if e.Topic != "order.created" {
		t.Errorf("Topic = %q, want %q", e.Topic, "order.created")
	}

	if e.EventID != "fixed-id" {
		t.Errorf("EventID = %q, want %q", e.EventID, "fixed-id")
	}

	if e.Source != "publisher-service" {
		t.Errorf("Source = %q, want %q", e.Source, "publisher-service")
	}

	if _, ok := e.Payload["run_id"]; !ok {
		t.Error("Payload missing run_id")
	}
}
