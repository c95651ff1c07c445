package gossip

import (
	"testing"
	"time"
)

func TestSampler_EmptyTableReturnsEmpty(t *testing.T) {
	table := NewTable()
	s := newSampler(table, idFor(0), time.Now())

	got := s.sample(3, idFor(0))
	if len(got) != 0 {
		t.Fatalf("expected empty sample from empty table, got %d", len(got))
	}
}

func TestSampler_KZeroReturnsEmpty(t *testing.T) {
	table := NewTable()
	table.InsertOrMerge(NodeView{ID: idFor(1)}, time.Now())
	s := newSampler(table, idFor(0), time.Now())

	got := s.sample(0, idFor(0))
	if len(got) != 0 {
		t.Fatalf("expected empty sample when k=0, got %d", len(got))
	}
}

func TestSampler_ExcludesGivenIdentity(t *testing.T) {
	table := NewTable()
	now := time.Now()
	table.InsertOrMerge(NodeView{ID: idFor(1)}, now)
	table.InsertOrMerge(NodeView{ID: idFor(2)}, now)
	s := newSampler(table, idFor(0), now)

	got := s.sample(5, idFor(1))
	for _, v := range got {
		if v.ID == idFor(1) {
			t.Fatalf("expected excluded identity not to appear in sample")
		}
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 remaining candidate, got %d", len(got))
	}
}

func TestSampler_ReturnsFewerThanKWhenCandidatesScarce(t *testing.T) {
	table := NewTable()
	now := time.Now()
	table.InsertOrMerge(NodeView{ID: idFor(1)}, now)
	s := newSampler(table, idFor(0), now)

	got := s.sample(10, idFor(0))
	if len(got) != 1 {
		t.Fatalf("expected 1, got %d", len(got))
	}
}

func TestSampler_DoesNotBiasTowardInsertionOrder(t *testing.T) {
	table := NewTable()
	now := time.Now()
	for i := byte(1); i <= 20; i++ {
		table.InsertOrMerge(NodeView{ID: idFor(i)}, now)
	}
	s := newSampler(table, idFor(0), now)

	firstSeen := make(map[NodeID]int)
	for round := 0; round < 200; round++ {
		got := s.sample(1, idFor(0))
		if len(got) != 1 {
			t.Fatalf("expected exactly 1 sample, got %d", len(got))
		}
		firstSeen[got[0].ID]++
	}

	if len(firstSeen) < 2 {
		t.Fatalf("expected sampling to surface more than one distinct peer across 200 draws, got %d distinct", len(firstSeen))
	}
}
