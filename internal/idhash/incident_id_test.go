package idhash

import (
	"testing"
	"time"

	"github.com/mr-tron/base58"

	"pipeline-guard/internal/domain"
)

func TestComputeIncidentID(t *testing.T) {
	opened := time.Date(2024, 3, 1, 12, 0, 5, 0, time.UTC)
	s := domain.ClassifiedSample{
		Time:     time.Date(2024, 3, 1, 12, 0, 4, 0, time.UTC),
		Pressure: 5.0,
		FlowRate: 0.1,
		Status:   domain.StatusMajorLeak,
		Class:    domain.SeverityMajorLeak,
	}

	got := ComputeIncidentID(s, opened)

	raw, err := base58.Decode(got)
	if err != nil {
		t.Fatalf("ID is not base58: %v", err)
	}
	if len(raw) != 32 {
		t.Errorf("decoded length = %d, want 32", len(raw))
	}

	// Determinism
	if again := ComputeIncidentID(s, opened); again != got {
		t.Errorf("not deterministic: %s != %s", again, got)
	}

	// Time zone must not matter
	local := s
	local.Time = s.Time.In(time.FixedZone("UTC+3", 3*3600))
	if ComputeIncidentID(local, opened) != got {
		t.Error("same instant in another zone produced a different ID")
	}
}

func TestComputeIncidentID_Distinct(t *testing.T) {
	opened := time.Date(2024, 3, 1, 12, 0, 5, 0, time.UTC)
	base := domain.ClassifiedSample{
		Time:     time.Date(2024, 3, 1, 12, 0, 4, 0, time.UTC),
		Pressure: 5.0,
		FlowRate: 0.1,
		Class:    domain.SeverityMajorLeak,
	}

	variants := map[string]domain.ClassifiedSample{}
	v := base
	v.Class = domain.SeverityMinorLeak
	variants["class"] = v
	v = base
	v.Pressure = 5.01
	variants["pressure"] = v
	v = base
	v.FlowRate = 0.2
	variants["flow"] = v
	v = base
	v.Time = base.Time.Add(time.Millisecond)
	variants["time"] = v

	want := ComputeIncidentID(base, opened)
	for name, variant := range variants {
		if ComputeIncidentID(variant, opened) == want {
			t.Errorf("changing %s did not change the ID", name)
		}
	}
	if ComputeIncidentID(base, opened.Add(time.Second)) == want {
		t.Error("re-latching the same sample later must get a new ID")
	}
}
