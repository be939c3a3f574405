package idhash

import (
	"crypto/sha256"
	"fmt"
	"strconv"
	"time"

	"github.com/mr-tron/base58"

	"pipeline-guard/internal/domain"
)

// ComputeIncidentID computes a deterministic incident_id for the sample that
// latched an alert.
// Formula: SHA256(time|class|pressure|flow_rate|opened_at)
// Returns base58 of the hash (43-44 characters).
func ComputeIncidentID(s domain.ClassifiedSample, openedAt time.Time) string {
	data := fmt.Sprintf("%s|%d|%s|%s|%d",
		s.Time.UTC().Format(time.RFC3339Nano),
		int(s.Class),
		strconv.FormatFloat(s.Pressure, 'g', -1, 64),
		strconv.FormatFloat(s.FlowRate, 'g', -1, 64),
		openedAt.UnixNano(),
	)

	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:])
}
