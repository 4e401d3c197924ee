package logging

import "strings"

// ProgressSampler suppresses repetitive progress logs while preserving signal
// when the phase or percentage bucket changes. It stands in for a progress
// bar when output is not a terminal.
type ProgressSampler struct {
	bucketSize float64
	lastPhase  string
	lastBucket int
}

// NewProgressSampler constructs a sampler that emits when the percent crosses
// bucket boundaries (default 10%) or when the phase changes.
func NewProgressSampler(bucketSize float64) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 10
	}
	return &ProgressSampler{bucketSize: bucketSize, lastBucket: -1}
}

// ShouldLog reports whether progress of done out of total units should be
// logged. A non-positive total counts as unknown progress and only phase
// changes emit.
func (s *ProgressSampler) ShouldLog(done, total int, phase string) bool {
	if s == nil {
		return true
	}
	phase = strings.TrimSpace(phase)
	emit := false
	if phase != "" && phase != s.lastPhase {
		s.lastPhase = phase
		s.lastBucket = -1
		emit = true
	}
	if total > 0 {
		percent := float64(done) / float64(total) * 100
		bucket := int(percent / s.bucketSize)
		if done >= total {
			bucket = int(100 / s.bucketSize)
		}
		if bucket > s.lastBucket {
			s.lastBucket = bucket
			emit = true
		}
	}
	return emit
}
