package service

import "context"

// ReconcileCounters repairs follower/following counters that drifted from
// the size of their sets and returns the number of accounts repaired.
func (s *Service) ReconcileCounters(ctx context.Context) (int64, error) {
	repaired, err := s.repo.ReconcileCounters(ctx)
	if err != nil {
		return 0, err
	}
	if repaired > 0 {
		s.log.Warnf("Reconciled follow counters on %d users", repaired)
	} else {
		s.log.Debug("Follow counters consistent")
	}
	return repaired, nil
}
