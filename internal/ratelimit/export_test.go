package ratelimit

// GetRPMLimit returns the RPM limit (for testing).
func (l *TokenBucketLimiter) GetRPMLimit() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.rpm
}
