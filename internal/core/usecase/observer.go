package usecase

import "time"

type noopObserver struct{}

func (noopObserver) ClaimSubmitted()                            {}
func (noopObserver) StageExecuted(string, time.Duration, error) {}
func (noopObserver) ClaimApproved(int64)                        {}
