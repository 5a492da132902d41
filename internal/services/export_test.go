package services

import "time"

func (s *LotService) SetClock(now func() time.Time) { s.now = now }

func (s *DispatchService) SetClock(now func() time.Time) { s.now = now }
