package orchestrator

import "sync"

// stateMutex guards the lifecycle state machine:
// uninitialized -> initializing -> ready -> shutting_down -> stopped.
// It also tracks in-flight analysis calls for the shutdown drain.
type stateMutex struct {
	mu       sync.Mutex
	state    State
	initDone chan struct{}
	inflight sync.WaitGroup
}

func (s *stateMutex) current() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// enterInitializing transitions to initializing. Returns first=true for the
// call that owns profiling; concurrent callers get a channel to wait on.
func (s *stateMutex) enterInitializing() (first bool, wait <-chan struct{}, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateUninitialized:
		s.state = StateInitializing
		s.initDone = make(chan struct{})
		return true, nil, nil
	case StateInitializing:
		return false, s.initDone, nil
	case StateReady:
		done := make(chan struct{})
		close(done)
		return false, done, nil
	default:
		return false, nil, errStopped{state: s.state}
	}
}

// becomeReady completes initialization. Returns false when a shutdown ran
// while profiling was in flight: the state the shutdown set is kept and
// waiters are released without the instance ever becoming ready.
func (s *stateMutex) becomeReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok := s.state == StateInitializing
	if ok {
		s.state = StateReady
	}
	close(s.initDone)
	return ok
}

func (s *stateMutex) requireReady() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady {
		return errNotReady{state: s.state}
	}
	return nil
}

// beginCall admits one analysis call, holding it in the in-flight set.
func (s *stateMutex) beginCall() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady {
		return errNotReady{state: s.state}
	}
	s.inflight.Add(1)
	return nil
}

func (s *stateMutex) endCall() { s.inflight.Done() }

// enterShutdown returns false when shutdown already ran or is running.
func (s *stateMutex) enterShutdown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateShuttingDown, StateStopped:
		return false
	case StateUninitialized:
		s.state = StateStopped
		return false
	}
	s.state = StateShuttingDown
	return true
}

func (s *stateMutex) becomeStopped() {
	s.mu.Lock()
	s.state = StateStopped
	s.mu.Unlock()
}
