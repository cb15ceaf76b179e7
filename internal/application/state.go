package application

import (
	"sync"

	"github.com/bnema/gestation-osc/internal/domain"
)

type Phase int

const (
	PhaseInactive Phase = iota
	PhaseActive
)

func (p Phase) String() string {
	if p == PhaseActive {
		return "active"
	}
	return "inactive"
}

// ActiveState is the record of the avatar currently worn. Critical sections
// only copy values in or out.
type ActiveState struct {
	mu       sync.Mutex
	phase    Phase
	avatarID domain.AvatarID
	current  *domain.ChildRecord
}

func (s *ActiveState) activate(id domain.AvatarID, record domain.ChildRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = PhaseActive
	s.avatarID = id
	s.current = &record
}

func (s *ActiveState) deactivate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = PhaseInactive
	s.avatarID = ""
	s.current = nil
}

// load returns a copy of the current record; ok is false while inactive.
func (s *ActiveState) load() (domain.AvatarID, domain.ChildRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseActive || s.current == nil {
		return "", domain.ChildRecord{}, false
	}
	return s.avatarID, *s.current, true
}

func (s *ActiveState) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// update applies fn to the current record while active. fn runs under the
// lock and must not block.
func (s *ActiveState) update(fn func(*domain.ChildRecord) (bool, error)) (domain.AvatarID, domain.ChildRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseActive || s.current == nil {
		return "", domain.ChildRecord{}, false, ErrInactive
	}

	record := *s.current
	changed, err := fn(&record)
	if err != nil {
		return s.avatarID, *s.current, false, err
	}
	s.current = &record
	return s.avatarID, record, changed, nil
}
