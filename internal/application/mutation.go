package application

import (
	"fmt"
	"strings"
	"time"

	"github.com/bnema/gestation-osc/internal/domain"
)

type MutationKind string

const (
	MutationAddChild         MutationKind = "add_child"
	MutationRemoveChild      MutationKind = "remove_child"
	MutationResetConception  MutationKind = "reset_conception"
	MutationSetGestationTime MutationKind = "set_gestation_time"
	MutationSetGestationUnit MutationKind = "set_gestation_unit"
)

func (k MutationKind) Valid() bool {
	switch k {
	case MutationAddChild, MutationRemoveChild, MutationResetConception, MutationSetGestationTime, MutationSetGestationUnit:
		return true
	default:
		return false
	}
}

func ParseMutationKind(raw string) (MutationKind, error) {
	kind := MutationKind(strings.ToLower(strings.TrimSpace(raw)))
	if !kind.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownMutation, raw)
	}
	return kind, nil
}

// Mutation is a user edit of the current record. GestationTime and Unit are
// read only by the kinds that set them.
type Mutation struct {
	Kind          MutationKind
	GestationTime float64
	Unit          domain.GestationUnit
}

func AddChild() Mutation        { return Mutation{Kind: MutationAddChild} }
func RemoveChild() Mutation     { return Mutation{Kind: MutationRemoveChild} }
func ResetConception() Mutation { return Mutation{Kind: MutationResetConception} }

func SetGestationTime(value float64) Mutation {
	return Mutation{Kind: MutationSetGestationTime, GestationTime: value}
}

func SetGestationUnit(unit domain.GestationUnit) Mutation {
	return Mutation{Kind: MutationSetGestationUnit, Unit: unit}
}

func (m Mutation) apply(record *domain.ChildRecord, now time.Time) (bool, error) {
	switch m.Kind {
	case MutationAddChild:
		return record.AddChild(now), nil
	case MutationRemoveChild:
		return record.RemoveChild(), nil
	case MutationResetConception:
		return record.ResetConception(now), nil
	case MutationSetGestationTime:
		if err := record.SetGestationTime(m.GestationTime); err != nil {
			return false, err
		}
		return true, nil
	case MutationSetGestationUnit:
		if record.Unit == m.Unit {
			return false, nil
		}
		if err := record.ConvertUnit(m.Unit); err != nil {
			return false, err
		}
		return true, nil
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownMutation, m.Kind)
	}
}

// resync lists the outbound messages that bring the peer in line with
// record after m.
func (m Mutation) resync(record domain.ChildRecord) []domain.Message {
	switch m.Kind {
	case MutationAddChild, MutationRemoveChild:
		return []domain.Message{
			domain.NewMessage(AddressChildCountOut, int(record.ChildCount)),
			domain.NewMessage(AddressIsPregnant, record.ChildCount > 0),
		}
	case MutationSetGestationTime:
		return []domain.Message{
			domain.NewMessage(AddressGestationTime, record.GestationTime),
		}
	case MutationSetGestationUnit:
		return []domain.Message{
			domain.NewMessage(AddressGestationTime, record.GestationTime),
			domain.NewMessage(AddressGestation, int(record.Unit)),
		}
	default:
		return nil
	}
}
