package httpapi

import (
	"strconv"
	"time"

	"github.com/bnema/gestation-osc/internal/application"
	"github.com/bnema/gestation-osc/internal/domain"
)

type RecordResponse struct {
	ConceptionTime *time.Time `json:"conception_time,omitempty"`
	GestationTime  float64    `json:"gestation_time"`
	Unit           string     `json:"unit"`
	UnitValue      int        `json:"unit_value"`
	ChildCount     int        `json:"child_count"`
}

type StateResponse struct {
	Phase               string          `json:"phase"`
	AvatarID            string          `json:"avatar_id,omitempty"`
	Record              *RecordResponse `json:"record,omitempty"`
	Progress            float64         `json:"progress"`
	EstimatedCompletion *time.Time      `json:"estimated_completion,omitempty"`
	RemainingSeconds    int64           `json:"remaining_seconds"`
	At                  time.Time       `json:"at"`
}

type MutationRequest struct {
	Kind          string  `json:"kind"`
	GestationTime float64 `json:"gestation_time,omitempty"`
	Unit          string  `json:"unit,omitempty"`
}

type ErrorResponse struct {
	Error string         `json:"error"`
	State *StateResponse `json:"state,omitempty"`
}

func NewStateResponse(snapshot application.Snapshot) StateResponse {
	resp := StateResponse{
		Phase:               snapshot.Phase.String(),
		AvatarID:            string(snapshot.AvatarID),
		Progress:            snapshot.Progress,
		EstimatedCompletion: snapshot.EstimatedCompletion,
		RemainingSeconds:    int64(snapshot.Remaining / time.Second),
		At:                  snapshot.At,
	}
	if record := snapshot.Record; record != nil {
		resp.Record = &RecordResponse{
			ConceptionTime: record.ConceptionTime,
			GestationTime:  record.GestationTime,
			Unit:           record.Unit.String(),
			UnitValue:      int(record.Unit),
			ChildCount:     int(record.ChildCount),
		}
	}
	return resp
}

// Snapshot converts the response back into the application's view.
func (r StateResponse) Snapshot() application.Snapshot {
	snapshot := application.Snapshot{
		AvatarID:            domain.AvatarID(r.AvatarID),
		Progress:            r.Progress,
		EstimatedCompletion: r.EstimatedCompletion,
		Remaining:           time.Duration(r.RemainingSeconds) * time.Second,
		At:                  r.At,
	}
	if r.Phase == application.PhaseActive.String() {
		snapshot.Phase = application.PhaseActive
	}
	if r.Record != nil {
		snapshot.Record = &domain.ChildRecord{
			ConceptionTime: r.Record.ConceptionTime,
			GestationTime:  r.Record.GestationTime,
			Unit:           domain.UnitFromWire(r.Record.UnitValue),
			ChildCount:     uint8(r.Record.ChildCount),
		}
	}
	return snapshot
}

// Mutation validates the request into an application mutation.
func (r MutationRequest) Mutation() (application.Mutation, error) {
	kind, err := application.ParseMutationKind(r.Kind)
	if err != nil {
		return application.Mutation{}, err
	}

	switch kind {
	case application.MutationSetGestationTime:
		return application.SetGestationTime(r.GestationTime), nil
	case application.MutationSetGestationUnit:
		unit, err := domain.ParseGestationUnit(r.Unit)
		if err != nil {
			return application.Mutation{}, err
		}
		return application.SetGestationUnit(unit), nil
	default:
		return application.Mutation{Kind: kind}, nil
	}
}

// NewMutationRequest is the inverse of MutationRequest.Mutation.
func NewMutationRequest(m application.Mutation) MutationRequest {
	req := MutationRequest{Kind: string(m.Kind)}
	switch m.Kind {
	case application.MutationSetGestationTime:
		req.GestationTime = m.GestationTime
	case application.MutationSetGestationUnit:
		req.Unit = strconv.Itoa(int(m.Unit))
	}
	return req
}
