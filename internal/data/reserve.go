package data

import (
	"context"
	"errors"
	"time"

	"github.com/amgator/databucket-app/internal/rule"
	"github.com/amgator/databucket-app/internal/rulesql"
)

// ErrTargetOwnerForbidden is returned when a non-admin caller tries to
// reserve records for someone else.
var ErrTargetOwnerForbidden = errors.New("reserving for another owner requires admin")

// NoMatchMessage is the reserve outcome when the rules match nothing.
// Not an error: an empty pool is a normal state.
const NoMatchMessage = "No data matches the rules!"

// ReserveRequest describes a reservation attempt. Records are always
// addressed by rules; TargetOwner redirects the claim to another owner and
// is admin-only.
type ReserveRequest struct {
	Filter      rule.Filter
	Limit       int
	Sort        string
	TargetOwner string
}

// ReserveResult is the outcome of a reservation. Exactly one of the three
// shapes is populated: Record for a single claim, IDs for a multi-record
// claim, Message when nothing matched. Token identifies the claim in logs
// either way.
type ReserveResult struct {
	Token   string         `json:"token"`
	Record  map[string]any `json:"record,omitempty"`
	IDs     []int64        `json:"ids,omitempty"`
	Message string         `json:"message,omitempty"`
}

// Reserve claims up to Limit unreserved records matching the rules and
// assigns them to the caller (or, for admins, to the requested target
// owner).
func (s *Service) Reserve(ctx context.Context, scope rulesql.Scope, caller Caller, req ReserveRequest) (ReserveResult, error) {
	start := time.Now()
	result, err := s.reserve(ctx, scope, caller, req)
	s.observe("reserve", start, int64(len(result.IDs)), err)
	return result, err
}

func (s *Service) reserve(ctx context.Context, scope rulesql.Scope, caller Caller, req ReserveRequest) (ReserveResult, error) {
	owner := caller.Username
	if req.TargetOwner != "" && req.TargetOwner != caller.Username {
		if !caller.Admin {
			return ReserveResult{}, ErrTargetOwnerForbidden
		}
		owner = req.TargetOwner
	}

	frag, err := s.compile(Target{Filter: req.Filter}, scope)
	if err != nil {
		return ReserveResult{}, err
	}

	claim, err := s.store.Reserve(ctx, frag, req.Limit, req.Sort, owner, s.timestamp(), caller.Username)
	if err != nil {
		return ReserveResult{}, err
	}

	result := ReserveResult{Token: claim.Token}
	s.log.OpLogger("reserve", scope.ProjectID, scope.BucketID, caller.Username).Info().
		Str("claim_token", claim.Token).
		Str("owner", owner).
		Int("claimed", len(claim.IDs)).
		Msg("reservation completed")

	switch len(claim.IDs) {
	case 0:
		s.metrics.RecordReservation("no_match", 0)
		result.Message = NoMatchMessage
		return result, nil

	case 1:
		s.metrics.RecordReservation("single", 1)
		id := claim.IDs[0]
		if err := s.cache.DeleteRecord(ctx, scope.ProjectID, scope.BucketID, id); err != nil {
			s.log.Warn().Err(err).Int64("id", id).Msg("record cache invalidation failed")
		}
		rec, err := s.store.GetData(ctx, scope, id)
		if err != nil {
			return ReserveResult{}, err
		}
		projected, err := project(rec, nil)
		if err != nil {
			return ReserveResult{}, err
		}
		result.IDs = claim.IDs
		result.Record = projected
		return result, nil

	default:
		s.metrics.RecordReservation("multi", len(claim.IDs))
		for _, id := range claim.IDs {
			if err := s.cache.DeleteRecord(ctx, scope.ProjectID, scope.BucketID, id); err != nil {
				s.log.Warn().Err(err).Int64("id", id).Msg("record cache invalidation failed")
			}
		}
		result.IDs = claim.IDs
		return result, nil
	}
}
