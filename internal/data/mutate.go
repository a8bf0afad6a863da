package data

import (
	"context"
	"time"

	"github.com/amgator/databucket-app/internal/rulesql"
	"github.com/amgator/databucket-app/internal/store"
)

// CreateRequest describes a record to create.
type CreateRequest struct {
	TagID      *int64
	Properties map[string]any
}

// Create inserts one record, stamping the caller as creator, and returns
// the stored record.
func (s *Service) Create(ctx context.Context, scope rulesql.Scope, caller Caller, req CreateRequest) (store.Record, error) {
	start := time.Now()
	rec, err := s.create(ctx, scope, caller, req)
	s.observe("create", start, 1, err)
	return rec, err
}

func (s *Service) create(ctx context.Context, scope rulesql.Scope, caller Caller, req CreateRequest) (store.Record, error) {
	now := s.timestamp()
	id, err := s.store.InsertData(ctx, store.NewRecord{
		ProjectID:  scope.ProjectID,
		BucketID:   scope.BucketID,
		TagID:      req.TagID,
		Properties: req.Properties,
		CreatedAt:  now,
		CreatedBy:  caller.Username,
	})
	if err != nil {
		return store.Record{}, err
	}

	rec, err := s.store.GetData(ctx, scope, id)
	if err != nil {
		return store.Record{}, err
	}

	if err := s.cache.SetRecord(ctx, scope.ProjectID, scope.BucketID, &rec); err != nil {
		s.log.Warn().Err(err).Int64("id", id).Msg("record cache write failed")
	}
	return rec, nil
}

// Modify applies a bulk mutation to the records the target addresses and
// returns the number of rows changed.
func (s *Service) Modify(ctx context.Context, scope rulesql.Scope, caller Caller, target Target, upd rulesql.Update) (int64, error) {
	start := time.Now()
	affected, err := s.modify(ctx, scope, caller, target, upd)
	s.observe("modify", start, affected, err)
	return affected, err
}

func (s *Service) modify(ctx context.Context, scope rulesql.Scope, caller Caller, target Target, upd rulesql.Update) (int64, error) {
	frag, err := s.compile(target, scope)
	if err != nil {
		return 0, err
	}

	affected, err := s.store.UpdateData(ctx, frag, upd, s.timestamp(), caller.Username)
	if err != nil {
		return 0, err
	}

	s.invalidate(ctx, scope, target)
	return affected, nil
}

// Release returns the records the target addresses to the pool, clearing
// the reservation flag and owner, and returns the number of rows released.
func (s *Service) Release(ctx context.Context, scope rulesql.Scope, caller Caller, target Target) (int64, error) {
	start := time.Now()
	released, err := s.release(ctx, scope, caller, target)
	s.observe("release", start, released, err)
	return released, err
}

func (s *Service) release(ctx context.Context, scope rulesql.Scope, caller Caller, target Target) (int64, error) {
	frag, err := s.compile(target, scope)
	if err != nil {
		return 0, err
	}

	released, err := s.store.Release(ctx, frag, s.timestamp(), caller.Username)
	if err != nil {
		return 0, err
	}

	s.invalidate(ctx, scope, target)
	return released, nil
}

// Delete removes the records the target addresses and returns the number
// of rows deleted.
func (s *Service) Delete(ctx context.Context, scope rulesql.Scope, caller Caller, target Target) (int64, error) {
	start := time.Now()
	deleted, err := s.delete(ctx, scope, target)
	s.observe("delete", start, deleted, err)
	return deleted, err
}

func (s *Service) delete(ctx context.Context, scope rulesql.Scope, target Target) (int64, error) {
	frag, err := s.compile(target, scope)
	if err != nil {
		return 0, err
	}

	deleted, err := s.store.DeleteData(ctx, frag)
	if err != nil {
		return 0, err
	}

	s.invalidate(ctx, scope, target)
	return deleted, nil
}

// invalidate drops cache entries the target may have touched: per-record
// for an id list, the whole bucket for a rule tree (the matched ids are
// not individually known).
func (s *Service) invalidate(ctx context.Context, scope rulesql.Scope, target Target) {
	var err error
	if len(target.IDs) > 0 {
		for _, id := range target.IDs {
			if e := s.cache.DeleteRecord(ctx, scope.ProjectID, scope.BucketID, id); e != nil {
				err = e
			}
		}
	} else {
		err = s.cache.DeleteBucket(ctx, scope.ProjectID, scope.BucketID)
	}
	if err != nil {
		s.log.Warn().Err(err).Msg("record cache invalidation failed")
	}
}
