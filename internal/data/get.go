package data

import (
	"context"
	"time"

	"github.com/amgator/databucket-app/internal/rulesql"
)

// Query describes a rule-driven read.
type Query struct {
	Target  Target
	Page    int
	Limit   int
	Sort    string
	Columns []string
}

// Page is the paged response envelope. Total always reflects the full
// matched set; Data holds the requested page, empty when Limit is zero
// (a count-only request).
type Page struct {
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
	Sort       string           `json:"sort"`
	Total      int64            `json:"total"`
	TotalPages int64            `json:"totalPages"`
	Data       []map[string]any `json:"data"`
}

// Get returns one page of records matching the query's target.
func (s *Service) Get(ctx context.Context, scope rulesql.Scope, q Query) (Page, error) {
	start := time.Now()
	page, err := s.get(ctx, scope, q)
	s.observe("get", start, page.Total, err)
	return page, err
}

func (s *Service) get(ctx context.Context, scope rulesql.Scope, q Query) (Page, error) {
	if err := rulesql.ValidatePagination(q.Page, q.Limit); err != nil {
		return Page{}, err
	}

	frag, err := s.compile(q.Target, scope)
	if err != nil {
		return Page{}, err
	}

	total, err := s.store.CountData(ctx, frag)
	if err != nil {
		return Page{}, err
	}

	page := Page{
		Page:       q.Page,
		Limit:      q.Limit,
		Sort:       q.Sort,
		Total:      total,
		TotalPages: totalPages(total, q.Limit),
		Data:       []map[string]any{},
	}

	// Limit zero asks for the counts only.
	if q.Limit == 0 {
		return page, nil
	}

	records, err := s.store.SelectData(ctx, frag, rulesql.ListOptions{
		Page:  q.Page,
		Limit: q.Limit,
		Sort:  q.Sort,
	})
	if err != nil {
		return Page{}, err
	}

	for _, rec := range records {
		projected, err := project(rec, q.Columns)
		if err != nil {
			return Page{}, err
		}
		page.Data = append(page.Data, projected)
	}
	return page, nil
}

// GetOne returns a single record by id, read through the cache.
func (s *Service) GetOne(ctx context.Context, scope rulesql.Scope, id int64, columns []string) (map[string]any, error) {
	start := time.Now()
	projected, err := s.getOne(ctx, scope, id, columns)
	s.observe("get_one", start, 1, err)
	return projected, err
}

func (s *Service) getOne(ctx context.Context, scope rulesql.Scope, id int64, columns []string) (map[string]any, error) {
	if cached, err := s.cache.GetRecord(ctx, scope.ProjectID, scope.BucketID, id); err == nil {
		s.metrics.CacheHitsTotal.Inc()
		return project(*cached, columns)
	}
	s.metrics.CacheMissesTotal.Inc()

	rec, err := s.store.GetData(ctx, scope, id)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetRecord(ctx, scope.ProjectID, scope.BucketID, &rec); err != nil {
		s.log.Warn().Err(err).Int64("id", id).Msg("record cache write failed")
	}
	return project(rec, columns)
}

// totalPages is the page count covering total rows at the given limit.
// A count-only request reports a single page.
func totalPages(total int64, limit int) int64 {
	if limit <= 0 {
		return 1
	}
	return (total + int64(limit) - 1) / int64(limit)
}
