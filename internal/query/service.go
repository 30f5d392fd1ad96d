// Package query reads the caller's orders and per-status counts.
package query

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/imrishuroy/campus-orderflow/internal/logging"
	"github.com/imrishuroy/campus-orderflow/internal/orders"
)

// Reader is the remote side of the queries.
type Reader interface {
	ListOrders(ctx context.Context, role orders.Role, status *orders.Status) ([]orders.Order, error)
	CountOrders(ctx context.Context, role orders.Role) (map[orders.Status]int, error)
}

// Tracker receives every order a list returns, so transitions start from the
// freshest known state.
type Tracker interface {
	Track(list ...orders.Order)
}

// Service collapses identical concurrent reads into one request.
type Service struct {
	reader  Reader
	tracker Tracker
	logger  *zap.Logger
	sfg     singleflight.Group
}

// NewService returns a Service. tracker may be nil.
func NewService(reader Reader, tracker Tracker, logger *zap.Logger) *Service {
	return &Service{reader: reader, tracker: tracker, logger: logging.OrNop(logger)}
}

// ListByStatus returns role's orders in status, newest first.
func (s *Service) ListByStatus(ctx context.Context, role orders.Role, status orders.Status) ([]orders.Order, error) {
	return s.list(ctx, role, &status)
}

// ListAll returns role's orders in every status, newest first.
func (s *Service) ListAll(ctx context.Context, role orders.Role) ([]orders.Order, error) {
	return s.list(ctx, role, nil)
}

func (s *Service) list(ctx context.Context, role orders.Role, status *orders.Status) ([]orders.Order, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("unknown role %q", role)
	}
	key := "list:" + string(role) + ":"
	if status != nil {
		key += string(*status)
	}

	v, err, shared := s.sfg.Do(key, func() (interface{}, error) {
		return s.reader.ListOrders(ctx, role, status)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.logger.Debug("order list shared", zap.String("key", key))
	}

	list := append([]orders.Order(nil), v.([]orders.Order)...)
	if s.tracker != nil {
		s.tracker.Track(list...)
	}
	return list, nil
}

// CountByStatus returns how many of role's orders are in each status. Every
// status is present; missing ones count zero. Counts and lists are read
// separately and may briefly disagree.
func (s *Service) CountByStatus(ctx context.Context, role orders.Role) (map[orders.Status]int, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("unknown role %q", role)
	}
	v, err, _ := s.sfg.Do("count:"+string(role), func() (interface{}, error) {
		return s.reader.CountOrders(ctx, role)
	})
	if err != nil {
		return nil, err
	}

	remote := v.(map[orders.Status]int)
	counts := make(map[orders.Status]int, len(orders.AllStatuses))
	for _, st := range orders.AllStatuses {
		counts[st] = remote[st]
	}
	return counts, nil
}
