package view

import (
	"context"
	"errors"
	"fmt"

	"github.com/appetiteclub/tableside/internal/api"
	"github.com/aquamarinepk/aqm"
)

// SalonName is the view name of the dining room overview.
const SalonName = "salon"

// SalonAPI is the part of the REST API the dining room overview needs.
type SalonAPI interface {
	ListTables(ctx context.Context) ([]api.Table, error)
}

// SalonStore lists all tables. The server pushes no salon events, so it only
// changes on explicit refresh.
type SalonStore struct {
	publisher
	api SalonAPI
}

func NewSalonStore(client SalonAPI, logger aqm.Logger) *SalonStore {
	s := &SalonStore{api: client}
	s.init(SalonName, logger)
	return s
}

func (s *SalonStore) Topic() string {
	return ""
}

func (s *SalonStore) Refresh(ctx context.Context) (Snapshot, error) {
	gen := s.begin()

	tables, err := s.api.ListTables(ctx)
	if err != nil && !errors.Is(err, api.ErrUnexpectedShape) {
		s.logger.Error("refresh failed, keeping previous snapshot", "error", err)
		return s.Snapshot(), fmt.Errorf("fetch tables: %w", err)
	}

	state := DeriveSalon(tables)
	snap := s.commit(gen, Snapshot{Salon: &state})
	if err != nil {
		s.logger.Error("tables had an unexpected shape, showing empty salon", "error", err)
		return snap, fmt.Errorf("fetch tables: %w", err)
	}
	return snap, nil
}
