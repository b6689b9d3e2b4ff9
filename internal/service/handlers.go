package service

import (
	"fmt"

	"dwh/internal/cdm"
	"dwh/internal/dds"
	"dwh/internal/job"
	"dwh/internal/normalize"
	"dwh/internal/stg"
)

// Handler builds the handler for the configured stage.
func (s *Service) Handler() (job.Handler, error) {
	switch s.cfg.Name {
	case "stg":
		return s.stgHandler()
	case "dds":
		return s.ddsHandler()
	case "cdm":
		return job.NewCdmHandler(cdm.NewRepository(s.DB), s.Metrics), nil
	default:
		return nil, fmt.Errorf("unknown stage %q", s.cfg.Name)
	}
}

func (s *Service) stgHandler() (job.Handler, error) {
	enricher, err := s.Catalog()
	if err != nil {
		return nil, err
	}
	out, err := s.Publisher()
	if err != nil {
		return nil, err
	}
	n := normalize.New(s.cfg.ObjectType, enricher)
	return job.NewStgHandler(n, stg.NewRepository(s.DB), out, s.Metrics), nil
}

func (s *Service) ddsHandler() (job.Handler, error) {
	enricher, err := s.Catalog()
	if err != nil {
		return nil, err
	}
	out, err := s.Publisher()
	if err != nil {
		return nil, err
	}
	vault := dds.NewRepository(s.DB, dds.Options{Source: s.cfg.LoadSource, FinalStatus: s.cfg.FinalStatus})
	return job.NewDdsHandler(normalize.New(s.cfg.ObjectType, enricher), vault, out, s.cfg.FinalStatus, s.Metrics), nil
}
