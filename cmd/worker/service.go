package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/wedanddone/wedanddone-backend/pkg/logger"
)

type runner interface {
	Run(ctx context.Context) error
}

type pinger func(ctx context.Context) error

type ServiceParams struct {
	Logger     *logger.Logger
	Readiness  map[string]pinger
	Reconciler runner
}

type Service struct {
	logg       *logger.Logger
	readiness  map[string]pinger
	reconciler runner
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.Reconciler == nil {
		return nil, errors.New("lock reconciler is required")
	}
	return &Service{
		logg:       params.Logger,
		readiness:  params.Readiness,
		reconciler: params.Reconciler,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	for name, ping := range s.readiness {
		if ping == nil {
			continue
		}
		if err := ping(ctx); err != nil {
			s.logg.Error(ctx, fmt.Sprintf("%s ping failed", name), err)
			return fmt.Errorf("%s ping failed: %w", name, err)
		}
	}
	s.logg.Info(ctx, "all worker dependencies are ready")
	return nil
}

func (s *Service) Run(ctx context.Context) error {
	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}
	err := s.reconciler.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logg.Error(ctx, "consumer stopped unexpectedly", err)
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}
