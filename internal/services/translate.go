package services

import (
	"context"

	"github.com/leafmark/leafmark-backend/internal/clients/redcache"
	"github.com/leafmark/leafmark-backend/internal/clients/translate"
	"github.com/leafmark/leafmark-backend/internal/platform/logger"
)

type TranslateService interface {
	Translate(ctx context.Context, req translate.Request) (*translate.Response, error)
}

type translateService struct {
	log    *logger.Logger
	client translate.Client
	cache  redcache.TranslationCache // nil: caching disabled
}

func NewTranslateService(log *logger.Logger, client translate.Client, cache redcache.TranslationCache) TranslateService {
	return &translateService{
		log:    log.With("service", "TranslateService"),
		client: client,
		cache:  cache,
	}
}

func (s *translateService) Translate(ctx context.Context, req translate.Request) (*translate.Response, error) {
	payload, err := translate.BuildPayload(req)
	if err != nil {
		return nil, err
	}

	var key string
	if s.cache != nil {
		key = redcache.Key(payload.Q, payload.Source, payload.Target)
		if cached, ok := s.cache.Get(ctx, key); ok {
			return &translate.Response{TranslatedText: cached}, nil
		}
	}

	resp, err := s.client.Translate(ctx, req)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Set(ctx, key, resp.TranslatedText)
	}
	return resp, nil
}
