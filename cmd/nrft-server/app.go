package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/nrft/nrft/internal/config"
	"github.com/nrft/nrft/internal/domain/assessment"
	"github.com/nrft/nrft/internal/domain/followup"
	"github.com/nrft/nrft/internal/domain/identity"
	"github.com/nrft/nrft/internal/domain/inbox"
	"github.com/nrft/nrft/internal/domain/patient"
	"github.com/nrft/nrft/internal/domain/survey"
	"github.com/nrft/nrft/internal/platform/ai"
	"github.com/nrft/nrft/internal/platform/auth"
	"github.com/nrft/nrft/internal/platform/db"
	"github.com/nrft/nrft/internal/platform/notification"
	"github.com/nrft/nrft/internal/platform/pii"
)

const jwtIssuer = "nrft"

// services is the wired domain layer shared by serve and seed.
type services struct {
	jwt        auth.JWTConfig
	identity   *identity.Service
	patients   *patient.Service
	inbox      *inbox.Service
	followUps  *followup.Service
	assessment *assessment.Service
	survey     *survey.Service
	templates  survey.TemplateRepository
	sessions   survey.SessionRepository
}

func buildServices(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, logger zerolog.Logger) (*services, error) {
	key, err := cfg.EncryptionKeyBytes()
	if err != nil {
		return nil, fmt.Errorf("decode encryption key: %w", err)
	}
	enc, err := pii.NewEncryptor(key)
	if err != nil {
		return nil, err
	}
	writer, err := ai.NewWriter(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		return nil, err
	}
	if cfg.GeminiAPIKey == "" {
		logger.Warn().Msg("GEMINI_API_KEY not set, AI consultation notes are disabled")
	}

	tx := db.NewTxManager(pool)
	s := &services{
		jwt: auth.JWTConfig{
			SigningKey: []byte(cfg.JWTSecret),
			Issuer:     jwtIssuer,
			TTL:        cfg.JWTTTL,
			Skipper:    auth.AuthSkipper,
		},
		templates: survey.NewTemplateRepo(pool),
		sessions:  survey.NewSessionRepo(pool),
	}
	s.identity = identity.NewService(identity.NewPharmacyRepo(pool), identity.NewPharmacistRepo(pool), tx,
		s.jwt, !cfg.IsProduction(), logger.With().Str("component", "identity").Logger())
	s.jwt.Resolver = s.identity

	// Outbound EMAIL/SMS goes to the log until a gateway is configured.
	sender := notification.NewLogSender(logger.With().Str("component", "notification").Logger())
	dispatcher := notification.NewDispatcher(sender, sender, notification.NewTemplateEngine(), logger)

	s.patients = patient.NewService(patient.NewRepo(pool, enc))
	s.inbox = inbox.NewService(inbox.NewRepo(pool), logger.With().Str("component", "inbox").Logger())
	s.followUps = followup.NewService(followup.NewRepo(pool), s.patients, s.identity, s.inbox, dispatcher,
		logger.With().Str("component", "followup").Logger())
	s.assessment = assessment.NewService(assessment.NewRepo(pool), s.patients, s.followUps, s.identity, writer,
		logger.With().Str("component", "assessment").Logger())
	s.survey = survey.NewService(survey.Deps{
		Templates:   s.templates,
		Sessions:    s.sessions,
		Tx:          tx,
		Patients:    s.patients,
		Pharmacies:  s.identity,
		Assessments: s.assessment,
		FollowUps:   s.followUps,
		Inbox:       s.inbox,
		Dispatcher:  dispatcher,
	}, survey.Config{
		SurveyAppURL:  cfg.SurveyAppURL,
		SessionTTL:    cfg.SessionTTL,
		ExposeImpacts: cfg.ExposeOptionImpacts,
	}, logger.With().Str("component", "survey").Logger())
	return s, nil
}
