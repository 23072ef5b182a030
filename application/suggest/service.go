// Package suggest drives the AI collaborator: outline suggestions and
// automatic source categorization. Both follow the same guard pattern as
// persistence: capture the project id at invocation, validate at completion,
// and discard stale results without surfacing them.
package suggest

import (
	"context"

	"go.uber.org/zap"

	"github.com/relight14/micropaymentcrawler-sub002/application/ports"
	"github.com/relight14/micropaymentcrawler-sub002/application/session"
	"github.com/relight14/micropaymentcrawler-sub002/domain/research"
	pkgerrors "github.com/relight14/micropaymentcrawler-sub002/pkg/errors"
)

// Service coordinates suggestion fetches with the session controller.
type Service struct {
	provider   ports.SuggestionProvider
	controller *session.Controller
	logger     *zap.Logger
}

// NewService creates a suggestion service.
func NewService(provider ports.SuggestionProvider, controller *session.Controller, logger *zap.Logger) *Service {
	return &Service{
		provider:   provider,
		controller: controller,
		logger:     logger,
	}
}

// RegenerateOutline fetches AI-suggested sections and applies them through
// the regeneration contract, so no already-placed source is lost. A result
// arriving after a project switch is discarded.
func (s *Service) RegenerateOutline(ctx context.Context) ([]research.OutlineSuggestion, error) {
	capturedID := s.controller.CurrentID()
	if capturedID == research.ProjectNone {
		return nil, pkgerrors.NewValidationError("no active project")
	}

	title := s.controller.Project().Title
	sources := s.controller.SourcesSnapshot()

	suggestions, err := s.provider.SuggestOutline(ctx, title, sources)
	if err != nil {
		return nil, pkgerrors.NewExternalError("outline suggestion failed", err)
	}

	if s.controller.IsStale(capturedID) {
		s.logger.Debug("discarding stale outline suggestions",
			zap.String("capturedProjectID", capturedID),
			zap.String("currentProjectID", s.controller.CurrentID()),
		)
		return nil, pkgerrors.NewStaleError(capturedID, s.controller.CurrentID())
	}

	s.controller.ApplySuggestions(ctx, suggestions)
	return suggestions, nil
}

// AutoCategorize places freshly merged sources into outline sections. It is
// best-effort throughout: individual categorization failures are logged and
// skipped, and the whole pass stops silently once the project changes.
func (s *Service) AutoCategorize(ctx context.Context, added []research.SourceRecord) {
	capturedID := s.controller.CurrentID()
	if capturedID == research.ProjectNone || len(added) == 0 {
		return
	}

	titles := s.controller.SectionTitles()
	if len(titles) == 0 {
		return
	}

	for _, record := range added {
		indices, err := s.provider.CategorizeSource(ctx, record.Title, record.Excerpt, titles)
		if err != nil {
			s.logger.Warn("source categorization failed",
				zap.String("sourceID", record.ID),
				zap.Error(err),
			)
			continue
		}

		if s.controller.IsStale(capturedID) {
			s.logger.Debug("abandoning categorization after project switch",
				zap.String("capturedProjectID", capturedID),
			)
			return
		}

		for _, index := range indices {
			if _, err := s.controller.AddSourceToSection(ctx, index, record.ID, research.OriginAuto); err != nil {
				s.logger.Debug("skipping categorized placement",
					zap.String("sourceID", record.ID),
					zap.Int("sectionIndex", index),
					zap.Error(err),
				)
			}
		}
	}
}
