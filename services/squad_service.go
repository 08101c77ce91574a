package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/cargaslack/carga/models"
	"github.com/cargaslack/carga/pkg"
	"github.com/cargaslack/carga/pkg/crypto"
	"github.com/cargaslack/carga/repository"
)

// ErrSquadExists answers a create or rename onto a taken name. The dashboard
// expects 400 here, not the 409 ErrAlreadyExists would map to.
var ErrSquadExists = pkg.NewAPIError(http.StatusBadRequest,
	"Já existe um squad com este nome", "", pkg.ErrAlreadyExists)

// SquadInUseError rejects deleting a squad that sites still reference.
type SquadInUseError struct {
	Squad string
	Sites int
}

func (e *SquadInUseError) Error() string {
	return fmt.Sprintf("Não é possível excluir. Existem %d site(s) associado(s).", e.Sites)
}

func (e *SquadInUseError) Unwrap() error {
	return pkg.ErrBadRequest
}

// SquadService manages squads and their Slack webhooks. Webhook URLs are
// sealed before they reach the repository and opened on the way out.
type SquadService interface {
	List(ctx context.Context) ([]models.Squad, error)
	Get(ctx context.Context, name string) (*models.Squad, error)
	Create(ctx context.Context, req *models.CreateSquadRequest) (*models.Squad, error)
	Update(ctx context.Context, name string, req *models.UpdateSquadRequest) (*models.Squad, error)
	Delete(ctx context.Context, name string) error
	// Webhooks maps squad name to its plaintext webhook URL. Squads without
	// a webhook are absent.
	Webhooks(ctx context.Context) (map[string]string, error)
}

type squadService struct {
	squadRepo repository.SquadRepository
	cipher    *crypto.Cipher
	logger    *zap.Logger
}

// NewSquadService wires the service. A nil cipher stores webhooks in clear.
func NewSquadService(squadRepo repository.SquadRepository, cipher *crypto.Cipher, logger *zap.Logger) SquadService {
	return &squadService{
		squadRepo: squadRepo,
		cipher:    cipher,
		logger:    logger,
	}
}

func (s *squadService) List(ctx context.Context) ([]models.Squad, error) {
	squads, err := s.squadRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range squads {
		if err := s.open(&squads[i]); err != nil {
			return nil, err
		}
	}
	return squads, nil
}

func (s *squadService) Get(ctx context.Context, name string) (*models.Squad, error) {
	squad, err := s.squadRepo.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := s.open(squad); err != nil {
		return nil, err
	}
	return squad, nil
}

func (s *squadService) Create(ctx context.Context, req *models.CreateSquadRequest) (*models.Squad, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	sealed, err := s.cipher.Seal(req.WebhookURL)
	if err != nil {
		return nil, fmt.Errorf("failed to seal webhook: %w", err)
	}

	squad := &models.Squad{Name: req.Name, WebhookURL: sealed}
	if err := s.squadRepo.Create(ctx, squad); err != nil {
		if errors.Is(err, pkg.ErrAlreadyExists) {
			return nil, ErrSquadExists
		}
		return nil, err
	}

	s.logger.Info("squad created", zap.String("squad", squad.Name), zap.Bool("webhook", req.WebhookURL != ""))

	squad.WebhookURL = req.WebhookURL
	return squad, nil
}

func (s *squadService) Update(ctx context.Context, name string, req *models.UpdateSquadRequest) (*models.Squad, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	squad, err := s.squadRepo.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}

	squad.Name = req.NewName
	if req.WebhookURL != nil {
		sealed, err := s.cipher.Seal(*req.WebhookURL)
		if err != nil {
			return nil, fmt.Errorf("failed to seal webhook: %w", err)
		}
		squad.WebhookURL = sealed
	}

	if err := s.squadRepo.Update(ctx, squad); err != nil {
		if errors.Is(err, pkg.ErrAlreadyExists) {
			return nil, ErrSquadExists
		}
		return nil, err
	}

	if name != squad.Name {
		s.logger.Info("squad renamed", zap.String("from", name), zap.String("to", squad.Name))
	}

	if err := s.open(squad); err != nil {
		return nil, err
	}
	return squad, nil
}

func (s *squadService) Delete(ctx context.Context, name string) error {
	squad, err := s.squadRepo.GetByName(ctx, name)
	if err != nil {
		return err
	}

	count, err := s.squadRepo.CountSites(ctx, squad.ID)
	if err != nil {
		return err
	}
	if count > 0 {
		return &SquadInUseError{Squad: name, Sites: count}
	}

	if err := s.squadRepo.Delete(ctx, squad.ID); err != nil {
		// A site attached between the count and the delete.
		if errors.Is(err, pkg.ErrConflict) {
			count, _ = s.squadRepo.CountSites(ctx, squad.ID)
			return &SquadInUseError{Squad: name, Sites: max(count, 1)}
		}
		return err
	}

	s.logger.Info("squad deleted", zap.String("squad", name))
	return nil
}

func (s *squadService) Webhooks(ctx context.Context) (map[string]string, error) {
	squads, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	hooks := make(map[string]string, len(squads))
	for _, squad := range squads {
		if squad.WebhookURL != "" {
			hooks[squad.Name] = squad.WebhookURL
		}
	}
	return hooks, nil
}

func (s *squadService) open(squad *models.Squad) error {
	plain, err := s.cipher.Open(squad.WebhookURL)
	if err != nil {
		return fmt.Errorf("failed to open webhook of squad %q: %w", squad.Name, err)
	}
	squad.WebhookURL = plain
	return nil
}
