package usecase

import (
	"context"
	"errors"
	"strings"

	"subscriber-payments/internal/domain"
	"subscriber-payments/internal/domain/model"
	"subscriber-payments/internal/domain/ports/repository"
	"subscriber-payments/internal/infra/logging"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
)

// Compile-time check
var _ UserUseCase = (*userUC)(nil)

// UserUseCase keeps the local copy of externally authenticated users.
type UserUseCase interface {
	// EnsureUser creates the user on first sight and refreshes the email afterwards.
	EnsureUser(ctx context.Context, id, email string) (*model.User, error)
	Get(ctx context.Context, id string) (*model.User, error)
}

type userUC struct {
	users repository.UserRepository
	tm    repository.TransactionManager
	log   *zerolog.Logger
}

func NewUserUseCase(users repository.UserRepository, tm repository.TransactionManager, logger *zerolog.Logger) *userUC {
	return &userUC{
		users: users,
		tm:    tm,
		log:   logger,
	}
}

func (u *userUC) EnsureUser(ctx context.Context, id, email string) (*model.User, error) {
	defer logging.TraceDuration(u.log, "UserUC.EnsureUser")()

	var user *model.User
	txOpts := pgx.TxOptions{IsoLevel: pgx.ReadCommitted}
	err := u.tm.WithTx(ctx, txOpts, func(ctx context.Context, tx repository.Tx) error {
		usr, err := u.users.FindByID(ctx, tx, id)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if usr != nil {
			email = strings.TrimSpace(email)
			if email != "" && usr.Email != email {
				usr.Email = email
				if err := u.users.Save(ctx, tx, usr); err != nil {
					u.log.Error().Err(err).Msg("failed to update user email")
					return err
				}
			}
			user = usr
			return nil
		}

		nu, err := model.NewUser(id, email, "")
		if err != nil {
			return err
		}
		if err := u.users.Save(ctx, tx, nu); err != nil {
			return err
		}
		user = nu
		return nil
	})
	return user, err
}

func (u *userUC) Get(ctx context.Context, id string) (*model.User, error) {
	defer logging.TraceDuration(u.log, "UserUC.Get")()
	return u.users.FindByID(ctx, repository.NoTX, id)
}
