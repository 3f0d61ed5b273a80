package postgres

import (
	"gorm.io/gorm"

	"github.com/andinopay/auth-service/internal/ports"
)

type Repositories struct {
	Users       ports.UserRepository
	Credentials ports.CredentialRepository
	Devices     ports.DeviceRepository
	Sessions    ports.SessionRepository
	Attempts    ports.AuthAttemptRepository
	Recovery    ports.RecoveryRepository
	Outbox      ports.OutboxRepository
	Idempotency ports.IdempotencyRepository
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Users:       &userRepository{db: db},
		Credentials: &credentialRepository{db: db},
		Devices:     &deviceRepository{db: db},
		Sessions:    &sessionRepository{db: db},
		Attempts:    &authAttemptRepository{db: db},
		Recovery:    &recoveryRepository{db: db},
		Outbox:      &outboxRepository{db: db},
		Idempotency: &idempotencyRepository{db: db},
	}
}
