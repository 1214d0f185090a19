package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Account struct {
	Id           uuid.UUID
	Npid         string
	CreatedAt    time.Time
	LastActivity time.Time
}

func (acc *Account) ToString() string {
	return fmt.Sprintf("\n\tId: %s \n\tNpid: %s \n\tCREATED_AT: %s", acc.Id, acc.Npid, acc.CreatedAt)
}
