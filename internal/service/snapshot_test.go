package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/helpdesk-io/support-desk/internal/repository"
	apperrors "github.com/helpdesk-io/support-desk/pkg/util/errorutil"
)

func TestStoreError(t *testing.T) {
	assert.NoError(t, storeError(nil, "ticket"))

	err := storeError(&repository.StaleWriteError{Field: "status", Expected: "open", Actual: "closed"}, "ticket")
	assert.True(t, apperrors.IsConflict(err))

	err = storeError(fmt.Errorf("get: %w", repository.ErrNotFound), "ticket")
	assert.True(t, apperrors.IsNotFound(err))

	err = storeError(&pgconn.PgError{Code: "22P02"}, "invitation")
	assert.True(t, apperrors.IsNotFound(err))
	var domainErr *apperrors.DomainError
	assert.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "invitation", domainErr.Details["entity"])

	err = storeError(repository.ErrDuplicate, "membership")
	assert.True(t, apperrors.IsConflict(err))
}
