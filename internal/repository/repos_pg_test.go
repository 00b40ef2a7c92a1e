package repository

import (
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
)

func TestNewRideRepository(t *testing.T) {
	pool := &pgxpool.Pool{}
	repo := NewRideRepository(pool)
	assert.NotNil(t, repo)
}

func TestNewRequestRepository(t *testing.T) {
	pool := &pgxpool.Pool{}
	repo := NewRequestRepository(pool)
	assert.NotNil(t, repo)
}

func TestNewInvolvementRepository(t *testing.T) {
	pool := &pgxpool.Pool{}
	repo := NewInvolvementRepository(pool)
	assert.NotNil(t, repo)
}

func TestNewNotificationRepository(t *testing.T) {
	pool := &pgxpool.Pool{}
	repo := NewNotificationRepository(pool)
	assert.NotNil(t, repo)
}
