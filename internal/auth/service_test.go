package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/obralink/obralink/internal/shared"
)

type memoryRepo struct {
	users map[uuid.UUID]*User
}

func (r *memoryRepo) FindByEmail(ctx context.Context, email string) (*User, error) {
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memoryRepo) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func newTestService(t *testing.T) (*Service, *miniredis.Miniredis, *memoryRepo) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	userID := uuid.New()
	repo := &memoryRepo{users: map[uuid.UUID]*User{
		userID: {ID: userID, Email: "arch@example.com", Name: "La Arquitecta", PasswordHash: hash, IsActive: true},
	}}
	return NewService(repo, NewSessionStore(client, time.Hour)), mr, repo
}

func TestLoginAndSessionRoundTrip(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	token, user, err := svc.Login(ctx, "arch@example.com", "correct horse")
	require.NoError(t, err)
	require.Len(t, token, 64)
	require.Equal(t, "arch@example.com", user.Email)

	resolved, err := svc.UserFromSession(ctx, token)
	require.NoError(t, err)
	require.Equal(t, user.ID, resolved.ID)
}

func TestLoginRejections(t *testing.T) {
	svc, _, repo := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.Login(ctx, "arch@example.com", "wrong")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, "nobody@example.com", "correct horse")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	for _, u := range repo.users {
		u.IsActive = false
	}
	_, _, err = svc.Login(ctx, "arch@example.com", "correct horse")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestLogoutInvalidatesSession(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	token, _, err := svc.Login(ctx, "arch@example.com", "correct horse")
	require.NoError(t, err)
	require.NoError(t, svc.Logout(ctx, token))

	_, err = svc.UserFromSession(ctx, token)
	require.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestSessionExpires(t *testing.T) {
	svc, mr, _ := newTestService(t)
	ctx := context.Background()

	token, _, err := svc.Login(ctx, "arch@example.com", "correct horse")
	require.NoError(t, err)

	mr.FastForward(2 * time.Hour)

	_, err = svc.UserFromSession(ctx, token)
	require.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestDeactivatedUserLosesSession(t *testing.T) {
	svc, _, repo := newTestService(t)
	ctx := context.Background()

	token, user, err := svc.Login(ctx, "arch@example.com", "correct horse")
	require.NoError(t, err)

	repo.users[user.ID].IsActive = false
	_, err = svc.UserFromSession(ctx, token)
	require.ErrorIs(t, err, shared.ErrUnauthorized)
}
