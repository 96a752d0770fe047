package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhub/taskhub-api/internal/models"
	"github.com/taskhub/taskhub-api/internal/users"
)

func run(t *testing.T, svc *users.Service, args ...string) (string, error) {
	t.Helper()
	open := func(context.Context) (*users.Service, func(), error) { return svc, func() {}, nil }
	root := newRootCmd(open)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestUserCreateListPromote(t *testing.T) {
	svc := users.NewService(users.NewMemoryRepository())

	out, err := run(t, svc, "user", "create", "--name", "Root", "--email", "root@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "created root@example.com (USER)")

	out, err = run(t, svc, "user", "promote", "--email", "ROOT@example.com")
	require.NoError(t, err)
	assert.Equal(t, "root@example.com is now ADMIN\n", out)

	u, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, u, 1)
	assert.Equal(t, models.RoleAdmin, u[0].Role)

	out, err = run(t, svc, "user", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "EMAIL")
	assert.Contains(t, out, "root@example.com")
}

func TestUserPromote_Errors(t *testing.T) {
	svc := users.NewService(users.NewMemoryRepository())

	_, err := run(t, svc, "user", "promote", "--email", "nobody@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "User not found")

	_, err = run(t, svc, "user", "promote", "--email", "nobody@example.com", "--role", "WIZARD")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid role")

	_, err = run(t, svc, "user", "promote")
	require.Error(t, err, "email flag is required")
}

func TestMongoUsers_RequiresURI(t *testing.T) {
	t.Setenv("MONGODB_URI", "")
	_, _, err := mongoUsers(context.Background())
	assert.ErrorIs(t, err, errMissingURI)
}
