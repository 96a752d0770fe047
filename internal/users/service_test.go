package users

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/taskhub/taskhub-api/internal/apperr"
	"github.com/taskhub/taskhub-api/internal/models"
)

func TestFindOrCreate(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	u, err := svc.FindOrCreate(ctx, " X@Example.com ", "", "https://pic", true)
	require.NoError(t, err)
	assert.Equal(t, "x@example.com", u.Email)
	assert.Equal(t, "x@example.com", u.Name)
	assert.Equal(t, models.RoleUser, u.Role)
	assert.True(t, u.EmailVerified)
	assert.False(t, u.ID.IsZero())
	assert.False(t, u.CreatedAt.IsZero())

	again, err := svc.FindOrCreate(ctx, "x@example.com", "Other Name", "", false)
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID, "second login must not create a new user")
	assert.Equal(t, "x@example.com", again.Name, "existing profile is not overwritten")

	_, err = svc.FindOrCreate(ctx, "", "", "", false)
	assert.Equal(t, http.StatusBadRequest, apperr.Status(err))
}

func TestFindOrCreate_ConcurrentFirstLogin(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.FindOrCreate(context.Background(), "race@example.com", "Race", "", false)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	all, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCreate_ValidationAndConflict(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	u, err := svc.Create(ctx, CreateInput{Name: "Ann", Email: "ann@example.com", Role: models.RoleTaskCreator})
	require.NoError(t, err)
	assert.Equal(t, models.RoleTaskCreator, u.Role)

	_, err = svc.Create(ctx, CreateInput{Name: "Ann 2", Email: "ANN@example.com"})
	assert.Equal(t, http.StatusConflict, apperr.Status(err))

	_, err = svc.Create(ctx, CreateInput{Email: "x@example.com"})
	assert.Equal(t, http.StatusBadRequest, apperr.Status(err))

	_, err = svc.Create(ctx, CreateInput{Name: "N", Email: "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, apperr.Status(err))

	_, err = svc.Create(ctx, CreateInput{Name: "N", Email: "n@example.com", Role: "SUPERUSER"})
	assert.Equal(t, http.StatusBadRequest, apperr.Status(err))
}

func TestGetAndDelete_NotFound(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	_, err := svc.Get(ctx, "not-hex")
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, ae.Status)
	assert.Equal(t, "User not found", ae.Message)

	err = svc.Delete(ctx, primitive.NewObjectID().Hex())
	assert.Equal(t, http.StatusNotFound, apperr.Status(err))
}

func TestUpdate_Policy(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()
	admin, _ := svc.Create(ctx, CreateInput{Name: "Admin", Email: "admin@example.com", Role: models.RoleAdmin})
	alice, _ := svc.Create(ctx, CreateInput{Name: "Alice", Email: "alice@example.com"})
	bob, _ := svc.Create(ctx, CreateInput{Name: "Bob", Email: "bob@example.com"})

	name := "Alice B"
	u, err := svc.Update(ctx, alice, alice.ID.Hex(), Patch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Alice B", u.Name)

	_, err = svc.Update(ctx, bob, alice.ID.Hex(), Patch{Name: &name})
	assert.Equal(t, http.StatusForbidden, apperr.Status(err))

	role := models.RoleAdmin
	_, err = svc.Update(ctx, alice, alice.ID.Hex(), Patch{Role: &role})
	assert.Equal(t, http.StatusForbidden, apperr.Status(err), "self cannot escalate role")

	victim := "victim@example.com"
	_, err = svc.Update(ctx, alice, alice.ID.Hex(), Patch{Email: &victim})
	assert.Equal(t, http.StatusForbidden, apperr.Status(err), "self cannot change login email")
	verified := true
	_, err = svc.Update(ctx, alice, alice.ID.Hex(), Patch{EmailVerified: &verified})
	assert.Equal(t, http.StatusForbidden, apperr.Status(err))

	u, err = svc.Update(ctx, admin, alice.ID.Hex(), Patch{Role: &role})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, u.Role)

	taken := "bob@example.com"
	_, err = svc.Update(ctx, admin, alice.ID.Hex(), Patch{Email: &taken})
	assert.Equal(t, http.StatusConflict, apperr.Status(err))

	_, err = svc.Update(ctx, admin, primitive.NewObjectID().Hex(), Patch{Name: &name})
	assert.Equal(t, http.StatusNotFound, apperr.Status(err))
}

func TestSetRoleByEmail(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()
	_, err := svc.FindOrCreate(ctx, "ops@example.com", "Ops", "", true)
	require.NoError(t, err)

	u, err := svc.SetRoleByEmail(ctx, "OPS@example.com", models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, u.Role)

	_, err = svc.SetRoleByEmail(ctx, "missing@example.com", models.RoleAdmin)
	assert.Equal(t, http.StatusNotFound, apperr.Status(err))
}

func TestGetMany_SkipsUnknown(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()
	a, _ := svc.Create(ctx, CreateInput{Name: "A", Email: "a@example.com"})
	got, err := svc.GetMany(ctx, []primitive.ObjectID{a.ID, primitive.NewObjectID(), a.ID})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, a.ID, got[0].ID)
}
