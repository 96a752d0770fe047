package handlers

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/taskhub/taskhub-api/internal/models"
)

func TestCreateTask(t *testing.T) {
	f := newFixture(t)
	owner, tok := f.user(t, "owner@example.com", models.RoleTaskCreator)
	assignee, _ := f.user(t, "dev@example.com", models.RoleUser)
	p := f.project(t, owner, "p")

	r := f.do(http.MethodPost, "/api/v1/tasks", tok, map[string]interface{}{
		"description": "fix login",
		"dueDate":     "2030-03-01T12:00:00Z",
		"projectId":   p.ID.Hex(),
		"assigneeId":  assignee.ID.Hex(),
		"ownerId":     assignee.ID.Hex(),
	})
	require.Equal(t, http.StatusCreated, r.Code, r.Body.String())
	body := r.JSON(t)
	assert.Equal(t, owner.ID.Hex(), body["ownerId"])
	assert.Equal(t, string(models.StatusNotStarted), body["status"])

	base := map[string]interface{}{"description": "x", "dueDate": "2030-03-01T12:00:00Z", "projectId": p.ID.Hex(), "assigneeId": assignee.ID.Hex()}
	cases := []struct {
		field string
		value interface{}
		msg   string
	}{
		{"description", "", "Task description is required"},
		{"dueDate", nil, "Task due date is required"},
		{"status", "DONE", "Invalid task status"},
		{"projectId", primitive.NewObjectID().Hex(), "Project does not exist"},
		{"assigneeId", primitive.NewObjectID().Hex(), "Assignee does not exist"},
	}
	for _, tc := range cases {
		in := map[string]interface{}{}
		for k, v := range base {
			in[k] = v
		}
		in[tc.field] = tc.value
		requireError(t, f.do(http.MethodPost, "/api/v1/tasks", tok, in), http.StatusBadRequest, tc.msg)
	}
}

func TestGetAndListTasks(t *testing.T) {
	f := newFixture(t)
	owner, tok := f.user(t, "owner@example.com", models.RoleUser)
	dev, _ := f.user(t, "dev@example.com", models.RoleUser)
	p := f.project(t, owner, "p")
	other := f.project(t, owner, "other")
	tk := f.task(t, owner, dev, p)
	f.task(t, owner, owner, other)

	r := f.do(http.MethodGet, "/api/v1/tasks", tok, nil)
	require.Equal(t, http.StatusOK, r.Code)
	assert.Len(t, r.List(t), 2)

	r = f.do(http.MethodGet, "/api/v1/tasks/"+tk.ID.Hex(), tok, nil)
	require.Equal(t, http.StatusOK, r.Code)
	body := r.JSON(t)
	assert.Equal(t, "dev@example.com", body["assignee"].(map[string]interface{})["email"])
	assert.Equal(t, "p", body["project"].(map[string]interface{})["name"])

	r = f.do(http.MethodGet, "/api/v1/tasks/project/"+p.ID.Hex(), tok, nil)
	require.Equal(t, http.StatusOK, r.Code)
	list := r.List(t)
	require.Len(t, list, 1)
	assert.Equal(t, tk.ID.Hex(), list[0]["id"])

	r = f.do(http.MethodGet, "/api/v1/tasks/user/"+dev.ID.Hex(), tok, nil)
	require.Equal(t, http.StatusOK, r.Code)
	assert.Len(t, r.List(t), 1)

	requireError(t, f.do(http.MethodGet, "/api/v1/tasks/"+primitive.NewObjectID().Hex(), tok, nil), http.StatusNotFound, "Task not found")
	requireError(t, f.do(http.MethodGet, "/api/v1/tasks/bad-id", tok, nil), http.StatusNotFound, "Task not found")
	for _, path := range []string{"/api/v1/tasks/project/" + primitive.NewObjectID().Hex(), "/api/v1/tasks/user/" + primitive.NewObjectID().Hex()} {
		r = f.do(http.MethodGet, path, tok, nil)
		require.Equal(t, http.StatusOK, r.Code, r.Body.String())
		assert.Equal(t, "[]", strings.TrimSpace(r.Body.String()))
	}
}

func TestUpdateTask_Policy(t *testing.T) {
	f := newFixture(t)
	owner, ownerTok := f.user(t, "owner@example.com", models.RoleUser)
	dev, devTok := f.user(t, "dev@example.com", models.RoleUser)
	_, strangerTok := f.user(t, "stranger@example.com", models.RoleTaskCreator)
	_, adminTok := f.user(t, "admin@example.com", models.RoleAdmin)
	tk := f.task(t, owner, dev, f.project(t, owner, "p"))
	path := "/api/v1/tasks/" + tk.ID.Hex()

	requireError(t, f.do(http.MethodPut, path, strangerTok, map[string]string{"status": "COMPLETED"}), http.StatusForbidden, "Not authorized to update this task")

	r := f.do(http.MethodPut, path, devTok, map[string]string{"status": "IN_PROGRESS", "ownerId": dev.ID.Hex()})
	require.Equal(t, http.StatusOK, r.Code, r.Body.String())
	body := r.JSON(t)
	assert.Equal(t, "success", body["status"])
	task := body["data"].(map[string]interface{})["task"].(map[string]interface{})
	assert.Equal(t, "IN_PROGRESS", task["status"])
	assert.Equal(t, owner.ID.Hex(), task["ownerId"], "owner is not updatable")

	for _, tok := range []string{ownerTok, adminTok} {
		assert.Equal(t, http.StatusOK, f.do(http.MethodPut, path, tok, map[string]string{"description": "updated"}).Code)
	}
	requireError(t, f.do(http.MethodPut, path, ownerTok, map[string]string{"status": "DONE"}), http.StatusBadRequest, "Invalid task status")
	requireError(t, f.do(http.MethodPut, "/api/v1/tasks/"+primitive.NewObjectID().Hex(), adminTok, map[string]string{"description": "x"}), http.StatusNotFound, "Task not found")
}

func TestDeleteTask(t *testing.T) {
	f := newFixture(t)
	owner, _ := f.user(t, "owner@example.com", models.RoleUser)
	dev, devTok := f.user(t, "dev@example.com", models.RoleUser)
	_, strangerTok := f.user(t, "stranger@example.com", models.RoleUser)
	tk := f.task(t, owner, dev, f.project(t, owner, "p"))
	path := "/api/v1/tasks/" + tk.ID.Hex()

	requireError(t, f.do(http.MethodDelete, path, strangerTok, nil), http.StatusForbidden, "Not authorized to delete this task")
	require.Equal(t, http.StatusNoContent, f.do(http.MethodDelete, path, devTok, nil).Code)
	requireError(t, f.do(http.MethodDelete, path, devTok, nil), http.StatusNotFound, "Task not found")
}
