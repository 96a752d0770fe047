package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>taskhub-api - Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "taskhub-api", "version": "v1.0.0" },
  "servers": [ { "url": "/api/v1" } ],
  "components": {
    "securitySchemes": {
      "bearer": { "type": "http", "scheme": "bearer", "bearerFormat": "JWT" },
      "cookie": { "type": "apiKey", "in": "cookie", "name": "jwt" }
    },
    "schemas": {
      "Error": { "type": "object", "properties": { "status": { "type": "string", "enum": ["fail", "error"] }, "message": { "type": "string" } } },
      "User": { "type": "object", "properties": { "id": {"type":"string"}, "name": {"type":"string"}, "email": {"type":"string"}, "role": {"type":"string","enum":["ADMIN","TASK_CREATOR","READ_ONLY_USER","USER"]}, "emailVerified": {"type":"boolean"}, "profilePicture": {"type":"string"}, "createdAt": {"type":"string","format":"date-time"} } },
      "Project": { "type": "object", "properties": { "id": {"type":"string"}, "name": {"type":"string"}, "description": {"type":"string"}, "startDate": {"type":"string","format":"date-time"}, "endDate": {"type":"string","format":"date-time"}, "ownerId": {"type":"string"}, "members": {"type":"array","items":{"type":"string"}} } },
      "Task": { "type": "object", "properties": { "id": {"type":"string"}, "description": {"type":"string"}, "dueDate": {"type":"string","format":"date-time"}, "status": {"type":"string","enum":["NOT_STARTED","IN_PROGRESS","BLOCKED","COMPLETED"]}, "ownerId": {"type":"string"}, "projectId": {"type":"string"}, "assigneeId": {"type":"string"} } },
      "Attachment": { "type": "object", "properties": { "id": {"type":"string"}, "name": {"type":"string"}, "contentType": {"type":"string"}, "size": {"type":"integer"} } }
    }
  },
  "security": [ { "bearer": [] }, { "cookie": [] } ],
  "paths": {
    "/auth/login/email": {
      "post": { "summary": "Sign in with email and password", "security": [], "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"email":{"type":"string"},"password":{"type":"string"}}}}}}, "responses": { "200": { "description": "token and data.user" }, "401": { "description": "authentication failed" } } }
    },
    "/auth/login": {
      "post": { "summary": "Sign in with a Google ID token", "security": [], "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"idToken":{"type":"string"}}}}}}, "responses": { "200": { "description": "token and user" }, "401": { "description": "Google authentication failed" } } }
    },
    "/auth/refresh": {
      "post": { "summary": "Rotate a refresh token", "security": [], "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"refreshToken":{"type":"string"}}}}}}, "responses": { "200": { "description": "new token" }, "401": { "description": "invalid refresh token" } } }
    },
    "/auth/logout": {
      "post": { "summary": "Revoke the session", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"refreshToken":{"type":"string"},"all":{"type":"boolean"}}}}}}, "responses": { "200": { "description": "logged out" } } }
    },
    "/users": {
      "get": { "summary": "List users (ADMIN, TASK_CREATOR)", "responses": { "200": { "description": "users" }, "403": { "description": "forbidden" } } },
      "post": { "summary": "Create a user (ADMIN)", "responses": { "201": { "description": "created" }, "400": { "description": "invalid" } } }
    },
    "/users/me": { "get": { "summary": "Current user", "responses": { "200": { "description": "user" } } } },
    "/users/{id}": {
      "get": { "summary": "Get a user", "responses": { "200": { "description": "user" }, "404": { "description": "User not found" } } },
      "put": { "summary": "Update a user (self or ADMIN)", "responses": { "200": { "description": "user" }, "403": { "description": "forbidden" }, "404": { "description": "User not found" } } },
      "delete": { "summary": "Delete a user (ADMIN)", "responses": { "204": { "description": "deleted" }, "404": { "description": "User not found" } } }
    },
    "/projects": {
      "get": { "summary": "Projects owned by or shared with the caller", "responses": { "200": { "description": "projects" } } },
      "post": { "summary": "Create a project owned by the caller", "responses": { "201": { "description": "created" }, "400": { "description": "invalid" } } }
    },
    "/projects/{id}": {
      "get": { "summary": "Get a project", "responses": { "200": { "description": "project" }, "404": { "description": "Project not found" } } },
      "put": { "summary": "Update a project (owner or ADMIN)", "responses": { "200": { "description": "project" }, "403": { "description": "forbidden" } } },
      "delete": { "summary": "Delete a project (owner or ADMIN)", "responses": { "204": { "description": "deleted" }, "404": { "description": "Project not found" } } }
    },
    "/projects/{id}/members": {
      "post": { "summary": "Add members", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"userIds":{"type":"array","items":{"type":"string"}}}}}}}, "responses": { "200": { "description": "project" } } }
    },
    "/projects/{id}/members/{userId}": {
      "delete": { "summary": "Remove a member", "responses": { "200": { "description": "project" }, "404": { "description": "Project not found" } } }
    },
    "/tasks": {
      "get": { "summary": "List tasks", "responses": { "200": { "description": "tasks" } } },
      "post": { "summary": "Create a task owned by the caller", "responses": { "201": { "description": "created" }, "400": { "description": "invalid" } } }
    },
    "/tasks/{id}": {
      "get": { "summary": "Get a task", "responses": { "200": { "description": "task" }, "404": { "description": "Task not found" } } },
      "put": { "summary": "Update a task (owner, assignee or ADMIN)", "responses": { "200": { "description": "status and data.task" }, "403": { "description": "forbidden" } } },
      "delete": { "summary": "Delete a task (owner, assignee or ADMIN)", "responses": { "204": { "description": "deleted" }, "404": { "description": "Task not found" } } }
    },
    "/tasks/project/{projectId}": { "get": { "summary": "Tasks of a project", "responses": { "200": { "description": "tasks" } } } },
    "/tasks/user/{userId}": { "get": { "summary": "Tasks assigned to a user", "responses": { "200": { "description": "tasks" } } } },
    "/tasks/{id}/attachments": {
      "post": { "summary": "Upload an attachment (multipart field file)", "responses": { "201": { "description": "attachment" }, "400": { "description": "invalid file" } } }
    },
    "/tasks/{id}/attachments/{attachmentId}": {
      "get": { "summary": "Download an attachment", "responses": { "302": { "description": "redirect to a presigned URL" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "security": [], "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "security": [], "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } }
  }
}`
