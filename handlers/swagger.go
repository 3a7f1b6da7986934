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
		c.JSON(http.StatusOK, swaggerJSON)
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>inkpad — Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

// Minimal OpenAPI document covering the auth and document endpoints.
const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "inkpad", "version": "v0.1.0" },
  "paths": {
    "/auth/login": {
      "post": {
        "summary": "Exchange authorization code / login",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"mode":{"type":"string"},"username":{"type":"string"},"password":{"type":"string"},"code":{"type":"string"},"redirect_uri":{"type":"string"}}}}}},
        "responses": { "200": { "description": "tokens returned" } }
      }
    },
    "/auth/refresh": {
      "post": { "summary": "Refresh access token", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"refresh_token":{"type":"string"}}}}}}, "responses": { "200": { "description": "new access token" }, "401": { "description": "invalid refresh" } } }
    },
    "/auth/logout": {
      "post": { "summary": "Logout and invalidate refresh token", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"refresh_token":{"type":"string"}}}}}}, "responses": { "200": { "description": "logged out" } } }
    },
    "/api/documents": {
      "post": { "summary": "Create a document", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"title":{"type":"string"},"parentDocument":{"type":"string"}}}}}}, "responses": { "201": { "description": "created document" } } },
      "get": { "summary": "List non-archived children of a parent (sidebar)", "parameters": [{"name":"parentDocument","in":"query","schema":{"type":"string"}}], "responses": { "200": { "description": "documents" } } }
    },
    "/api/documents/{id}": {
      "get": { "summary": "Fetch a document with resolved access level", "responses": { "200": { "description": "document" }, "401": { "description": "authentication required" }, "403": { "description": "not allowed" }, "404": { "description": "not found" } } },
      "patch": { "summary": "Update title/content/cover/icon/publish state", "responses": { "200": { "description": "updated document" }, "400": { "description": "invalid content" } } },
      "delete": { "summary": "Permanently delete a document", "responses": { "204": { "description": "deleted" } } }
    },
    "/api/documents/{id}/archive": {
      "post": { "summary": "Move a document and its descendants to the trash", "responses": { "200": { "description": "archived root" } } }
    },
    "/api/documents/{id}/restore": {
      "post": { "summary": "Restore a document and its descendants from the trash", "responses": { "200": { "description": "restored root" } } }
    },
    "/api/documents/trash": { "get": { "summary": "List archived documents", "responses": { "200": { "description": "documents" } } } },
    "/api/documents/search": { "get": { "summary": "List all non-archived documents", "responses": { "200": { "description": "documents" } } } },
    "/api/documents/shared": { "get": { "summary": "List documents shared with the caller", "responses": { "200": { "description": "documents" } } } },
    "/api/documents/{id}/collaborators": {
      "post": { "summary": "Grant shared access to an email", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"email":{"type":"string"}}}}}}, "responses": { "200": { "description": "updated document" } } }
    },
    "/api/assets": {
      "post": { "summary": "Upload a cover image or attachment", "responses": { "201": { "description": "object key and URL" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } }
  }
}`
