package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers the OpenAPI description of the control API.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg gin.IRoutes) {
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
    <title>tourneyhub client core</title>
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

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "tourneyhub-client-core", "version": "v0.1.0" },
  "paths": {
    "/session": { "get": { "summary": "Current session phase, identity and roles", "responses": { "200": { "description": "session" } } } },
    "/session/signin": {
      "post": {
        "summary": "Sign in with an id token",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"id_token":{"type":"string"},"remember":{"type":"boolean"}}}}}},
        "responses": { "200": { "description": "signed in" }, "401": { "description": "invalid id token" }, "429": { "description": "rate limited" } }
      }
    },
    "/session/signout": { "post": { "summary": "Sign out", "responses": { "204": { "description": "signed out" } } } },
    "/session/role": {
      "post": {
        "summary": "Select one of the granted roles",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"role":{"type":"string"}}}}}},
        "responses": { "200": { "description": "role selected" }, "409": { "description": "role not granted" } }
      }
    },
    "/activity": { "get": { "summary": "Newest activity records of one type", "parameters": [{"name":"type","in":"query"},{"name":"limit","in":"query"}], "responses": { "200": { "description": "records" } } } },
    "/activity/stats": { "get": { "summary": "Activity statistics over [start, end)", "parameters": [{"name":"start","in":"query"},{"name":"end","in":"query"}], "responses": { "200": { "description": "stats" }, "503": { "description": "statistics unavailable" } } } },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Bootstrap finished", "responses": { "200": { "description": "ready" }, "503": { "description": "still initializing" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "metrics" } } } }
  }
}`
