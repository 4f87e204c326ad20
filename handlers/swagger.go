package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the identity service.
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
    <title>pennywise-identity Swagger</title>
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

// OpenAPI document for the identity endpoints.
const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "pennywise-identity", "version": "v1.0.0" },
  "components": {
    "securitySchemes": { "bearer": { "type": "http", "scheme": "bearer", "bearerFormat": "JWT" } },
    "schemas": {
      "User": {"type":"object","properties":{"id":{"type":"string"},"name":{"type":"string"},"email":{"type":"string"},"authProvider":{"type":"string","enum":["local","google","discord"]},"monthlyBudget":{"type":"number"},"userType":{"type":"string"},"createdAt":{"type":"string","format":"date-time"},"updatedAt":{"type":"string","format":"date-time"}}},
      "AuthResult": {"type":"object","properties":{"success":{"type":"boolean"},"user":{"$ref":"#/components/schemas/User"},"token":{"type":"string"}}},
      "Error": {"type":"object","properties":{"success":{"type":"boolean"},"message":{"type":"string"},"code":{"type":"string"},"provider":{"type":"string"}}}
    }
  },
  "paths": {
    "/api/auth/register": {
      "post": {
        "summary": "Register a local account",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","required":["name","email","password"],"properties":{"name":{"type":"string"},"email":{"type":"string"},"password":{"type":"string"},"turnstileToken":{"type":"string"}}}}}},
        "responses": { "201": { "description": "account created", "content": {"application/json":{"schema":{"$ref":"#/components/schemas/AuthResult"}}} }, "400": { "description": "email_taken or invalid_input" } }
      }
    },
    "/api/auth/login": {
      "post": {
        "summary": "Password login",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","required":["email","password"],"properties":{"email":{"type":"string"},"password":{"type":"string"},"turnstileToken":{"type":"string"}}}}}},
        "responses": { "200": { "description": "signed in", "content": {"application/json":{"schema":{"$ref":"#/components/schemas/AuthResult"}}} }, "400": { "description": "wrong_provider" }, "401": { "description": "invalid_credentials" } }
      }
    },
    "/api/auth/google": {
      "post": { "summary": "Sign in with a Google ID token", "requestBody": { "content": { "application/json": { "schema": {"type":"object","required":["idToken"],"properties":{"idToken":{"type":"string"}}}}}}, "responses": { "200": { "description": "signed in" }, "400": { "description": "external_verification_failed or wrong_provider" } } }
    },
    "/api/auth/discord": {
      "post": { "summary": "Sign in with a Discord authorization code", "requestBody": { "content": { "application/json": { "schema": {"type":"object","required":["code"],"properties":{"code":{"type":"string"}}}}}}, "responses": { "200": { "description": "signed in" }, "400": { "description": "external_verification_failed or wrong_provider" } } }
    },
    "/api/auth/discord/callback": {
      "get": { "summary": "Discord OAuth redirect target", "parameters": [{"name":"code","in":"query","schema":{"type":"string"}}], "responses": { "302": { "description": "redirect to the frontend with token and user, or error=no_code|missing_data|wrong_provider|auth_failed" } } }
    },
    "/api/user/profile": {
      "get": { "summary": "Current profile", "security": [{"bearer":[]}], "responses": { "200": { "description": "profile" }, "401": { "description": "guard rejection" } } },
      "patch": { "summary": "Update profile", "security": [{"bearer":[]}], "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"name":{"type":"string"},"email":{"type":"string"},"currentPassword":{"type":"string"},"password":{"type":"string"},"monthlyBudget":{"type":"number"},"userType":{"type":"string"}}}}}}, "responses": { "200": { "description": "updated" }, "400": { "description": "validation or credential error" } } },
      "delete": { "summary": "Delete account", "security": [{"bearer":[]}], "responses": { "200": { "description": "deleted" }, "404": { "description": "identity_not_found" } } }
    },
    "/api/user/password": {
      "put": { "summary": "Change password", "security": [{"bearer":[]}], "requestBody": { "content": { "application/json": { "schema": {"type":"object","required":["newPassword"],"properties":{"currentPassword":{"type":"string"},"newPassword":{"type":"string"}}}}}}, "responses": { "200": { "description": "password changed" }, "400": { "description": "unsupported_operation, no_password_set or incorrect_current_password" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "text exposition" } } } }
  }
}`
