// Package portal registers the OpenAPI document served at /swagger/.
// Regenerate with: swag init -g internal/portal/http/router.go -o api/portal
package portal

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/livez": {"get": {"tags": ["Health"], "summary": "Liveness probe", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}},
        "/readyz": {"get": {"tags": ["Health"], "summary": "Readiness probe", "produces": ["application/json"], "responses": {"200": {"description": "OK"}, "503": {"description": "Service Unavailable"}}}},
        "/v1/bootstrap": {"post": {"tags": ["Bootstrap"], "summary": "Bootstrap the first admin", "consumes": ["application/json"], "produces": ["application/json"], "parameters": [{"type": "string", "name": "X-Bootstrap-Token", "in": "header", "required": true}], "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}, "403": {"description": "Forbidden"}}}},
        "/v1/auth/register/patient": {"post": {"tags": ["Auth"], "summary": "Register a patient", "consumes": ["application/json"], "produces": ["application/json"], "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}, "409": {"description": "Conflict"}}}},
        "/v1/auth/register/admin": {"post": {"security": [{"BearerAuth": []}], "tags": ["Auth"], "summary": "Register an admin", "consumes": ["application/json"], "produces": ["application/json"], "responses": {"201": {"description": "Created"}, "401": {"description": "Unauthorized"}, "403": {"description": "Forbidden"}, "409": {"description": "Conflict"}}}},
        "/v1/auth/login": {"post": {"tags": ["Auth"], "summary": "Password step", "consumes": ["application/json"], "produces": ["application/json"], "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}}},
        "/v1/auth/login/mfa": {"post": {"tags": ["Auth"], "summary": "TOTP step", "consumes": ["application/json"], "produces": ["application/json"], "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}}},
        "/v1/auth/refresh": {"post": {"tags": ["Auth"], "summary": "Rotate a refresh token", "consumes": ["application/json"], "produces": ["application/json"], "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}}},
        "/v1/auth/validate-refresh": {"post": {"tags": ["Auth"], "summary": "Check a refresh token without consuming it", "consumes": ["application/json"], "produces": ["application/json"], "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}}},
        "/v1/auth/verify": {"get": {"security": [{"BearerAuth": []}], "tags": ["Auth"], "summary": "Inspect the caller's access token", "produces": ["application/json"], "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}}},
        "/v1/auth/mfa/setup": {"post": {"tags": ["MFA"], "summary": "Start TOTP enrolment", "consumes": ["application/json"], "produces": ["application/json"], "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}, "404": {"description": "Not Found"}, "409": {"description": "Conflict"}}}},
        "/v1/auth/mfa/verify": {"post": {"tags": ["MFA"], "summary": "Finish TOTP enrolment", "consumes": ["application/json"], "produces": ["application/json"], "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "401": {"description": "Unauthorized"}, "404": {"description": "Not Found"}}}},
        "/v1/patient/{email}/reports": {"get": {"security": [{"BearerAuth": []}], "tags": ["Reports"], "summary": "List the caller's reports", "produces": ["application/json"], "parameters": [{"type": "string", "name": "email", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}, "403": {"description": "Forbidden"}}}},
        "/v1/patient/{email}/reports/{reportId}/download": {"get": {"security": [{"BearerAuth": []}], "tags": ["Reports"], "summary": "Download one of the caller's reports", "produces": ["application/pdf"], "parameters": [{"type": "string", "name": "email", "in": "path", "required": true}, {"type": "string", "name": "reportId", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "401": {"description": "Unauthorized"}, "403": {"description": "Forbidden"}, "404": {"description": "Not Found"}}}},
        "/v1/admin/patients": {"get": {"security": [{"BearerAuth": []}], "tags": ["Admin"], "summary": "List patients", "produces": ["application/json"], "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}, "403": {"description": "Forbidden"}}}},
        "/v1/admin/reports": {"post": {"security": [{"BearerAuth": []}], "tags": ["Admin"], "summary": "Upload a report for a patient", "consumes": ["multipart/form-data"], "produces": ["application/json"], "parameters": [{"type": "string", "name": "patientId", "in": "formData", "required": true}, {"type": "string", "name": "reportTitle", "in": "formData", "required": true}, {"type": "string", "name": "reportDescription", "in": "formData"}, {"type": "file", "name": "reportPdf", "in": "formData", "required": true}], "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}, "401": {"description": "Unauthorized"}, "403": {"description": "Forbidden"}, "404": {"description": "Not Found"}}}}
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "JWT access token. Format: \"Bearer {token}\".",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "0.1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "Patients Portal API",
	Description:      "Authentication and report access for the patients portal.\n\nAccess tokens are HS256 JWTs. Refresh tokens are opaque and single use.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
