// Package docs holds the OpenAPI description served at /docs.
//
// @title           Task Management API
// @version         1.0.0
// @description     Register, log in, and manage tasks assigned to users.
// @description     Errors follow RFC 7807 Problem Details.
// @BasePath        /
//
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 JWT bearer token. Format: 'Bearer <token>'
package docs

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
        "/": {
            "get": {
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Service banner",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/docs.BannerResponse"}}
                }
            }
        },
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Liveness and database check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/docs.HealthResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/errors.ProblemDetails"}}
                }
            }
        },
        "/users": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Register a user",
                "parameters": [
                    {"description": "New user", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.RegisterRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/docs.RegisterResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errors.ProblemDetails"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/errors.ProblemDetails"}}
                }
            }
        },
        "/users/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Log in and obtain a bearer token",
                "parameters": [
                    {"description": "Credentials", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/docs.LoginResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errors.ProblemDetails"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/errors.ProblemDetails"}}
                }
            }
        },
        "/tasks": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["tasks"],
                "summary": "List visible tasks",
                "parameters": [
                    {"type": "integer", "default": 1, "description": "Page number", "name": "page", "in": "query"},
                    {"type": "integer", "default": 10, "maximum": 100, "description": "Page size", "name": "limit", "in": "query"},
                    {"enum": ["pending", "in-progress", "completed"], "type": "string", "description": "Status filter", "name": "status", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/docs.TaskListResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errors.ProblemDetails"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/errors.ProblemDetails"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/errors.ProblemDetails"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["tasks"],
                "summary": "Create a task",
                "parameters": [
                    {"description": "Task", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.CreateTaskRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/docs.TaskResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errors.ProblemDetails"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/errors.ProblemDetails"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/errors.ProblemDetails"}}
                }
            }
        },
        "/tasks/{id}": {
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["tasks"],
                "summary": "Delete a task",
                "parameters": [
                    {"type": "string", "format": "uuid", "description": "Task ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errors.ProblemDetails"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/errors.ProblemDetails"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errors.ProblemDetails"}}
                }
            },
            "patch": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["tasks"],
                "summary": "Update a task",
                "parameters": [
                    {"type": "string", "format": "uuid", "description": "Task ID", "name": "id", "in": "path", "required": true},
                    {"description": "Fields to change", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.UpdateTaskRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/docs.TaskResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errors.ProblemDetails"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/errors.ProblemDetails"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errors.ProblemDetails"}}
                }
            }
        }
    },
    "definitions": {
        "docs.BannerResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string", "example": "Task Management API"},
                "version": {"type": "string", "example": "1.0.0"}
            }
        },
        "docs.HealthResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "example": "ok"}
            }
        },
        "docs.RegisterResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string", "example": "User registered successfully"},
                "user": {"$ref": "#/definitions/models.UserResponse"}
            }
        },
        "docs.LoginResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string", "example": "Login successful"},
                "token": {"type": "string"},
                "user": {"$ref": "#/definitions/models.UserResponse"}
            }
        },
        "docs.TaskResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string", "example": "Task created successfully"},
                "task": {"$ref": "#/definitions/models.TaskResponse"}
            }
        },
        "docs.TaskListResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string", "example": "Tasks retrieved successfully"},
                "tasks": {"type": "array", "items": {"$ref": "#/definitions/models.TaskResponse"}},
                "pagination": {"$ref": "#/definitions/models.Pagination"}
            }
        },
        "errors.ProblemDetails": {
            "type": "object",
            "properties": {
                "type": {"type": "string"},
                "title": {"type": "string"},
                "status": {"type": "integer"},
                "detail": {"type": "string"},
                "instance": {"type": "string"},
                "timestamp": {"type": "string"},
                "trace_id": {"type": "string"}
            }
        },
        "models.RegisterRequest": {
            "type": "object",
            "required": ["firstName", "lastName", "username", "email", "password"],
            "properties": {
                "firstName": {"type": "string"},
                "lastName": {"type": "string"},
                "username": {"type": "string"},
                "email": {"type": "string"},
                "password": {"type": "string", "minLength": 6},
                "role": {"type": "string", "enum": ["user", "admin"]}
            }
        },
        "models.LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "models.UserResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string", "format": "uuid"},
                "firstName": {"type": "string"},
                "lastName": {"type": "string"},
                "username": {"type": "string"},
                "email": {"type": "string"},
                "role": {"type": "string", "enum": ["user", "admin"]},
                "createdAt": {"type": "string"},
                "updatedAt": {"type": "string"}
            }
        },
        "models.CreateTaskRequest": {
            "type": "object",
            "required": ["title"],
            "properties": {
                "title": {"type": "string"},
                "description": {"type": "string"},
                "status": {"type": "string", "enum": ["pending", "in-progress", "completed"]},
                "username": {"type": "string"},
                "dueDate": {"type": "string", "example": "2026-03-01T12:00:00Z"}
            }
        },
        "models.UpdateTaskRequest": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "description": {"type": "string"},
                "status": {"type": "string", "enum": ["pending", "in-progress", "completed"]},
                "username": {"type": "string"},
                "dueDate": {"type": "string"}
            }
        },
        "models.TaskResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string", "format": "uuid"},
                "title": {"type": "string"},
                "description": {"type": "string"},
                "status": {"type": "string", "enum": ["pending", "in-progress", "completed"]},
                "dueDate": {"type": "string"},
                "username": {"type": "string"},
                "createdAt": {"type": "string"},
                "updatedAt": {"type": "string"}
            }
        },
        "models.Pagination": {
            "type": "object",
            "properties": {
                "currentPage": {"type": "integer"},
                "totalPages": {"type": "integer"},
                "totalTasks": {"type": "integer"},
                "limit": {"type": "integer"},
                "hasNextPage": {"type": "boolean"},
                "hasPrevPage": {"type": "boolean"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "JWT bearer token. Format: 'Bearer <token>'",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Task Management API",
	Description:      "Register, log in, and manage tasks assigned to users.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
