package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "School Result Engine API",
        "description": "Result computation, ranking and report card generation",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Results", "description": "Score submission, publication and class ranking"},
        {"name": "ReportCards", "description": "Report card documents and class broadsheets"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check covering Postgres and Redis",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "A dependency is unavailable"}
                }
            }
        },
        "/api/v1/results": {
            "post": {
                "tags": ["Results"],
                "summary": "Submit component scores for one result",
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/SubmitResultRequest"}}
                ],
                "responses": {
                    "200": {"description": "Stored result", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid payload", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Teacher not assigned", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Period not configured", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "No result configuration for the session", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Total outside the grading scale", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/results/batch": {
            "post": {
                "tags": ["Results"],
                "summary": "Submit many results; each item is applied independently",
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/BatchSubmitRequest"}}
                ],
                "responses": {
                    "200": {"description": "All items applied", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "207": {"description": "Some items rejected; see failures", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/results/publish": {
            "post": {
                "tags": ["Results"],
                "summary": "Publish the results of a class for a period",
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/PublishResultsRequest"}}
                ],
                "responses": {
                    "200": {"description": "Number of results published", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Administrators only", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/results/classes/{id}/ranking": {
            "get": {
                "tags": ["Results"],
                "summary": "Class ranking for a session and period",
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "string"},
                    {"in": "query", "name": "sessionId", "required": true, "type": "string"},
                    {"in": "query", "name": "periodId", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Ranked students", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/report-cards/students/{id}": {
            "get": {
                "tags": ["ReportCards"],
                "summary": "Download a student's report card",
                "security": [{"BearerAuth": []}],
                "produces": ["application/pdf"],
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "string"},
                    {"in": "query", "name": "sessionId", "required": true, "type": "string"},
                    {"in": "query", "name": "periodId", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "PDF attachment; X-Report-Layout names the layout used", "schema": {"type": "file"}},
                    "403": {"description": "Caller cannot view this student", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No published results", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/report-cards/classes/{id}/broadsheet": {
            "get": {
                "tags": ["ReportCards"],
                "summary": "Download the result broadsheet of a class",
                "security": [{"BearerAuth": []}],
                "produces": ["application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "text/csv"],
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "string"},
                    {"in": "query", "name": "sessionId", "required": true, "type": "string"},
                    {"in": "query", "name": "periodId", "required": true, "type": "string"},
                    {"in": "query", "name": "format", "required": false, "type": "string", "enum": ["xlsx", "csv"]}
                ],
                "responses": {
                    "200": {"description": "Spreadsheet attachment", "schema": {"type": "file"}}
                }
            }
        }
    },
    "definitions": {
        "ComponentScoreInput": {
            "type": "object",
            "properties": {
                "component_id": {"type": "string"},
                "score": {"type": "number"}
            }
        },
        "SubmitResultRequest": {
            "type": "object",
            "required": ["student_id", "subject_id", "period_id", "session_id", "scores"],
            "properties": {
                "student_id": {"type": "string"},
                "subject_id": {"type": "string"},
                "period_id": {"type": "string"},
                "session_id": {"type": "string"},
                "class_id": {"type": "string"},
                "scores": {"type": "array", "items": {"$ref": "#/definitions/ComponentScoreInput"}},
                "affective": {"type": "object", "additionalProperties": {"type": "string"}},
                "psychomotor": {"type": "object", "additionalProperties": {"type": "string"}},
                "custom_fields": {"type": "object", "additionalProperties": {"type": "string"}},
                "teacher_comment": {"type": "string"},
                "admin_comment": {"type": "string"}
            }
        },
        "BatchSubmitRequest": {
            "type": "object",
            "required": ["items"],
            "properties": {
                "items": {"type": "array", "items": {"$ref": "#/definitions/SubmitResultRequest"}}
            }
        },
        "PublishResultsRequest": {
            "type": "object",
            "required": ["class_id", "session_id", "period_id"],
            "properties": {
                "class_id": {"type": "string"},
                "session_id": {"type": "string"},
                "period_id": {"type": "string"},
                "subject_id": {"type": "string"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
