package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Classroom API",
        "description": "Exam results, curriculum progress and leaderboards for a single class roster",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Authentication", "description": "Student and teacher sign-in"},
        {"name": "Students", "description": "Roster and aggregated profiles"},
        {"name": "Results", "description": "Append-only exam attempts"},
        {"name": "Progress", "description": "Curriculum completion and the leaderboard gate"},
        {"name": "Rankings", "description": "Per-exam leaderboards"},
        {"name": "Catalog", "description": "Curriculum units and exams"},
        {"name": "Exports", "description": "CSV and PDF exports with signed downloads"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate a student or the teacher",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Current user",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/students": {
            "get": {
                "tags": ["Students"],
                "summary": "List students (teacher)",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "class", "in": "query", "type": "string"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Students"],
                "summary": "Register a student",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterStudentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Class and number already taken", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{id}": {
            "get": {
                "tags": ["Students"],
                "summary": "Get student",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "put": {
                "tags": ["Students"],
                "summary": "Update student names and premium flag (teacher)",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateStudentRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "delete": {
                "tags": ["Students"],
                "summary": "Delete student with results and progress (teacher)",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/students/{id}/profile": {
            "get": {
                "tags": ["Students"],
                "summary": "Student profile with completion and optional ranking",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "examId", "in": "query", "type": "string"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/students/{id}/results": {
            "get": {
                "tags": ["Results"],
                "summary": "Grade sheet, most recent first",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Results"],
                "summary": "Record an exam attempt",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitResultRequest"}}
                ],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/students/{id}/results/export": {
            "get": {
                "tags": ["Exports"],
                "summary": "Export a grade sheet",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/students/{id}/progress": {
            "get": {
                "tags": ["Progress"],
                "summary": "Curriculum completion",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/students/{id}/progress/toggle": {
            "post": {
                "tags": ["Progress"],
                "summary": "Toggle a sub-unit",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ToggleCompletionRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/rankings/{examId}": {
            "get": {
                "tags": ["Rankings"],
                "summary": "Exam leaderboard",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "examId", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Curriculum not completed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/rankings/{examId}/export": {
            "post": {
                "tags": ["Exports"],
                "summary": "Export a leaderboard (teacher)",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "examId", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/exports/{token}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download a generated export",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [{"name": "token", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "File"},
                    "403": {"description": "Link expired", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/catalog/units": {
            "get": {
                "tags": ["Catalog"],
                "summary": "Curriculum units",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/catalog/exams": {
            "get": {
                "tags": ["Catalog"],
                "summary": "Exams",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "role": {"type": "string", "enum": ["TEACHER", "STUDENT"]},
                "student_id": {"type": "string", "example": "2APIC-1-4"},
                "password": {"type": "string"}
            }
        },
        "RegisterStudentRequest": {
            "type": "object",
            "required": ["first_name", "last_name", "class", "number", "password"],
            "properties": {
                "first_name": {"type": "string"},
                "last_name": {"type": "string"},
                "class": {"type": "string", "example": "2APIC-1"},
                "number": {"type": "integer", "minimum": 1, "maximum": 40},
                "password": {"type": "string", "description": "exactly 8 digits"},
                "premium": {"type": "boolean"}
            }
        },
        "UpdateStudentRequest": {
            "type": "object",
            "properties": {
                "first_name": {"type": "string"},
                "last_name": {"type": "string"},
                "premium": {"type": "boolean"}
            }
        },
        "SubmitResultRequest": {
            "type": "object",
            "required": ["exam_id", "score", "duration"],
            "properties": {
                "exam_id": {"type": "string"},
                "exam_title": {"type": "string"},
                "score": {"type": "number", "minimum": 0, "maximum": 20},
                "duration": {"type": "number", "minimum": 0, "description": "seconds"},
                "timestamp": {"type": "string", "format": "date-time"},
                "answers": {"type": "array", "items": {"$ref": "#/definitions/AnswerDetail"}}
            }
        },
        "AnswerDetail": {
            "type": "object",
            "properties": {
                "question_id": {"type": "integer"},
                "question_text": {"type": "string"},
                "user_answer": {},
                "correct_answer": {},
                "is_correct": {"type": "boolean"},
                "points_earned": {"type": "number"},
                "points_possible": {"type": "number"}
            }
        },
        "ToggleCompletionRequest": {
            "type": "object",
            "properties": {
                "leaf_id": {"type": "string", "example": "u1/s2"}
            }
        },
        "RankingEntry": {
            "type": "object",
            "properties": {
                "rank": {"type": "integer"},
                "student_id": {"type": "string"},
                "name": {"type": "string"},
                "score": {"type": "number"},
                "duration": {"type": "number"},
                "attempts": {"type": "integer"},
                "weighted_score": {"type": "number"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
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
                "pagination": {"$ref": "#/definitions/Pagination"},
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
