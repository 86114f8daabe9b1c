package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA Timetable API",
        "description": "Weekly class timetable generation service",
        "version": "0.1.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Timetables", "description": "Timetable generation and retrieval"}
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
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/api/v1/timetables/generate": {
            "post": {
                "tags": ["Timetables"],
                "summary": "Generate a weekly timetable for one grade and class section",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateTimetableRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/timetables": {
            "get": {
                "tags": ["Timetables"],
                "summary": "List saved timetables, newest first",
                "parameters": [
                    {"name": "grade", "in": "query", "type": "integer"},
                    {"name": "classSection", "in": "query", "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/timetables/{id}/export": {
            "get": {
                "tags": ["Timetables"],
                "summary": "Export a saved timetable grid as CSV or PDF",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        }
    },
    "definitions": {
        "GenerateTimetableRequest": {
            "type": "object",
            "properties": {
                "grade": {"type": "integer"},
                "classSection": {"type": "string"},
                "maxPeriodsPerDay": {"type": "integer"},
                "allowConsecutive": {"type": "boolean"},
                "preferredSlots": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/PreferredSlot"}
                },
                "fixedSlots": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/FixedSlot"}
                },
                "teacherAvailability": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/TeacherAvailability"}
                },
                "options": {"$ref": "#/definitions/GenerationOptions"}
            },
            "required": ["grade", "classSection"]
        },
        "PreferredSlot": {
            "type": "object",
            "properties": {
                "subjectId": {"type": "string"},
                "dayOfWeek": {"type": "integer"},
                "period": {"type": "integer"}
            }
        },
        "FixedSlot": {
            "type": "object",
            "properties": {
                "subjectId": {"type": "string"},
                "teacherId": {"type": "string"},
                "classroomId": {"type": "string"},
                "dayOfWeek": {"type": "integer"},
                "period": {"type": "integer"}
            }
        },
        "TeacherAvailability": {
            "type": "object",
            "properties": {
                "teacherId": {"type": "string"},
                "dayOfWeek": {"type": "integer"},
                "period": {"type": "integer"},
                "unavailable": {"type": "boolean"}
            }
        },
        "GenerationOptions": {
            "type": "object",
            "properties": {
                "method": {"type": "string"},
                "maxIterations": {"type": "integer"},
                "timeBudgetMs": {"type": "integer"},
                "qualityThreshold": {"type": "number"},
                "parallel": {"type": "boolean"},
                "weights": {"type": "object"}
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
