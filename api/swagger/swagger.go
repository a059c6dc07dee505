package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Harborview Timetable API",
        "description": "Timetable optimization and enrollment placement service",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Administrator login"},
        {"name": "Optimizer", "description": "Solver runs and parameter sets"},
        {"name": "Schedule", "description": "Persisted timetable queries"},
        {"name": "Enrollment", "description": "Placement passes and waitlists"},
        {"name": "Exports", "description": "Schedule downloads"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate administrator",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Get current user",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/optimizer/runs": {
            "post": {
                "tags": ["Optimizer"],
                "summary": "Queue a solver run",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/StartRunRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "get": {
                "tags": ["Optimizer"],
                "summary": "List recent runs for a term",
                "parameters": [
                    {"name": "termId", "in": "query", "required": true, "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/optimizer/runs/{id}": {
            "get": {
                "tags": ["Optimizer"],
                "summary": "Get a run with its violation report",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Run not found"}
                }
            }
        },
        "/optimizer/configs": {
            "get": {
                "tags": ["Optimizer"],
                "summary": "List stored parameter sets",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Optimizer"],
                "summary": "Create a parameter set",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/OptimizationConfigRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/optimizer/configs/{id}": {
            "put": {
                "tags": ["Optimizer"],
                "summary": "Update a parameter set",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/OptimizationConfigRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Optimizer"],
                "summary": "Delete a parameter set",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"}
                }
            }
        },
        "/schedule": {
            "get": {
                "tags": ["Schedule"],
                "summary": "Get the master schedule for a term",
                "parameters": [
                    {"name": "termId", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedule/teachers/{id}": {
            "get": {
                "tags": ["Schedule"],
                "summary": "Get one teacher's weekly schedule",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "termId", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedule/rooms/{id}": {
            "get": {
                "tags": ["Schedule"],
                "summary": "Get one room's weekly occupancy",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "termId", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollment/placements": {
            "post": {
                "tags": ["Enrollment"],
                "summary": "Run a placement pass for a term",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/PlacementRunRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollment/waitlists/{unitId}": {
            "get": {
                "tags": ["Enrollment"],
                "summary": "Get a section's active waitlist",
                "parameters": [
                    {"name": "unitId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollment/waitlists/{unitId}/promote": {
            "post": {
                "tags": ["Enrollment"],
                "summary": "Seat the first waitlisted student",
                "parameters": [
                    {"name": "unitId", "in": "path", "required": true, "type": "string"},
                    {"name": "termId", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports/schedule": {
            "get": {
                "tags": ["Exports"],
                "summary": "Export the master schedule",
                "parameters": [
                    {"name": "termId", "in": "query", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File"}
                }
            }
        },
        "/exports/teachers/{id}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Export one teacher's schedule",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "termId", "in": "query", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File"}
                }
            }
        },
        "/exports/rooms/{id}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Export one room's schedule",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "termId", "in": "query", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File"}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "StartRunRequest": {
            "type": "object",
            "required": ["termId"],
            "properties": {
                "termId": {"type": "string"},
                "configId": {"type": "string"},
                "seed": {"type": "integer"}
            }
        },
        "OptimizationConfigRequest": {
            "type": "object",
            "required": ["name", "algorithm", "populationSize", "maxGenerations"],
            "properties": {
                "name": {"type": "string"},
                "description": {"type": "string"},
                "algorithm": {"type": "string", "enum": ["GENETIC_ALGORITHM", "HYBRID"]},
                "populationSize": {"type": "integer"},
                "maxGenerations": {"type": "integer"},
                "mutationRate": {"type": "number"},
                "crossoverRate": {"type": "number"},
                "eliteSize": {"type": "integer"},
                "tournamentSize": {"type": "integer"},
                "maxRuntimeSeconds": {"type": "integer"},
                "stagnationLimit": {"type": "integer"},
                "targetHardCount": {"type": "integer"},
                "targetSoftScore": {"type": "number"},
                "threadCount": {"type": "integer"},
                "logFrequency": {"type": "integer"},
                "weights": {"type": "object"},
                "isDefault": {"type": "boolean"}
            }
        },
        "PlacementRunRequest": {
            "type": "object",
            "required": ["termId"],
            "properties": {
                "termId": {"type": "string"},
                "maxUnitsPerStudent": {"type": "integer"}
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
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
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
