package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SF10 API",
        "description": "School records administration backend",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Auth", "description": "Teacher authentication"},
        {"name": "Enrollees", "description": "Learner enrollment"},
        {"name": "Students", "description": "Student master data and scholastic records"},
        {"name": "Grades", "description": "Quarter grade encoding"},
        {"name": "Sections", "description": "Section membership and assignments"},
        {"name": "Teachers", "description": "Faculty accounts"},
        {"name": "Logs", "description": "Audit trail"},
        {"name": "Downloads", "description": "Printable school forms"}
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
                    "200": {"description": "Ready"},
                    "503": {"description": "Database unavailable"}
                }
            }
        },
        "/api/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate a teacher",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Auth"],
                "summary": "Record a logout",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/enroll": {
            "post": {
                "tags": ["Enrollees"],
                "summary": "Enroll a learner",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/EnrollRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Duplicate LRN", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/enroll/{lrn}": {
            "delete": {
                "tags": ["Enrollees"],
                "summary": "Remove an enrollee by LRN",
                "parameters": [
                    {"name": "lrn", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Unknown LRN", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/students": {
            "get": {
                "tags": ["Students"],
                "summary": "List the requester's handled students",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Students"],
                "summary": "Register student master data",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterStudentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/students/{id}": {
            "get": {
                "tags": ["Students"],
                "summary": "Get a student with scholastic records",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Students"],
                "summary": "Update student master data",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterStudentRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Students"],
                "summary": "Add a transcribed scholastic record",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SaveRecordRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Duplicate record", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/students/{id}/grades": {
            "post": {
                "tags": ["Grades"],
                "summary": "Encode a quarter grade",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/EncodeGradeRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Encoding order violated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Grades"],
                "summary": "Retract the most recent quarter grade",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UnencodeGradeRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Frontier mismatch", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/students/{id}/downloads/sf10": {
            "get": {
                "tags": ["Downloads"],
                "summary": "Download the SF10 permanent record",
                "produces": ["application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "PDF document"}
                }
            }
        },
        "/api/students/{id}/downloads/reportCard": {
            "get": {
                "tags": ["Downloads"],
                "summary": "Download the current report card",
                "produces": ["application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "PDF document"}
                }
            }
        },
        "/api/sections": {
            "get": {
                "tags": ["Sections"],
                "summary": "List sections",
                "parameters": [
                    {"name": "grade", "in": "query", "type": "integer"},
                    {"name": "sy", "in": "query", "type": "integer"},
                    {"name": "teacher", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Sections"],
                "summary": "Create a section",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateSectionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Membership rule violated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/sections/{id}": {
            "get": {
                "tags": ["Sections"],
                "summary": "Get a section",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Sections"],
                "summary": "Update a section",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Sections"],
                "summary": "Delete a section with assignment cleanup",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Scholastic records exist", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Not the chairman", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/sections/{id}/adviser": {
            "post": {
                "tags": ["Sections"],
                "summary": "Assign the section adviser",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Section already has an adviser", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Sections"],
                "summary": "Unassign the section adviser",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/sections/{id}/teacher": {
            "post": {
                "tags": ["Sections"],
                "summary": "Assign a subject teacher to a learning area",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Learning area already covered", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Sections"],
                "summary": "Unassign a subject teacher from a learning area",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/sections/{id}/downloads/sf1": {
            "get": {
                "tags": ["Downloads"],
                "summary": "Download the SF1 school register",
                "produces": ["text/csv"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "CSV document"}
                }
            }
        },
        "/api/teachers": {
            "get": {
                "tags": ["Teachers"],
                "summary": "List teachers",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "category", "in": "query", "type": "string"},
                    {"name": "active", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Teachers"],
                "summary": "Register a teacher",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SaveTeacherRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/logs": {
            "get": {
                "tags": ["Logs"],
                "summary": "List the most recent audit entries",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["employee_number", "password"],
            "properties": {
                "employee_number": {"type": "integer"},
                "password": {"type": "string"}
            }
        },
        "EnrollRequest": {
            "type": "object",
            "required": ["lrn", "name"],
            "properties": {
                "lrn": {"type": "integer"},
                "name": {"$ref": "#/definitions/PersonName"},
                "classification": {"type": "object"}
            }
        },
        "PersonName": {
            "type": "object",
            "required": ["last", "first", "middle"],
            "properties": {
                "last": {"type": "string"},
                "first": {"type": "string"},
                "middle": {"type": "string"},
                "extension": {"type": "string"}
            }
        },
        "RegisterStudentRequest": {
            "type": "object",
            "required": ["lrn", "name", "gender", "birthdate", "address", "guardian"],
            "properties": {
                "lrn": {"type": "integer"},
                "name": {"$ref": "#/definitions/PersonName"},
                "gender": {"type": "string"},
                "birthdate": {"type": "string", "format": "date-time"},
                "address": {"type": "string"},
                "guardian": {"type": "string"},
                "enrollee_id": {"type": "string"}
            }
        },
        "SaveRecordRequest": {
            "type": "object",
            "required": ["grade_level", "section", "school_year", "adviser", "subjects"],
            "properties": {
                "school": {"type": "object"},
                "grade_level": {"type": "integer"},
                "section": {"type": "string"},
                "school_year": {"type": "object"},
                "adviser": {"type": "string"},
                "gen_average": {"type": "number"},
                "scholastic_status": {"type": "string"},
                "completed": {"type": "boolean"},
                "subjects": {"type": "array", "items": {"type": "object"}}
            }
        },
        "EncodeGradeRequest": {
            "type": "object",
            "required": ["learning_area", "quarter", "grade"],
            "properties": {
                "learning_area": {"type": "string"},
                "quarter": {"type": "integer", "minimum": 1, "maximum": 4},
                "grade": {"type": "number", "minimum": 0, "maximum": 100}
            }
        },
        "UnencodeGradeRequest": {
            "type": "object",
            "required": ["learning_area", "quarter"],
            "properties": {
                "learning_area": {"type": "string"},
                "quarter": {"type": "integer", "minimum": 1, "maximum": 4}
            }
        },
        "CreateSectionRequest": {
            "type": "object",
            "required": ["school_year", "grade_level", "number"],
            "properties": {
                "isRegular": {"type": "boolean"},
                "school_year": {"type": "object"},
                "grade_level": {"type": "integer", "minimum": 7, "maximum": 10},
                "number": {"type": "integer"},
                "name": {"type": "string"},
                "adviser_id": {"type": "string"},
                "chairman_id": {"type": "string"},
                "students": {"type": "array", "items": {"type": "string"}}
            }
        },
        "SaveTeacherRequest": {
            "type": "object",
            "required": ["last_name", "first_name", "middle_name", "birthdate", "gender", "employee_number"],
            "properties": {
                "last_name": {"type": "string"},
                "first_name": {"type": "string"},
                "middle_name": {"type": "string"},
                "birthdate": {"type": "string", "format": "date-time"},
                "gender": {"type": "string"},
                "employee_number": {"type": "integer"},
                "password": {"type": "string"},
                "active": {"type": "boolean"},
                "assignments": {"type": "array", "items": {"type": "object"}}
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
