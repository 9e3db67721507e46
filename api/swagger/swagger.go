package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "VozSegura API",
        "description": "Incident reporting portal backend",
        "version": "1.0.0"
    },
    "basePath": "/api",
    "schemes": ["http", "https"],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Authentication", "description": "Registration, login and password changes"},
        {"name": "Denuncias", "description": "Report submission and triage"},
        {"name": "Archivos", "description": "Evidence uploads and signed downloads"},
        {"name": "Catalogo", "description": "Institutions, faculties and help resources"},
        {"name": "Usuarios", "description": "User administration"}
    ],
    "paths": {
        "/auth/registro": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Register an estudiante account",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterRequest"}}],
                "responses": {
                    "201": {"description": "Registered", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Email already registered", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate estudiante or docente",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}],
                "responses": {
                    "200": {"description": "Token issued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Account inactive", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/admin/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate administrador",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}],
                "responses": {
                    "200": {"description": "Token issued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Current principal",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/auth/cambiar-password": {
            "put": {
                "tags": ["Authentication"],
                "summary": "Change password",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ChangePasswordRequest"}}],
                "responses": {
                    "200": {"description": "New token issued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Current password is wrong", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/denuncias": {
            "post": {
                "tags": ["Denuncias"],
                "summary": "File a report",
                "description": "Anonymous when no valid token is sent",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateDenunciaRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Faculty not found or inactive", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "get": {
                "tags": ["Denuncias"],
                "summary": "List reports",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "estado", "in": "query", "type": "string", "enum": ["recibida", "en_proceso", "resuelta", "rechazada"]},
                    {"name": "gravedad", "in": "query", "type": "string", "enum": ["baja", "media", "alta"]},
                    {"name": "facultad_id", "in": "query", "type": "integer"},
                    {"name": "limite", "in": "query", "type": "integer", "maximum": 500}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/denuncias/consultar/{codigo}": {
            "get": {
                "tags": ["Denuncias"],
                "summary": "Look up a report by its public code",
                "parameters": [{"name": "codigo", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/denuncias/mis-denuncias": {
            "get": {
                "tags": ["Denuncias"],
                "summary": "Reports filed by the caller",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/denuncias/estadisticas/general": {
            "get": {
                "tags": ["Denuncias"],
                "summary": "Report counts per status",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/denuncias/exportar": {
            "get": {
                "tags": ["Denuncias"],
                "summary": "Export reports",
                "produces": ["text/csv", "application/pdf"],
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "formato", "in": "query", "type": "string", "enum": ["csv", "pdf"]}],
                "responses": {"200": {"description": "File", "schema": {"type": "file"}}}
            }
        },
        "/denuncias/{id}": {
            "get": {
                "tags": ["Denuncias"],
                "summary": "Report detail",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Denuncias"],
                "summary": "Edit a report",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "delete": {
                "tags": ["Denuncias"],
                "summary": "Delete a report",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}],
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/denuncias/{id}/estado": {
            "put": {
                "tags": ["Denuncias"],
                "summary": "Move a report to a new status",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateEstadoRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Transition not allowed or concurrent change", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/denuncias/{id}/recursos": {
            "post": {
                "tags": ["Denuncias"],
                "summary": "Replace the help resources of a report",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/denuncias/{id}/atencion": {
            "post": {
                "tags": ["Denuncias"],
                "summary": "Record an intervention on a report",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/denuncias/{id}/archivos": {
            "post": {
                "tags": ["Archivos"],
                "summary": "Attach evidence to a report",
                "consumes": ["multipart/form-data"],
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "archivo", "in": "formData", "required": true, "type": "file"}
                ],
                "responses": {
                    "201": {"description": "Stored", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "413": {"description": "File too large", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/archivos/descargar/{token}": {
            "get": {
                "tags": ["Archivos"],
                "summary": "Download evidence through a signed link",
                "parameters": [{"name": "token", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "File", "schema": {"type": "file"}},
                    "403": {"description": "Invalid or expired link", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/catalogo/instituciones": {
            "get": {"tags": ["Catalogo"], "summary": "List institutions", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}},
            "post": {"tags": ["Catalogo"], "summary": "Create an institution", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        },
        "/catalogo/instituciones/{id}": {
            "get": {"tags": ["Catalogo"], "summary": "Institution detail", "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}},
            "put": {"tags": ["Catalogo"], "summary": "Update an institution", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        },
        "/catalogo/instituciones/{id}/facultades": {
            "get": {"tags": ["Catalogo"], "summary": "Faculties of an institution", "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        },
        "/catalogo/facultades": {
            "get": {"tags": ["Catalogo"], "summary": "List active faculties", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}},
            "post": {"tags": ["Catalogo"], "summary": "Create a faculty", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        },
        "/catalogo/facultades/{id}": {
            "get": {"tags": ["Catalogo"], "summary": "Faculty detail", "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}},
            "put": {"tags": ["Catalogo"], "summary": "Update a faculty", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        },
        "/catalogo/facultades/{id}/estadisticas": {
            "get": {"tags": ["Catalogo"], "summary": "Report counts of a faculty", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        },
        "/catalogo/recursos": {
            "get": {"tags": ["Catalogo"], "summary": "List active help resources", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}},
            "post": {"tags": ["Catalogo"], "summary": "Create a help resource", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        },
        "/catalogo/recursos/{id}": {
            "get": {"tags": ["Catalogo"], "summary": "Help resource detail", "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}},
            "put": {"tags": ["Catalogo"], "summary": "Update a help resource", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        },
        "/usuarios": {
            "get": {
                "tags": ["Usuarios"],
                "summary": "List usuarios",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "rol", "in": "query", "type": "string", "enum": ["estudiante", "docente"]},
                    {"name": "activo", "in": "query", "type": "boolean"},
                    {"name": "q", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/usuarios/{id}": {
            "get": {"tags": ["Usuarios"], "summary": "Usuario detail", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}},
            "patch": {"tags": ["Usuarios"], "summary": "Change role or active flag", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        }
    },
    "definitions": {
        "RegisterRequest": {
            "type": "object",
            "required": ["nombre", "email", "password"],
            "properties": {
                "nombre": {"type": "string"},
                "email": {"type": "string"},
                "password": {"type": "string", "minLength": 6}
            }
        },
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "ChangePasswordRequest": {
            "type": "object",
            "required": ["password_actual", "password_nuevo"],
            "properties": {
                "password_actual": {"type": "string"},
                "password_nuevo": {"type": "string", "minLength": 6}
            }
        },
        "CreateDenunciaRequest": {
            "type": "object",
            "required": ["tipo", "descripcion", "fecha", "facultad_id"],
            "properties": {
                "tipo": {"type": "string"},
                "descripcion": {"type": "string", "minLength": 10},
                "fecha": {"type": "string", "format": "date"},
                "gravedad": {"type": "string", "enum": ["baja", "media", "alta"]},
                "facultad_id": {"type": "integer"}
            }
        },
        "UpdateEstadoRequest": {
            "type": "object",
            "required": ["estado"],
            "properties": {
                "estado": {"type": "string", "enum": ["recibida", "en_proceso", "resuelta", "rechazada"]},
                "comentario": {"type": "string"}
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
                "success": {"type": "boolean"},
                "message": {"type": "string"},
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
