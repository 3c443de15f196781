// Package docs registra a especificação Swagger servida em /swagger/.
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
        "/register": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "description": "Cadastra um dispositivo com foto opcional. Aceita \"name\" ou \"inventory_name\".",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["inventory"],
                "summary": "Registra um dispositivo",
                "parameters": [
                    {"type": "string", "description": "Nome do dispositivo", "name": "name", "in": "formData", "required": true},
                    {"type": "string", "description": "Descrição", "name": "description", "in": "formData"},
                    {"type": "string", "description": "Preço", "name": "price", "in": "formData"},
                    {"type": "integer", "description": "Quantidade em estoque", "name": "stock_quantity", "in": "formData"},
                    {"type": "file", "description": "Foto", "name": "photo", "in": "formData"}
                ],
                "responses": {
                    "201": {"description": "Dispositivo criado", "schema": {"$ref": "#/definitions/domain.Envelope"}},
                    "400": {"description": "Nome ausente ou formulário inválido", "schema": {"$ref": "#/definitions/domain.ErrorResponse"}},
                    "503": {"description": "Nenhum backend disponível", "schema": {"$ref": "#/definitions/domain.ErrorResponse"}}
                }
            }
        },
        "/inventory": {
            "get": {
                "description": "Retorna todos os dispositivos em ordem de ID, cada um com photo_url.",
                "produces": ["application/json"],
                "tags": ["inventory"],
                "summary": "Lista o inventário",
                "responses": {
                    "200": {"description": "Lista de dispositivos", "schema": {"$ref": "#/definitions/domain.Envelope"}},
                    "503": {"description": "Nenhum backend disponível", "schema": {"$ref": "#/definitions/domain.ErrorResponse"}}
                }
            }
        },
        "/products": {
            "get": {
                "description": "Devolve o array cru da tabela products, sem envelope e sem cair para o cache.",
                "produces": ["application/json"],
                "tags": ["inventory"],
                "summary": "Lista crua do banco",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"type": "object"}}},
                    "503": {"description": "Banco indisponível", "schema": {"$ref": "#/definitions/domain.ErrorResponse"}}
                }
            }
        },
        "/inventory/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["inventory"],
                "summary": "Obtém um dispositivo por ID",
                "parameters": [{"type": "integer", "description": "ID do dispositivo", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "Dispositivo encontrado", "schema": {"$ref": "#/definitions/domain.Envelope"}},
                    "400": {"description": "ID inválido", "schema": {"$ref": "#/definitions/domain.ErrorResponse"}},
                    "404": {"description": "Dispositivo não encontrado", "schema": {"$ref": "#/definitions/domain.ErrorResponse"}}
                }
            },
            "put": {
                "security": [{"ApiKeyAuth": []}],
                "description": "Atualização parcial: apenas os campos enviados são alterados.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["inventory"],
                "summary": "Atualiza um dispositivo",
                "parameters": [
                    {"type": "integer", "description": "ID do dispositivo", "name": "id", "in": "path", "required": true},
                    {"description": "Campos a alterar", "name": "device", "in": "body", "required": true, "schema": {"$ref": "#/definitions/device.updateRequest"}}
                ],
                "responses": {
                    "200": {"description": "Dispositivo atualizado", "schema": {"$ref": "#/definitions/domain.Envelope"}},
                    "400": {"description": "Payload inválido", "schema": {"$ref": "#/definitions/domain.ErrorResponse"}},
                    "404": {"description": "Dispositivo não encontrado", "schema": {"$ref": "#/definitions/domain.ErrorResponse"}}
                }
            },
            "delete": {
                "security": [{"ApiKeyAuth": []}],
                "description": "Remove o dispositivo e sua foto.",
                "produces": ["application/json"],
                "tags": ["inventory"],
                "summary": "Remove um dispositivo",
                "parameters": [{"type": "integer", "description": "ID do dispositivo", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "Dispositivo removido", "schema": {"$ref": "#/definitions/domain.Envelope"}},
                    "404": {"description": "Dispositivo não encontrado", "schema": {"$ref": "#/definitions/domain.ErrorResponse"}}
                }
            }
        },
        "/inventory/{id}/photo": {
            "get": {
                "produces": ["image/jpeg", "image/png"],
                "tags": ["inventory"],
                "summary": "Obtém a foto de um dispositivo",
                "parameters": [{"type": "integer", "description": "ID do dispositivo", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "Foto", "schema": {"type": "file"}},
                    "404": {"description": "Dispositivo sem foto ou arquivo ausente", "schema": {"$ref": "#/definitions/domain.ErrorResponse"}}
                }
            },
            "put": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["inventory"],
                "summary": "Substitui a foto de um dispositivo",
                "parameters": [
                    {"type": "integer", "description": "ID do dispositivo", "name": "id", "in": "path", "required": true},
                    {"type": "file", "description": "Nova foto", "name": "photo", "in": "formData", "required": true}
                ],
                "responses": {
                    "200": {"description": "Foto atualizada", "schema": {"$ref": "#/definitions/domain.Envelope"}},
                    "400": {"description": "Foto ausente ou inválida", "schema": {"$ref": "#/definitions/domain.ErrorResponse"}},
                    "404": {"description": "Dispositivo não encontrado", "schema": {"$ref": "#/definitions/domain.ErrorResponse"}}
                }
            }
        },
        "/search": {
            "post": {
                "description": "Com has_photo=true e foto existente, a descrição recebe \"[Photo: <url>]\".",
                "consumes": ["application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["inventory"],
                "summary": "Busca um dispositivo por ID",
                "parameters": [
                    {"type": "integer", "description": "ID do dispositivo", "name": "id", "in": "formData", "required": true},
                    {"type": "boolean", "description": "Anexar referência da foto", "name": "has_photo", "in": "formData"}
                ],
                "responses": {
                    "200": {"description": "Dispositivo encontrado", "schema": {"$ref": "#/definitions/domain.Envelope"}},
                    "400": {"description": "ID ausente ou inválido", "schema": {"$ref": "#/definitions/domain.ErrorResponse"}},
                    "404": {"description": "Dispositivo não encontrado", "schema": {"$ref": "#/definitions/domain.ErrorResponse"}}
                }
            }
        },
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Estado do serviço",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/health.Status"}}}
            }
        }
    },
    "definitions": {
        "device.updateRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "inventory_name": {"type": "string"},
                "description": {"type": "string"},
                "price": {"type": "string", "example": "120.50"},
                "stock_quantity": {"type": "integer"}
            }
        },
        "domain.Envelope": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean", "example": true},
                "count": {"type": "integer", "example": 2},
                "message": {"type": "string"},
                "data": {},
                "photo_url": {"type": "string", "example": "/inventory/7/photo"},
                "source": {"type": "string", "example": "postgres"},
                "degraded": {"type": "boolean", "example": false},
                "notice": {"type": "string", "example": "Using cached data (database unavailable)"}
            }
        },
        "domain.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "integer", "example": 400},
                "category": {"type": "string", "example": "VALIDATION_ERROR"},
                "message": {"type": "string"},
                "degraded": {"type": "boolean", "example": false}
            }
        },
        "health.Status": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "example": "OK"},
                "database": {"type": "string", "example": "connected"},
                "cache_records": {"type": "integer", "example": 3},
                "timestamp": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "ApiKeyAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo contém as informações exportadas da especificação.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "goinventory API",
	Description:      "Inventário de dispositivos com PostgreSQL e fallback em cache local.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
