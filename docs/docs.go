// Package docs Swagger文档,与handler上的swag注释保持一致;`swag init -g cmd/api/main.go`可重新生成
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
        "/api/v1/checkout/{isbn}": {
            "post": {
                "description": "锁定馆藏行,在架数量-1并生成借阅记录",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["借还"],
                "summary": "借出图书",
                "parameters": [
                    {"type": "string", "description": "ISBN", "name": "isbn", "in": "path", "required": true},
                    {"description": "借阅人", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.CheckoutRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}
            }
        },
        "/api/v1/checkin": {
            "post": {
                "description": "锁定馆藏行,关闭该书最近一条未归还记录并在架数量+1",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["借还"],
                "summary": "归还图书",
                "parameters": [
                    {"description": "ISBN", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.CheckinRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}
            }
        },
        "/api/v1/books": {
            "get": {
                "description": "所有非空条件AND组合,不带条件返回全部",
                "produces": ["application/json"],
                "tags": ["馆藏"],
                "summary": "检索馆藏",
                "parameters": [
                    {"type": "string", "name": "q", "in": "query"},
                    {"type": "string", "name": "title", "in": "query"},
                    {"type": "string", "name": "author", "in": "query"},
                    {"type": "string", "name": "publisher", "in": "query"},
                    {"type": "string", "name": "isbn", "in": "query"},
                    {"type": "string", "name": "published_date_start", "in": "query"},
                    {"type": "string", "name": "published_date_end", "in": "query"},
                    {"type": "string", "name": "available_quantity", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}
            },
            "post": {
                "description": "馆藏数量与在架数量都等于quantity",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["馆藏"],
                "summary": "新书入库",
                "parameters": [
                    {"description": "图书信息", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.AddBookRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}
            }
        },
        "/api/v1/books/search": {
            "post": {
                "description": "子句按输入顺序从左到右组合,NOT表示AND NOT",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["馆藏"],
                "summary": "高级检索",
                "parameters": [
                    {"description": "检索子句", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.AdvancedSearchRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}
            }
        },
        "/api/v1/books/{id}": {
            "get": {
                "description": "馆藏记录及其未归还的借阅",
                "produces": ["application/json"],
                "tags": ["馆藏"],
                "summary": "图书详情",
                "parameters": [
                    {"type": "integer", "description": "馆藏记录ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}
            }
        },
        "/api/v1/inventory/audit": {
            "get": {
                "description": "列出在架数量越界或借出数与未归还记录数不一致的馆藏",
                "produces": ["application/json"],
                "tags": ["馆藏"],
                "summary": "库存核对",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}
            }
        }
    },
    "definitions": {
        "dto.CheckoutRequest": {
            "type": "object",
            "properties": {
                "first_name": {"type": "string", "example": "John"},
                "last_name": {"type": "string", "example": "Doe"},
                "email": {"type": "string", "example": "john@example.com"}
            }
        },
        "dto.CheckinRequest": {
            "type": "object",
            "properties": {
                "isbn": {"type": "string", "example": "1234567890123"}
            }
        },
        "dto.AddBookRequest": {
            "type": "object",
            "required": ["isbn", "title"],
            "properties": {
                "isbn": {"type": "string", "maxLength": 13},
                "title": {"type": "string", "maxLength": 255},
                "author": {"type": "string"},
                "publisher": {"type": "string"},
                "published_date": {"type": "string", "example": "2015-10-26"},
                "quantity": {"type": "integer", "minimum": 0},
                "description": {"type": "string"},
                "image_url": {"type": "string"}
            }
        },
        "dto.SearchClause": {
            "type": "object",
            "properties": {
                "field": {"type": "string", "example": "title"},
                "operator": {"type": "string", "example": "icontains"},
                "term": {"type": "string", "example": "go"},
                "logic": {"type": "string", "example": "AND"}
            }
        },
        "dto.AdvancedSearchRequest": {
            "type": "object",
            "properties": {
                "clauses": {"type": "array", "items": {"$ref": "#/definitions/dto.SearchClause"}},
                "published_date_start": {"type": "string"},
                "published_date_end": {"type": "string"}
            }
        },
        "response.Response": {
            "type": "object",
            "properties": {
                "code": {"type": "integer"},
                "message": {"type": "string"},
                "data": {}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Library Circulation API",
	Description:      "借还、检索与库存核对",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
