// Package docs registers the OpenAPI document served under /swagger/.
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
        "/login": {
            "post": {
                "description": "Authenticates user and sets session cookie",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "summary": "Login",
                "parameters": [
                    {"description": "Credentials", "name": "creds", "in": "body", "required": true, "schema": {"$ref": "#/definitions/main.loginRequest"}}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/recommendations": {
            "get": {
                "description": "Runs the configured strategies in order and fills up with random items",
                "produces": ["application/json"],
                "summary": "Recommend items",
                "parameters": [
                    {"type": "integer", "description": "Maximum number of items", "name": "limit", "in": "query"},
                    {"type": "string", "description": "Comma separated item ids to leave out", "name": "exclude", "in": "query"},
                    {"type": "string", "description": "Comma separated item ids in the cart", "name": "cart", "in": "query"},
                    {"type": "string", "description": "Restrict to a category id", "name": "category", "in": "query"},
                    {"type": "string", "description": "Customer id for history based picks", "name": "customer", "in": "query"},
                    {"type": "string", "description": "Comma separated strategy names", "name": "source", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/recommend.Item"}}},
                    "400": {"description": "Bad Request", "schema": {"type": "string"}},
                    "503": {"description": "Service Unavailable", "schema": {"type": "string"}}
                }
            }
        },
        "/recommendations/also-bought": {
            "get": {
                "produces": ["application/json"],
                "summary": "People also bought",
                "parameters": [
                    {"type": "string", "description": "Comma separated item ids in the cart", "name": "cart", "in": "query", "required": true},
                    {"type": "integer", "description": "Maximum number of items", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/recommend.Item"}}},
                    "400": {"description": "Bad Request", "schema": {"type": "string"}},
                    "503": {"description": "Service Unavailable", "schema": {"type": "string"}}
                }
            }
        },
        "/recommendations/personalized": {
            "get": {
                "produces": ["application/json"],
                "summary": "Personalized recommendations",
                "parameters": [
                    {"type": "string", "description": "Customer id", "name": "customer", "in": "query", "required": true},
                    {"type": "integer", "description": "Maximum number of items", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/recommend.Item"}}},
                    "400": {"description": "Bad Request", "schema": {"type": "string"}},
                    "503": {"description": "Service Unavailable", "schema": {"type": "string"}}
                }
            }
        },
        "/orders": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "summary": "List orders",
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/order.Order"}}}}
            },
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "summary": "Create order",
                "parameters": [
                    {"description": "Order", "name": "order", "in": "body", "required": true, "schema": {"$ref": "#/definitions/order.Order"}}
                ],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/order.Order"}}}
            }
        },
        "/orders/{id}": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "summary": "Get order",
                "parameters": [{"type": "string", "description": "Order ID", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/order.Order"}}}
            },
            "delete": {
                "security": [{"ApiKeyAuth": []}],
                "summary": "Delete order",
                "parameters": [{"type": "string", "description": "Order ID", "name": "id", "in": "path", "required": true}],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/items": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "summary": "Create item",
                "parameters": [
                    {"description": "Item", "name": "item", "in": "body", "required": true, "schema": {"$ref": "#/definitions/catalog.Item"}}
                ],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/catalog.Item"}}}
            }
        },
        "/items/{id}": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "summary": "Get item",
                "parameters": [{"type": "string", "description": "Item ID", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/catalog.Item"}}}
            },
            "put": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "summary": "Update item",
                "parameters": [
                    {"type": "string", "description": "Item ID", "name": "id", "in": "path", "required": true},
                    {"description": "Item", "name": "item", "in": "body", "required": true, "schema": {"$ref": "#/definitions/catalog.Item"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/catalog.Item"}}}
            },
            "delete": {
                "security": [{"ApiKeyAuth": []}],
                "summary": "Delete item",
                "parameters": [{"type": "string", "description": "Item ID", "name": "id", "in": "path", "required": true}],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/items/{id}/availability": {
            "patch": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["application/json"],
                "summary": "Set item availability",
                "parameters": [
                    {"type": "string", "description": "Item ID", "name": "id", "in": "path", "required": true},
                    {"description": "Availability", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/main.availabilityRequest"}}
                ],
                "responses": {"204": {"description": "No Content"}}
            }
        }
    },
    "definitions": {
        "main.loginRequest": {
            "type": "object",
            "properties": {"username": {"type": "string"}, "password": {"type": "string"}}
        },
        "main.availabilityRequest": {
            "type": "object",
            "properties": {"available": {"type": "boolean"}}
        },
        "recommend.Item": {
            "type": "object",
            "properties": {
                "item_id": {"type": "string"},
                "name": {"type": "string"},
                "price": {"type": "number"},
                "category_id": {"type": "string"},
                "active": {"type": "boolean"},
                "available": {"type": "boolean"},
                "reason": {"type": "string"},
                "score": {"type": "number"}
            }
        },
        "catalog.Item": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "price": {"type": "number"},
                "category_id": {"type": "string"},
                "category_name": {"type": "string"},
                "active": {"type": "boolean"},
                "available": {"type": "boolean"},
                "sort_order": {"type": "integer"}
            }
        },
        "order.Line": {
            "type": "object",
            "properties": {"item_id": {"type": "string"}, "quantity": {"type": "integer"}}
        },
        "order.Order": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "customer_id": {"type": "string"},
                "lines": {"type": "array", "items": {"$ref": "#/definitions/order.Line"}},
                "placed_at": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8443",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "DineFlow API",
	Description:      "Ordering and menu recommendation API",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
