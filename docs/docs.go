// Package docs registers the OpenAPI description of the HTTP transport with
// swag so http-swagger can serve it at /swagger/doc.json.
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
        "/messages": {
            "post": {
                "description": "Accepts a JSON message (text, or base64 media with its MIME type) or raw audio bytes.\nThe message is answered exactly like a WhatsApp message: menu, assistant or relay mode.",
                "consumes": [
                    "application/json",
                    "audio/ogg",
                    "audio/mpeg"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "messages"
                ],
                "summary": "Answer a message",
                "parameters": [
                    {
                        "description": "Message (JSON). For raw audio, POST the bytes directly with the appropriate Content-Type.",
                        "name": "message",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/http.messageRequest"
                        }
                    },
                    {
                        "type": "string",
                        "description": "Sender identifier (used with raw audio uploads)",
                        "name": "X-Kartavyabot-Sender",
                        "in": "header"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Reply for the sender",
                        "schema": {
                            "$ref": "#/definitions/message.Reply"
                        }
                    },
                    "204": {
                        "description": "Sender is not allowed; no reply"
                    },
                    "400": {
                        "description": "Invalid request body or headers",
                        "schema": {
                            "type": "string"
                        }
                    },
                    "500": {
                        "description": "Internal processing error",
                        "schema": {
                            "type": "string"
                        }
                    }
                }
            }
        }
    },
    "definitions": {
        "http.messageRequest": {
            "type": "object",
            "properties": {
                "body": {
                    "type": "string"
                },
                "id": {
                    "type": "string"
                },
                "media": {
                    "$ref": "#/definitions/message.Media"
                },
                "push_name": {
                    "type": "string"
                },
                "sender": {
                    "type": "string"
                },
                "type": {
                    "type": "string"
                }
            }
        },
        "message.Media": {
            "type": "object",
            "properties": {
                "data": {
                    "type": "string",
                    "format": "byte"
                },
                "mimetype": {
                    "type": "string"
                }
            }
        },
        "message.Reply": {
            "type": "object",
            "properties": {
                "event_id": {
                    "type": "string"
                },
                "text": {
                    "type": "string"
                },
                "to": {
                    "type": "string"
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "KartavyaBot API",
	Description:      "Message endpoint for the KartavyaAI WhatsApp bot.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
