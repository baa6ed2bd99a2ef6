package handler

import "github.com/labstack/echo/v4"

// Response is the envelope every endpoint answers with, success or
// failure. Data is null and Success false on errors; the message is a
// fixed user-facing string that never carries internal detail.
type Response struct {
	Code    int    `json:"code"`
	Data    any    `json:"data"`
	Message string `json:"message"`
	Success bool   `json:"success"`
}

// Respond writes a success envelope with the given status code.
func Respond(c echo.Context, code int, data any, message string) error {
	return c.JSON(code, Response{Code: code, Data: data, Message: message, Success: true})
}

// RespondError writes a failure envelope with the given status code.
func RespondError(c echo.Context, code int, message string) error {
	return c.JSON(code, Response{Code: code, Data: nil, Message: message, Success: false})
}
