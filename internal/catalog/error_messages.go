package catalog

// error_messages.go maps technical errors to user-facing messages with a
// support code. Codes by category:
//
//	QRY001-QRY099   query errors (unsupported sort key, bad parameters, unknown product)
//	ING001-ING099   ingestion errors (empty file, missing header, ingest already busy)
//	FILE001-FILE099 upload file errors
//	SRC001-SRC099   catalog source errors (remote fetch, database, snapshot)
//	REQ001-REQ099   request lifecycle (cancelled, timed out, unknown route)
//	AUTH001-AUTH099 API key checks
//	RATE001         rate limiting
//	ERR000          fallback
//
// Patterns are matched case-insensitively with strings.Contains and the
// first match wins, so specific patterns come before general ones.

import (
	"fmt"
	"strings"
)

// UserMessage is an error as shown to API clients.
type UserMessage struct {
	Message string // what happened
	Action  string // what to do about it
	Code    string // support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Query
	{
		pattern: "unsupported sort key",
		msg: UserMessage{
			Message: "This sort order is not available",
			Action:  "Sort by name, price or age instead",
			Code:    "QRY001",
		},
	},
	{
		pattern: "invalid query parameter",
		msg: UserMessage{
			Message: "A query parameter could not be understood",
			Action:  "Check the filter values and try again",
			Code:    "QRY002",
		},
	},
	{
		pattern: "product not found",
		msg: UserMessage{
			Message: "Product not found",
			Action:  "The product may have been removed from the catalog",
			Code:    "QRY003",
		},
	},

	// Ingestion
	{
		pattern: "no header row",
		msg: UserMessage{
			Message: "The file has no header row",
			Action:  "Upload a CSV whose first line lists the column names",
			Code:    "ING001",
		},
	},
	{
		pattern: "too many ingests",
		msg: UserMessage{
			Message: "Another catalog import is in progress",
			Action:  "Please wait a moment and try again",
			Code:    "ING002",
		},
	},

	// Upload files
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Split the catalog into smaller files",
			Code:    "FILE001",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a CSV file to upload",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Please upload a CSV file with product rows",
			Code:    "FILE005",
		},
	},

	// Sources
	{
		pattern: "no catalog source",
		msg: UserMessage{
			Message: "No catalog source is configured",
			Action:  "Set CATALOG_SOURCE or upload a CSV file",
			Code:    "SRC001",
		},
	},
	{
		pattern: "fetch catalog",
		msg: UserMessage{
			Message: "The remote catalog could not be fetched",
			Action:  "The previous catalog is still served; try again later",
			Code:    "SRC002",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to reach the catalog datastore",
			Action:  "Please try again in a few moments",
			Code:    "SRC003",
		},
	},
	{
		pattern: "snapshot",
		msg: UserMessage{
			Message: "The catalog snapshot could not be read or written",
			Action:  "Check the snapshot path and permissions",
			Code:    "SRC004",
		},
	},

	// Request lifecycle
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "REQ001",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or check your connection",
			Code:    "REQ002",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Please try again later",
			Code:    "REQ002",
		},
	},

	{
		pattern: "route not found",
		msg: UserMessage{
			Message: "This endpoint does not exist",
			Action:  "Check the request path",
			Code:    "REQ003",
		},
	},
	{
		pattern: "method not allowed",
		msg: UserMessage{
			Message: "This method is not supported here",
			Action:  "Check the request method",
			Code:    "REQ004",
		},
	},

	// Authentication
	{
		pattern: "missing api key",
		msg: UserMessage{
			Message: "An API key is required",
			Action:  "Send your key in the X-API-Key header",
			Code:    "AUTH001",
		},
	},
	{
		pattern: "invalid api key",
		msg: UserMessage{
			Message: "The API key was not accepted",
			Action:  "Check the key or ask for a new one",
			Code:    "AUTH002",
		},
	},

	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts err to a user-facing message. nil maps to the zero
// UserMessage; unknown errors map to ERR000.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError renders err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern.
func IsUserFacing(err error) bool {
	return err != nil && MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user message.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err. It returns nil for a nil error.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{Technical: err, User: MapError(err)}
}
