package core

// # Error Codes Reference
//
// Codes are grouped by category so users can quote them when reporting a
// problem:
//
//	VAL004  - Missing column: the header has no Address column
//	VAL007  - Malformed data: a record or address has the wrong JSON type
//	FILE001 - File too large: request body exceeds the upload limit
//	FILE002 - Invalid CSV: the delimited text could not be parsed
//	FILE003 - Encoding error: input is not UTF-8
//	FILE004 - No file: request body was empty
//	FILE005 - Empty file: the CSV has no rows at all
//	FILE006 - Invalid JSON: the document could not be parsed
//	FILE007 - Input not found: an input file does not exist
//	RUN001  - Run cancelled
//	RUN002  - System busy: too many concurrent runs
//	RUN003  - Run timed out
//	DB004   - History store unreachable
//	DB006   - History store timeout
//	DB008   - History store locked
//	ERR000  - Fallback when nothing matches
//
// Patterns are matched case-insensitively with strings.Contains. The first
// match wins, so specific patterns come before general ones.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Validation
	{
		pattern: "bad request",
		msg: UserMessage{
			Message: "The request could not be understood",
			Action:  "Check the request parameters and body",
			Code:    "VAL001",
		},
	},
	{
		pattern: "missing required column",
		msg: UserMessage{
			Message: "Address column not found",
			Action:  "Add an Address column to the header row (second row) of your file",
			Code:    "VAL004",
		},
	},
	{
		pattern: "malformed data",
		msg: UserMessage{
			Message: "Exhibitor data has an unexpected shape",
			Action:  "Ensure exhibitors is a list of objects with string addresses",
			Code:    "VAL007",
		},
	},

	// Files
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds maximum size limit",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "File is not a valid CSV",
			Action:  "Ensure file is comma-separated with balanced quotes",
			Code:    "FILE002",
		},
	},
	{
		pattern: "encoding error",
		msg: UserMessage{
			Message: "File contains invalid characters",
			Action:  "Save file as UTF-8 encoding",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was provided",
			Action:  "Send the file contents as the request body",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The file is empty",
			Action:  "Provide a file with a placeholder row, a header row and data rows",
			Code:    "FILE005",
		},
	},
	{
		pattern: "invalid json",
		msg: UserMessage{
			Message: "File is not valid JSON",
			Action:  "Check the document for syntax errors",
			Code:    "FILE006",
		},
	},
	{
		pattern: "no such file or directory",
		msg: UserMessage{
			Message: "Input file not found",
			Action:  "Check BASE_DIR and the input file names",
			Code:    "FILE007",
		},
	},

	// Runs
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Run was cancelled",
			Action:  "Please try again",
			Code:    "RUN001",
		},
	},
	{
		pattern: "too many runs",
		msg: UserMessage{
			Message: "System is busy processing other runs",
			Action:  "Please wait a moment and try again",
			Code:    "RUN002",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Run timed out",
			Action:  "Try a smaller file or try again later",
			Code:    "RUN003",
		},
	},

	// History store
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to history database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Please try again later",
			Code:    "DB006",
		},
	},
	{
		pattern: "database is locked",
		msg: UserMessage{
			Message: "History database is busy",
			Action:  "Please try again",
			Code:    "DB008",
		},
	},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// If no pattern matches, a generic fallback with code ERR000 is returned.
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

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern rather than the
// ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
