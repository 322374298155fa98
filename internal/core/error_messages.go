package core

// # Error Codes Reference
//
// User-facing errors carry a short code so a report can be traced back to
// the technical error in the logs.
//
// # Load Errors (LOAD001-LOAD099)
//
//	LOAD001 - Not a collection: The source does not hold a list of DataFrames
//	          Action: Save the DataFrames as a list and load it again
//	          Patterns: "not an ordered collection"
//
//	LOAD002 - Element without shape: An item in the source is not a DataFrame
//	          Action: Remove anything that is not a DataFrame from the list
//	          Patterns: "no determinable shape"
//
//	LOAD003 - Load failed: The source could not be loaded
//	          Action: Check that the file is a supported bundle
//	          Patterns: "catalog load"
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large        Patterns: "file too large"
//	FILE002 - Invalid CSV           Patterns: "invalid csv"
//	FILE003 - Encoding error        Patterns: "encoding error"
//	FILE004 - No file               Patterns: "no file provided"
//	FILE005 - Empty file            Patterns: "empty file"
//	FILE006 - Unsupported format    Patterns: "unsupported file format"
//	FILE007 - Invalid JSON          Patterns: "invalid json"
//	FILE008 - File not found        Patterns: "no such file"
//
// # Dataset and Session Errors (DS001, SRC001-SRC099)
//
//	DS001  - Dataset not found      Patterns: "dataset not found"
//	DS002  - Not exportable         Patterns: "not exportable"
//	SRC001 - Session not found      Patterns: "session not found"
//	SRC002 - Sharing profile        Patterns: "delta sharing"
//	SRC003 - No source configured   Patterns: "not configured"
//
// # Load Scheduling (UPL002-UPL099)
//
//	UPL002 - System busy            Patterns: "too many loads"
//	UPL004 - Request cancelled      Patterns: "context canceled"
//	UPL005 - Request timeout        Patterns: "context deadline exceeded"
//
// # Database Errors (DB004-DB099)
//
//	DB004 - Connection refused      Patterns: "connection refused"
//	DB005 - Connection reset        Patterns: "connection reset"
//	DB006 - Timeout                 Patterns: "timeout"
//	DB007 - Access denied           Patterns: "access denied", "password authentication failed"
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Too many requests     Patterns: "rate limit"
//
// ERR000 is the fallback when nothing matches. Entries with a sentinel are
// checked with errors.Is before any text matching, so names embedded in an
// error message cannot change its code. Patterns are then matched
// case-insensitively with strings.Contains and the first match wins, so
// specific patterns precede general ones.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/frameview/internal/catalog"
	"github.com/JonMunkholm/frameview/internal/source"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"`
	Action  string `json:"action"`
	Code    string `json:"code"`
}

type errorPattern struct {
	sentinel error
	pattern  string
	msg      UserMessage
}

var errorPatterns = []errorPattern{
	// Catalog construction
	{
		sentinel: catalog.ErrNotCollection,
		pattern:  "not an ordered collection",
		msg: UserMessage{
			Message: "The source does not hold a list of DataFrames",
			Action:  "Save the DataFrames as a list and load it again",
			Code:    "LOAD001",
		},
	},
	{
		sentinel: catalog.ErrNoShape,
		pattern:  "no determinable shape",
		msg: UserMessage{
			Message: "An item in the source is not a DataFrame",
			Action:  "Remove anything that is not a DataFrame from the list",
			Code:    "LOAD002",
		},
	},

	// Files
	{
		sentinel: ErrFileTooLarge,
		pattern:  "file too large",
		msg: UserMessage{
			Message: "File exceeds maximum size limit",
			Action:  "Split the bundle into smaller files",
			Code:    "FILE001",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "File is not a valid CSV",
			Action:  "Ensure every row has the same number of columns as the header",
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
		sentinel: ErrNoFile,
		pattern:  "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a bundle file to load",
			Code:    "FILE004",
		},
	},
	{
		sentinel: source.ErrEmptyFile,
		pattern:  "empty file",
		msg: UserMessage{
			Message: "The file is empty",
			Action:  "Please load a file that contains DataFrames",
			Code:    "FILE005",
		},
	},
	{
		sentinel: source.ErrUnsupportedFormat,
		pattern:  "unsupported file format",
		msg: UserMessage{
			Message: "This file type is not supported",
			Action:  "Use a .json, .arrows, .parquet, .csv or .share file",
			Code:    "FILE006",
		},
	},
	{
		pattern: "invalid json",
		msg: UserMessage{
			Message: "File is not valid JSON",
			Action:  "Export the bundle again and retry",
			Code:    "FILE007",
		},
	},
	{
		pattern: "no such file",
		msg: UserMessage{
			Message: "Source file not found",
			Action:  "Check the configured source path",
			Code:    "FILE008",
		},
	},

	// Datasets and sessions
	{
		sentinel: catalog.ErrNotFound,
		pattern:  "dataset not found",
		msg: UserMessage{
			Message: "No DataFrame with that name",
			Action:  "Pick a name from the dataset list",
			Code:    "DS001",
		},
	},
	{
		pattern: "not exportable",
		msg: UserMessage{
			Message: "This DataFrame cannot be exported",
			Action:  "Only tabular DataFrames with rows can be exported to CSV",
			Code:    "DS002",
		},
	},
	{
		sentinel: ErrSessionNotFound,
		pattern:  "session not found",
		msg: UserMessage{
			Message: "Viewing session not found",
			Action:  "The session may have expired. Load the source again",
			Code:    "SRC001",
		},
	},
	{
		pattern: "delta sharing",
		msg: UserMessage{
			Message: "Unable to read the shared tables",
			Action:  "Check the sharing profile endpoint and token",
			Code:    "SRC002",
		},
	},
	{
		sentinel: ErrNotConfigured,
		pattern:  "not configured",
		msg: UserMessage{
			Message: "This source is not configured",
			Action:  "Set the connection settings and restart the server",
			Code:    "SRC003",
		},
	},

	// Scheduling and request lifecycle
	{
		sentinel: ErrTooManyLoads,
		pattern:  "too many loads",
		msg: UserMessage{
			Message: "System busy",
			Action:  "Please wait a moment and try again",
			Code:    "UPL002",
		},
	},
	{
		sentinel: context.Canceled,
		pattern:  "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL004",
		},
	},
	{
		sentinel: context.DeadlineExceeded,
		pattern:  "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller source or check your connection",
			Code:    "UPL005",
		},
	},

	// Databases
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Lower the row limit or try again later",
			Code:    "DB006",
		},
	},
	{
		pattern: "access denied",
		msg: UserMessage{
			Message: "Database rejected the credentials",
			Action:  "Check the database user and password",
			Code:    "DB007",
		},
	},
	{
		pattern: "password authentication failed",
		msg: UserMessage{
			Message: "Database rejected the credentials",
			Action:  "Check the database user and password",
			Code:    "DB007",
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

	// Any other load failure. Must stay last.
	{
		pattern: "catalog load",
		msg: UserMessage{
			Message: "The source could not be loaded",
			Action:  "Check that the file is a supported bundle",
			Code:    "LOAD003",
		},
	},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message. Unknown
// errors map to ERR000; nil maps to the zero UserMessage.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, ep := range errorPatterns {
		if ep.sentinel != nil && errors.Is(err, ep.sentinel) {
			return ep.msg
		}
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

// IsUserFacing reports whether err matched a specific pattern.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
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

// NewUserError maps err. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{Technical: err, User: MapError(err)}
}
