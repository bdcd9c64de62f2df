// Error code reference for support staff.
//
// When users encounter errors, they can quote the error code to support
// staff for faster diagnosis. Codes are grouped by category:
//
// # URL Import Errors (URL001-URL099)
//
//	URL001 - Empty URL: no product URL was provided
//	URL002 - Unsupported URL: no supported platform claims the URL
//	URL003 - Not a product page: the URL points at a collection or other page
//	URL004 - Missing API key: Amazon/AliExpress need a RapidAPI key
//	URL005 - Upstream error: the storefront answered with an error status
//	URL006 - Bad upstream data: the storefront response could not be decoded
//
// # CSV Errors (CSV001-CSV099)
//
//	CSV001 - File too large
//	CSV002 - Invalid CSV: not parseable or not UTF-8
//	CSV003 - Empty file: no data rows
//	CSV004 - Missing columns: required platform columns absent
//	CSV005 - Unknown platform: headers match no supported platform
//	CSV006 - Bad source platform: source_platform value not supported
//	CSV007 - Missing weight unit: platform needs source_weight_unit
//
// # Export Errors (EXP001-EXP099)
//
//	EXP001 - Bad target platform
//	EXP002 - Bad weight unit for the chosen target
//	EXP003 - Duplicate keys: two products render the same handle/SKU
//
// # System Errors (SYS001-SYS002, RATE001, ERR000)
//
//	SYS001  - Request cancelled
//	SYS002  - Request timed out
//	RATE001 - Too many requests or concurrent conversions
//	ERR000  - Fallback for unmatched errors; check logs for the original
//
// Patterns are matched case-insensitively with strings.Contains; the first
// match wins, so specific patterns come before general ones.
package core

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"`          // What happened (user-friendly)
	Action  string `json:"action,omitempty"` // What to do about it
	Code    string `json:"code"`             // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error substrings (case-insensitive) to user
// messages. First match wins, so more specific patterns come first.
var errorPatterns = []errorPattern{
	// =========================================================================
	// URL Import Errors (URL001-URL006)
	// =========================================================================
	{
		pattern: "product_url is required",
		msg: UserMessage{
			Message: "No product URL was provided",
			Action:  "Paste the product page URL and try again",
			Code:    "URL001",
		},
	},
	{
		pattern: "unsupported url",
		msg: UserMessage{
			Message: "This URL is not from a supported platform",
			Action:  "Supported sources are Shopify, WooCommerce, Squarespace, Amazon, and AliExpress",
			Code:    "URL002",
		},
	},
	{
		pattern: "not a product page",
		msg: UserMessage{
			Message: "The URL is not a product page",
			Action:  "Use the URL of a single product, not a collection or store home",
			Code:    "URL003",
		},
	},
	{
		pattern: "rapidapi_key is required",
		msg: UserMessage{
			Message: "Amazon and AliExpress imports need an API key",
			Action:  "Configure RAPIDAPI_KEY on the server",
			Code:    "URL004",
		},
	},
	{
		pattern: "unexpected status",
		msg: UserMessage{
			Message: "The storefront did not return the product",
			Action:  "Check that the product is still published, then try again",
			Code:    "URL005",
		},
	},
	{
		pattern: "decode response",
		msg: UserMessage{
			Message: "The storefront returned data we could not read",
			Action:  "Try again; if it keeps failing the store may be blocking imports",
			Code:    "URL006",
		},
	},
	{
		pattern: "no product json-ld",
		msg: UserMessage{
			Message: "No product data was found on the page",
			Action:  "Check that the URL is a product page on a supported platform",
			Code:    "URL006",
		},
	},

	// =========================================================================
	// CSV Errors (CSV001-CSV007)
	// =========================================================================
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Split the file into smaller chunks",
			Code:    "CSV001",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "File is not a valid CSV",
			Action:  "Ensure the file is UTF-8, comma-separated, with consistent columns",
			Code:    "CSV002",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file has no data rows",
			Action:  "Export the products again and upload the full file",
			Code:    "CSV003",
		},
	},
	{
		pattern: "missing required columns",
		msg: UserMessage{
			Message: "Required columns are missing from the CSV",
			Action:  "Upload an unmodified export from the source platform",
			Code:    "CSV004",
		},
	},
	{
		pattern: "unable to detect csv platform",
		msg: UserMessage{
			Message: "The CSV headers match no supported platform",
			Action:  "Select the source platform manually",
			Code:    "CSV005",
		},
	},
	{
		pattern: "source_platform must be one of",
		msg: UserMessage{
			Message: "The source platform is not supported for CSV import",
			Action:  "Supported sources are Shopify, WooCommerce, Squarespace, BigCommerce, and Wix",
			Code:    "CSV006",
		},
	},
	{
		pattern: "source_weight_unit",
		msg: UserMessage{
			Message: "This platform's CSV does not say which weight unit it uses",
			Action:  "Select the weight unit the store was configured with",
			Code:    "CSV007",
		},
	},

	// =========================================================================
	// Export Errors (EXP001-EXP003)
	// =========================================================================
	{
		pattern: "target_platform must be one of",
		msg: UserMessage{
			Message: "The target platform is not supported for CSV export",
			Action:  "Supported targets are Shopify, WooCommerce, Squarespace, BigCommerce, and Wix",
			Code:    "EXP001",
		},
	},
	{
		pattern: "weight_unit must be one of",
		msg: UserMessage{
			Message: "The target platform does not accept that weight unit",
			Action:  "Pick one of the units the target platform supports",
			Code:    "EXP002",
		},
	},
	{
		pattern: "duplicate",
		msg: UserMessage{
			Message: "Two or more products would produce the same row key",
			Action:  "Give each product a unique handle or SKU before exporting",
			Code:    "EXP003",
		},
	},

	// =========================================================================
	// System Errors (SYS001-SYS002, RATE001)
	// =========================================================================
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "SYS001",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller batch or check your connection",
			Code:    "SYS002",
		},
	},
	{
		pattern: "too many concurrent conversions",
		msg: UserMessage{
			Message: "The server is busy with other conversions",
			Action:  "Please wait a moment and try again",
			Code:    "RATE001",
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

// defaultMessage is returned when no pattern matches (ERR000). Support
// staff should check the application logs for the original error.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// It searches through known error patterns (case-insensitive) and returns
// the first match. If no pattern matches, a generic fallback message with
// code ERR000 is returned.
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

// IsUserFacing reports whether an error matches a known pattern and is safe
// to show to users. ERR000 fallbacks are not considered user-facing.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError wraps a technical error with a user-friendly message. The
// original error is preserved for logging while Error() stays clean.
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

// NewUserError maps a technical error to a UserError. Returns nil if err
// is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
