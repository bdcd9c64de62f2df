// Package core provides the business logic for product listing conversion.
//
// This package is the heart of the converter, containing all domain logic
// independent of any UI or transport layer. It can be used by web handlers,
// CLI tools, or tests without modification.
//
// # Architecture
//
// The package is organized around a single entry point:
//
//   - Service: routes every operation — URL detection, CSV platform
//     detection, URL and CSV import, CSV export, and full conversions.
//   - ConversionLimiter: bounds concurrent conversions so one busy client
//     cannot exhaust the process.
//   - MapError: translates technical errors into coded user messages.
//
// A conversion is import followed by export: the source (a batch of
// storefront URLs or an uploaded platform CSV) is parsed into canonical
// products, and the products are rendered into the target platform's
// import-ready CSV. Nothing is persisted; every conversion is identified by
// a fresh UUID and summarized in a ConversionReport.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - URL001-URL006: URL import errors (unsupported, not a product, upstream)
//   - CSV001-CSV007: CSV parsing errors (size, encoding, headers, platform)
//   - EXP001-EXP003: Export errors (target, weight unit, duplicate keys)
//   - SYS001-SYS002: Cancelled or timed-out requests
package core
