package errors

// Error code constants.
// Format: CATEGORY_SPECIFIC_DETAIL
// API consumers map these codes to their own messages.

const (
	// ==================== Validation (VALIDATION_) ====================
	ValidationInvalidInput = "VALIDATION_INVALID_INPUT" // malformed request body
	ValidationInvalidID    = "VALIDATION_INVALID_ID"    // malformed identifier
	ValidationInvalidRange = "VALIDATION_INVALID_RANGE" // value out of bounds
	ValidationRequired     = "VALIDATION_REQUIRED"      // missing required field

	// ==================== Resource (RESOURCE_) ====================
	ResourceNotFound = "RESOURCE_NOT_FOUND" // resource does not exist

	// ==================== Search (SEARCH_) ====================
	SearchLocationNotFound = "SEARCH_LOCATION_NOT_FOUND" // location could not be geocoded
	SearchInvalidCategory  = "SEARCH_INVALID_CATEGORY"   // unknown trade category
	SearchInvalidRadius    = "SEARCH_INVALID_RADIUS"     // radius out of bounds

	// ==================== Business records (BUSINESS_) ====================
	BusinessNotFound = "BUSINESS_NOT_FOUND" // no stored record

	// ==================== Upstream services (UPSTREAM_) ====================
	UpstreamRateLimited = "UPSTREAM_RATE_LIMITED" // upstream returned 429
	UpstreamUnavailable = "UPSTREAM_UNAVAILABLE"  // upstream failed or unreachable

	// ==================== Export (EXPORT_) ====================
	ExportFailed       = "EXPORT_FAILED"        // export generation failed
	ExportUploadFailed = "EXPORT_UPLOAD_FAILED" // object storage upload failed

	// ==================== Internal (INTERNAL_) ====================
	InternalServerError   = "INTERNAL_SERVER_ERROR"   // unclassified server error
	InternalDatabaseError = "INTERNAL_DATABASE_ERROR" // durable store failure
	InternalConfigError   = "INTERNAL_CONFIG_ERROR"   // invalid configuration
)
