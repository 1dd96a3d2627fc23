// internal/api/error_codes.go
package api

// API error codes
const (
	// General
	ErrorBadRequest    = "BAD_REQUEST"
	ErrorNotFound      = "NOT_FOUND"
	ErrorInternalError = "INTERNAL_ERROR"
	ErrorConflict      = "CONFLICT"
	ErrorTimeout       = "TIMEOUT"
	ErrorRateLimited   = "RATE_LIMIT_EXCEEDED"

	// Content
	ErrorArticleNotFound = "ARTICLE_NOT_FOUND"
	ErrorReloadFailed    = "CONTENT_RELOAD_FAILED"

	// Highlights and reader profiles
	ErrorHighlightNotFound = "HIGHLIGHT_NOT_FOUND"
	ErrorHighlightInvalid  = "HIGHLIGHT_INVALID"
	ErrorProfileInvalid    = "PROFILE_INVALID"
	ErrorStateInvalid      = "READER_STATE_INVALID"

	// Rendering
	ErrorRenderInvalid = "RENDER_INVALID"
	ErrorFormatInvalid = "FORMAT_INVALID"

	// Export
	ErrorExportFailed        = "EXPORT_FAILED"
	ErrorExportFormatInvalid = "EXPORT_FORMAT_INVALID"

	// Search
	ErrorSearchQueryEmpty = "SEARCH_QUERY_EMPTY"

	// Settings
	ErrorPaletteInvalid = "PALETTE_INVALID"
)
