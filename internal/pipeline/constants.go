package pipeline

// Defaults and user-facing texts. The messages are read by the Apps Script
// forwarder, so their wording is part of the response contract.
const (
	// DefaultSheetName is the tab used when none is configured.
	DefaultSheetName = "Sheet1"

	// DefaultSinkLabel names the spreadsheet backend in messages.
	DefaultSinkLabel = "Google Sheets"

	// DefaultFailureLabel names the spreadsheet backend when a row was not saved.
	DefaultFailureLabel = "Sheets"

	// DefaultMissingReason explains why persistence was skipped.
	DefaultMissingReason = "SPREADSHEET_ID no configurado en variables de entorno"

	// MessageSinkUnavailable is the skip reason when a destination has no sink to write to.
	MessageSinkUnavailable = "backend de persistencia no inicializado"

	// MessageNotFound is returned when no amount could be extracted.
	MessageNotFound = "No se pudo extraer información de transacción del correo"

	// unknownRange stands in for a sink that did not report a range.
	unknownRange = "N/A"
)
