package storex

import (
	"net/http"

	"github.com/Abraxas-365/rxintake/errx"
)

// Error registry for storex
var (
	ErrorRegistry = errx.NewRegistry("STORE")

	ErrRecordNotFound   = ErrorRegistry.Register("NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Record not found")
	ErrConnectionFailed = ErrorRegistry.Register("CONNECTION_FAILED", errx.TypeUnavailable, http.StatusServiceUnavailable, "Database connection failed")
	ErrCreateFailed     = ErrorRegistry.Register("CREATE_FAILED", errx.TypeInternal, http.StatusInternalServerError, "Failed to create record")
	ErrUpdateFailed     = ErrorRegistry.Register("UPDATE_FAILED", errx.TypeInternal, http.StatusInternalServerError, "Failed to update record")
	ErrTxBeginFailed    = ErrorRegistry.Register("TX_BEGIN_FAILED", errx.TypeInternal, http.StatusInternalServerError, "Failed to begin transaction")
	ErrTxCommitFailed   = ErrorRegistry.Register("TX_COMMIT_FAILED", errx.TypeInternal, http.StatusInternalServerError, "Failed to commit transaction")
	ErrQueryFailed      = ErrorRegistry.Register("QUERY_FAILED", errx.TypeInternal, http.StatusInternalServerError, "Query execution failed")
	ErrMigrationFailed  = ErrorRegistry.Register("MIGRATION_FAILED", errx.TypeInternal, http.StatusInternalServerError, "Schema migration failed")
)

func IsRecordNotFound(err error) bool {
	return errx.IsCode(err, ErrRecordNotFound)
}

func IsConnectionFailed(err error) bool {
	return errx.IsCode(err, ErrConnectionFailed)
}
