package backend

import (
	"context"

	"mandir/internal/amqp"
	"mandir/internal/services"
	"mandir/internal/sheets"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult holds what a process needs to serve bookings: the store,
// the spreadsheet exporter and, when configured, the broker client.
type BackendResult struct {
	Store    services.Store
	Exporter sheets.Exporter
	// AMQP is nil when no broker is configured.
	AMQP    *amqp.Client
	Cleanup CleanupFunc
}

// Publisher returns the broker client as a publisher, or nil without one.
// The nil check keeps a typed nil out of the interface.
func (r *BackendResult) Publisher() services.BookingPublisher {
	if r.AMQP == nil {
		return nil
	}
	return r.AMQP
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Memory backend seed directory
	DataDirectory string

	// Optional broker
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Optional Google Sheets export; memory exporter when SpreadsheetID is empty
	GoogleSpreadsheetID   string
	GoogleCredentialsJSON string
	GoogleCredentialsFile string
	BookingsSheetName     string
	RosterSheetName       string
	CollectionsSheetName  string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
