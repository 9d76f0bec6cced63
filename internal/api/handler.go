// Package api implements the dirsage HTTP handlers. Routing and
// middleware live in the server package.
package api

import (
	"log"
	"time"

	"dirsage/internal/database"
	"dirsage/internal/disk"
	"dirsage/internal/execdir"
	"dirsage/internal/logging"
	"dirsage/internal/scan"
)

// Scanner lists a directory with recursive sizes.
type Scanner interface {
	Scan(path string) ([]scan.Entry, error)
}

// Eraser deletes a batch of paths, stopping at the first failure.
type Eraser interface {
	DeleteAll(paths []string) error
}

// History is the read side of the deletion history store.
type History interface {
	GetDeletionsPaginated(f database.Filter) ([]database.DeletionRecord, int, error)
	GetDeletionStats(days int) (*database.DeletionStats, error)
}

// TokenIssuer signs login tokens.
type TokenIssuer interface {
	GenerateToken(userID, username string, roles []string) (string, error)
	Expiry() time.Duration
}

// Credentials is the single configured login.
type Credentials struct {
	Username string
	Password string
}

// Options configures a Handler. History and Tokens may be left nil to
// disable the history and login endpoints; do not pass typed nil pointers.
type Options struct {
	Scanner      Scanner
	Eraser       Eraser
	History      History
	Tokens       TokenIssuer
	Credentials  Credentials
	StaleTimeout time.Duration
	Logger       *log.Logger
}

// Handler serves the dirsage API
type Handler struct {
	scanner     Scanner
	eraser      Eraser
	history     History
	tokens      TokenIssuer
	credentials Credentials
	logger      *logging.Leveled

	execDir      func() (string, error)
	diskUsage    func(path string) (*disk.Usage, error)
	allDiskUsage func() ([]disk.Usage, error)
}

func NewHandler(o Options) *Handler {
	stale := o.StaleTimeout
	return &Handler{
		scanner:     o.Scanner,
		eraser:      o.Eraser,
		history:     o.History,
		tokens:      o.Tokens,
		credentials: o.Credentials,
		logger:      logging.NewLeveled(o.Logger),
		execDir:     execdir.Dir,
		diskUsage: func(path string) (*disk.Usage, error) {
			return disk.GetUsage(path, stale)
		},
		allDiskUsage: disk.GetAllUsage,
	}
}
