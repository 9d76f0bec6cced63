package exitcodes

// Process exit codes shared by dirsage-server and the dirsage CLI
const (
	Success         = 0 // Successful execution
	InvalidConfig   = 2 // Configuration file invalid, or bad command-line usage
	SafetyViolation = 3 // A deletion was blocked by the safety validator
	RuntimeError    = 4 // Scan, delete, or server failure
)
