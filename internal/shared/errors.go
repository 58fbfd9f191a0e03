package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrMissingDependency  = fmt.Errorf("missing external dependency")

	// Catalog and service errors
	ErrCatalog            = fmt.Errorf("catalog request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrItemNotFound       = fmt.Errorf("item not found")
	ErrAPIRequest         = fmt.Errorf("API request failed")

	// Acquisition errors
	ErrRetrieval   = fmt.Errorf("retrieval failed")
	ErrTagging     = fmt.Errorf("tagging failed")
	ErrPermission  = fmt.Errorf("no write permission")
	ErrJobNotFound = fmt.Errorf("job not found")

	// Input validation errors
	ErrInvalidReference = fmt.Errorf("invalid reference")
	ErrMissingArgument  = fmt.Errorf("missing required argument")
	ErrInvalidArgument  = fmt.Errorf("invalid argument")
)
