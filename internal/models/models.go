// package models defines the data model for the acquisition service
package models

import (
	"context"
	"time"
)

// Model defines the base interface for persistent history records.
// Implementations include [JobRecord] and [AcquisitionRecord].
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the keyed access operations shared by history stores.
type Repository[T Model] interface {
	Create(ctx context.Context, model T) error      // Create inserts a new model into the database
	Get(ctx context.Context, id string) (T, error) // Get retrieves a model by its ID
}
