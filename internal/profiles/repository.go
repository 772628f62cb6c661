package profiles

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/tourneyhub/tourneyhub/client-core/internal/models"
)

// Repository reads profile records. GetByID returns (nil, nil) when no
// profile exists for the identity.
type Repository interface {
	GetByID(ctx context.Context, identityID string) (*models.Profile, error)
}

// MongoRepository implements Repository using MongoDB. Profiles are keyed by
// the identity id in "_id".
type MongoRepository struct {
	col *mongo.Collection
}

// NewMongoRepository creates a new repository for the given collection
func NewMongoRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

func (r *MongoRepository) GetByID(ctx context.Context, identityID string) (*models.Profile, error) {
	var p models.Profile
	if err := r.col.FindOne(ctx, bson.M{"_id": identityID}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// ErrStoreUnavailable is returned by the repository used when no profile
// store could be reached at startup.
var ErrStoreUnavailable = errors.New("profile store unavailable")

type unavailableRepository struct{ cause error }

// Unavailable returns a Repository whose lookups always fail with
// ErrStoreUnavailable, so sessions resolve through the transient path.
func Unavailable(cause error) Repository {
	return unavailableRepository{cause: cause}
}

func (u unavailableRepository) GetByID(ctx context.Context, identityID string) (*models.Profile, error) {
	if u.cause != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, u.cause)
	}
	return nil, ErrStoreUnavailable
}
