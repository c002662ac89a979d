package mongo

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/x/mongo/driver"

	domainbooking "warehub/internal/domain/booking"
	domainlistings "warehub/internal/domain/listings"
)

func TestWithStatuses(t *testing.T) {
	assert.Equal(t, bson.M{"listing_id": "l-1"}, withStatuses(bson.M{"listing_id": "l-1"}, nil))

	got := withStatuses(bson.M{"listing_id": "l-1"}, []domainbooking.Status{domainbooking.StatusPending, domainbooking.StatusConfirmed})
	assert.Equal(t, bson.M{"$in": []string{"pending", "confirmed"}}, got["status"])
}

func TestTranslateWriteError(t *testing.T) {
	assert.NoError(t, translateWriteError(nil))

	plain := errors.New("boom")
	assert.Same(t, plain, translateWriteError(plain))

	conflict := mongo.CommandError{Code: 112, Name: "WriteConflict", Labels: []string{driver.TransientTransactionError}}
	err := translateWriteError(conflict)
	assert.ErrorIs(t, err, ErrConcurrentUpdate)
}

func TestSearchFilter(t *testing.T) {
	assert.Equal(t, bson.M{}, searchFilter(domainlistings.SearchParams{}.Normalized()))

	got := searchFilter(domainlistings.SearchParams{Query: "Dock.7", Industry: "FMCG", Tag: "cold", ExcludeOwner: "o-1"}.Normalized())
	assert.Equal(t, bson.M{"$ne": "o-1"}, got["owner_id"])
	assert.Equal(t, bson.A{
		bson.M{"name": bson.M{"$regex": `dock\.7`, "$options": "i"}},
		bson.M{"location": bson.M{"$regex": `dock\.7`, "$options": "i"}},
	}, got["$or"])
	assert.Equal(t, bson.M{"$regex": "^fmcg$", "$options": "i"}, got["industry"])
	assert.Equal(t, bson.M{"$regex": "cold", "$options": "i"}, got["tags"])
}
