package mongodb

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Artexxx/employee-registry/library/yamlenv"
)

func TestMongoConfigValidate(t *testing.T) {
	cfg := MongoConfig{
		URI:        &yamlenv.Env[string]{Value: "mongodb://localhost:27017"},
		Database:   &yamlenv.Env[string]{Value: "assessment_db"},
		Collection: &yamlenv.Env[string]{Value: "employees"},
	}
	require.NoError(t, cfg.Validate())

	cfg.URI = &yamlenv.Env[string]{Value: " ", Name: "MONGO_URI"}
	cfg.Collection = nil

	err := cfg.Validate()
	require.ErrorContains(t, err, "mongo.uri")
	require.ErrorContains(t, err, "mongo.collection")
}
