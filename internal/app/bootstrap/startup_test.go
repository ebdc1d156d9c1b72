package bootstrap

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func TestValidateConfig_AcceptsDefaults(t *testing.T) {
	cfg := AppConfig{
		MongoURI:           "mongodb://localhost:27017",
		MongoDatabase:      "tutordesk",
		MongoMaxPoolSize:   100,
		MongoMinPoolSize:   10,
		CacheSweepInterval: time.Minute,
	}

	if err := ValidateConfig(nil, cfg, testLogger()); err != nil {
		t.Fatalf("ValidateConfig rejected valid config: %v", err)
	}
}

func TestValidateConfig_RejectsBadURI(t *testing.T) {
	cfg := AppConfig{
		MongoURI:           "http://not-a-mongo-uri",
		MongoDatabase:      "tutordesk",
		CacheSweepInterval: time.Minute,
	}

	if err := ValidateConfig(nil, cfg, testLogger()); err == nil {
		t.Fatal("expected error for non-mongodb URI")
	}
}

func TestValidateConfig_RejectsEmptyDatabase(t *testing.T) {
	cfg := AppConfig{
		MongoURI:           "mongodb://localhost:27017",
		MongoDatabase:      "",
		CacheSweepInterval: time.Minute,
	}

	if err := ValidateConfig(nil, cfg, testLogger()); err == nil {
		t.Fatal("expected error for empty database name")
	}
}

func TestValidateConfig_RejectsZeroSweepInterval(t *testing.T) {
	cfg := AppConfig{
		MongoURI:      "mongodb://localhost:27017",
		MongoDatabase: "tutordesk",
	}

	if err := ValidateConfig(nil, cfg, testLogger()); err == nil {
		t.Fatal("expected error for zero sweep interval")
	}
}
