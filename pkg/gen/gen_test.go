package gen_test

import (
	"testing"

	"reelgrab/pkg/gen"

	"github.com/google/uuid"
)

func TestUUID(t *testing.T) {
	if _, err := uuid.Parse(gen.UUID()); err != nil {
		t.Errorf("UUID not parseable: %v", err)
	}
}

func TestUUIDUnique(t *testing.T) {
	if gen.UUID() == gen.UUID() {
		t.Error("consecutive UUIDs collided")
	}
}
