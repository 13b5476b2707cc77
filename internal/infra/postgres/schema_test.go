package postgres

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockID(t *testing.T) {
	assert.Equal(t, LockID("ai-tutor", "schema"), LockID("ai-tutor", "schema"))
	assert.NotEqual(t, LockID("ai-tutor", "schema"), LockID("ai-tutor", "sessions"))
}

func TestEnsureSchemaRejectsInvalidDimension(t *testing.T) {
	err := EnsureSchema(context.Background(), nil, 0)
	assert.Error(t, err)
}

func TestEnsureSchemaConcurrentStartup(t *testing.T) {
	db := requireDB(t)

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = EnsureSchema(context.Background(), db, testDimension)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
}
