package query

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchManyFailureIsolation(t *testing.T) {
	info := buildSourceInfo("Batch One", "de_nuke", "Counter-Strike", 5, 32, 'd', 'l', 0, 0)
	srv := newFakeServer(t, func(req []byte) [][]byte {
		if req[4] == typeInfoRequest {
			return [][]byte{frame(info)}
		}
		return nil
	})

	targets := []Target{
		{Host: "127.0.0.1", Port: srv.port},
		{Host: "127.0.0.1", Port: 70000},             // invalid port
		{Host: "batch.nowhere.invalid", Port: 27015}, // unresolvable
	}

	result := testClient().FetchMany(targets)
	require.Len(t, result, 3)

	good := result[fmt.Sprintf("127.0.0.1:%d", srv.port)]
	require.True(t, good.Success, "outcome: %+v", good.Error)
	assert.Equal(t, "Batch One", good.Data.Hostname)

	bad := result["127.0.0.1:70000"]
	require.False(t, bad.Success)
	assert.Equal(t, ErrInvalidInput, bad.Error.Kind)

	unresolved := result["batch.nowhere.invalid:27015"]
	require.False(t, unresolved.Success)
	assert.Equal(t, ErrResolution, unresolved.Error.Kind)
}

func TestFetchManyDuplicateKeyCollision(t *testing.T) {
	// Duplicate targets collide on one key; the map still holds exactly one
	// deterministic entry for them.
	result := testClient().FetchMany([]Target{
		{Host: "127.0.0.1", Port: 70000},
		{Host: "127.0.0.1", Port: 70000},
	})

	require.Len(t, result, 1)
	outcome, ok := result["127.0.0.1:70000"]
	require.True(t, ok)
	assert.Equal(t, ErrInvalidInput, outcome.Error.Kind)
}

func TestFetchManyEmpty(t *testing.T) {
	result := testClient().FetchMany(nil)
	assert.Empty(t, result)
}

func TestTargetKey(t *testing.T) {
	assert.Equal(t, "play.example.org:27015", Target{Host: "play.example.org", Port: 27015}.String())
}
