package session

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuntimeStore_GetMissingIsEmpty(t *testing.T) {
	store := NewRuntimeStore()

	state := store.Get("agent:bot:main")
	assert.True(t, state.IsEmpty())
	assert.False(t, store.Has("agent:bot:main"), "reads must not create records")
}

func TestRuntimeStore_UpdateMerges(t *testing.T) {
	store := NewRuntimeStore()
	key := "agent:bot:main"

	store.Update(key, RuntimeState{SystemSent: Bool(true)})
	store.Update(key, RuntimeState{LastHeartbeatText: String("x")})

	assert.Equal(t, RuntimeState{SystemSent: Bool(true), LastHeartbeatText: String("x")}, store.Get(key))
}

func TestRuntimeStore_UpdateOverwrites(t *testing.T) {
	store := NewRuntimeStore()
	key := "agent:bot:main"

	store.Update(key, RuntimeState{SystemSent: Bool(true), LastHeartbeatSentAt: Int64(100)})
	store.Update(key, RuntimeState{SystemSent: Bool(false)})

	state := store.Get(key)
	require.NotNil(t, state.SystemSent)
	assert.False(t, *state.SystemSent)
	assert.Equal(t, int64(100), *state.LastHeartbeatSentAt)
}

func TestRuntimeStore_GetReturnsCopy(t *testing.T) {
	store := NewRuntimeStore()
	key := "agent:bot:main"
	store.Update(key, RuntimeState{
		CLISessionIDs:  map[string]string{"codex": "c1"},
		SkillsSnapshot: &SkillSnapshot{Skills: []string{"search"}},
	})

	state := store.Get(key)
	state.CLISessionIDs["codex"] = "tampered"
	state.SkillsSnapshot.Skills[0] = "tampered"

	fresh := store.Get(key)
	assert.Equal(t, "c1", fresh.CLISessionIDs["codex"])
	assert.Equal(t, "search", fresh.SkillsSnapshot.Skills[0])
}

func TestRuntimeStore_PatchNotAliased(t *testing.T) {
	store := NewRuntimeStore()
	ids := map[string]string{"codex": "c1"}
	store.Update("k", RuntimeState{CLISessionIDs: ids})

	ids["codex"] = "changed"
	assert.Equal(t, "c1", store.Get("k").CLISessionIDs["codex"])
}

func TestRuntimeStore_SetField(t *testing.T) {
	store := NewRuntimeStore()
	key := "agent:bot:main"

	require.NoError(t, store.SetField(key, FieldAbortedLastRun, true))
	require.NoError(t, store.SetField(key, FieldLastHeartbeatText, "HEARTBEAT_OK"))
	require.NoError(t, store.SetField(key, FieldLastHeartbeatSentAt, 1700000000000))
	require.NoError(t, store.SetField(key, FieldSystemPromptReport, SystemPromptReport{Source: "run", Chars: 1200}))

	state := store.Get(key)
	assert.True(t, *state.AbortedLastRun)
	assert.Equal(t, "HEARTBEAT_OK", *state.LastHeartbeatText)
	assert.Equal(t, int64(1700000000000), *state.LastHeartbeatSentAt)
	assert.Equal(t, 1200, state.SystemPromptReport.Chars)

	require.NoError(t, store.SetField(key, FieldLastHeartbeatText, nil))
	assert.Nil(t, store.Get(key).LastHeartbeatText)
	assert.NotNil(t, store.Get(key).AbortedLastRun)
}

func TestRuntimeStore_SetFieldNilOnMissingKey(t *testing.T) {
	store := NewRuntimeStore()

	require.NoError(t, store.SetField("agent:bot:dm:u1", FieldSystemSent, nil))
	assert.False(t, store.Has("agent:bot:dm:u1"))
	assert.Zero(t, store.Len())
	assert.True(t, store.Get("agent:bot:dm:u1").IsEmpty())
}

func TestRuntimeStore_SetFieldErrors(t *testing.T) {
	store := NewRuntimeStore()

	err := store.SetField("k", FieldSystemSent, "yes")
	assert.ErrorIs(t, err, ErrFieldType)

	err = store.SetField("k", RuntimeField("bogus"), true)
	assert.ErrorIs(t, err, ErrUnknownField)

	err = store.SetField("k", RuntimeField("bogus"), nil)
	assert.ErrorIs(t, err, ErrUnknownField)

	assert.False(t, store.Has("k"), "rejected writes must not create records")
}

func TestRuntimeStore_ClearAndIntrospection(t *testing.T) {
	store := NewRuntimeStore()
	store.Update("agent:b:main", RuntimeState{SystemSent: Bool(true)})
	store.Update("agent:a:main", RuntimeState{SystemSent: Bool(true)})

	assert.Equal(t, []string{"agent:a:main", "agent:b:main"}, store.Keys())
	assert.Equal(t, 2, store.Len())

	store.Clear("agent:a:main")
	assert.False(t, store.Has("agent:a:main"))
	assert.True(t, store.Get("agent:a:main").IsEmpty())
	assert.Equal(t, []string{"agent:b:main"}, store.Keys())

	store.Clear("never-set")
	assert.Equal(t, 1, store.Len())

	store.ClearAll()
	assert.Empty(t, store.Keys())
}

func TestRuntimeStore_InstancesIsolated(t *testing.T) {
	a := NewRuntimeStore()
	b := NewRuntimeStore()

	a.Update("k", RuntimeState{SystemSent: Bool(true)})
	assert.False(t, b.Has("k"))
}

func TestRuntimeStore_ConcurrentMutate(t *testing.T) {
	store := NewRuntimeStore()
	key := "agent:bot:main"

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			store.Mutate(key, func(state RuntimeState) RuntimeState {
				ids := map[string]string{}
				for k, v := range state.CLISessionIDs {
					ids[k] = v
				}
				ids[fmt.Sprintf("p%d", i)] = "x"
				state.CLISessionIDs = ids
				return state
			})
		}(i)
	}
	wg.Wait()

	assert.Len(t, store.Get(key).CLISessionIDs, 50)
}
