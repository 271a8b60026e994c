package redis

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/osvaldoandrade/taskdeck/pkg/persistence"
	"github.com/osvaldoandrade/taskdeck/pkg/persistence/persistencetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisPlugin(t *testing.T) {
	persistencetest.Run(t, func(t *testing.T) persistence.PluginPersistence {
		mr := miniredis.RunT(t)
		p, err := NewPlugin(persistence.PluginConfig{Config: json.RawMessage(`{"addr":"` + mr.Addr() + `"}`)})
		require.NoError(t, err)
		t.Cleanup(func() { _ = p.Close() })
		return p
	})
}

func TestFallsBackToServerRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	p, err := persistence.NewPersistence("redis", persistence.PluginConfig{RedisAddr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	plugin, ok := p.(*Plugin)
	require.True(t, ok)
	assert.Equal(t, mr.Addr(), plugin.Client().Options().Addr)
}

func TestRequiresAddr(t *testing.T) {
	_, err := NewPlugin(persistence.PluginConfig{Config: json.RawMessage(`{}`)})
	assert.Error(t, err)
}

func TestKeyPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	p, err := NewPlugin(persistence.PluginConfig{Config: json.RawMessage(`{"addr":"` + mr.Addr() + `","keyPrefix":"stage"}`)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	require.NoError(t, p.TaskStorage().Save(context.Background(), persistencetest.NewTask("render")))
	assert.True(t, mr.Exists("stage:tasks"))
	assert.False(t, mr.Exists("taskdeck:tasks"))
}
