package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAssignsID(t *testing.T) {
	triggers := NewTriggers()

	b, err := triggers.Register(Binding{DeviceKey: "a", Kind: KindOffline, ThresholdMinutes: 30})
	require.NoError(t, err)
	assert.NotEmpty(t, b.ID)
}

func TestRegisterValidation(t *testing.T) {
	triggers := NewTriggers()

	_, err := triggers.Register(Binding{Kind: KindOffline, ThresholdMinutes: 30})
	require.Error(t, err, "missing device key")

	_, err = triggers.Register(Binding{DeviceKey: "a", Kind: "bogus"})
	require.Error(t, err, "unknown kind")

	_, err = triggers.Register(Binding{DeviceKey: "a", Kind: KindOffline})
	require.Error(t, err, "offline trigger needs a threshold")

	// Alert triggers carry no threshold.
	_, err = triggers.Register(Binding{DeviceKey: "a", Kind: KindAlert})
	require.NoError(t, err)
}

func TestRegisterRejectsDuplicateID(t *testing.T) {
	triggers := NewTriggers()

	b, err := triggers.Register(Binding{ID: "t1", DeviceKey: "a", Kind: KindAlert})
	require.NoError(t, err)
	assert.Equal(t, "t1", b.ID)

	_, err = triggers.Register(Binding{ID: "t1", DeviceKey: "b", Kind: KindAlert})
	require.Error(t, err)
}

func TestRemove(t *testing.T) {
	triggers := NewTriggers()
	b, err := triggers.Register(Binding{DeviceKey: "a", Kind: KindAlert})
	require.NoError(t, err)

	require.NoError(t, triggers.Remove(b.ID))
	assert.Empty(t, triggers.List())
	require.Error(t, triggers.Remove(b.ID), "second removal fails")
}

func TestForDeviceKeepsRegistrationOrder(t *testing.T) {
	triggers := NewTriggers()

	first, _ := triggers.Register(Binding{DeviceKey: "a", Kind: KindOffline, ThresholdMinutes: 10})
	_, _ = triggers.Register(Binding{DeviceKey: "b", Kind: KindAlert})
	second, _ := triggers.Register(Binding{DeviceKey: "a", Kind: KindAlert})

	got := triggers.ForDevice("a")
	require.Len(t, got, 2)
	assert.Equal(t, first.ID, got[0].ID)
	assert.Equal(t, second.ID, got[1].ID)
}

func TestMultiExecutorFansOut(t *testing.T) {
	var a, b []OfflineEvent
	multi := MultiExecutor{
		executorFunc(func(e OfflineEvent) { a = append(a, e) }),
		executorFunc(func(e OfflineEvent) { b = append(b, e) }),
	}

	multi.Execute(OfflineEvent{DeviceKey: "a", Reason: ReasonTimeout})
	assert.Len(t, a, 1)
	assert.Len(t, b, 1)
}

type executorFunc func(OfflineEvent)

func (f executorFunc) Execute(e OfflineEvent) { f(e) }
