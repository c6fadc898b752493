package ports

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/onkernel/hypedesk/lib/engine/enginetest"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocate(t *testing.T) {
	tests := []struct {
		name     string
		declared []int
		used     []int
		want     []int
	}{
		{"free", []int{3000}, nil, []int{3000}},
		{"skip used", []int{3001}, []int{3001, 3002}, []int{3003}},
		{"order preserved", []int{8080, 3000}, []int{3000}, []int{8080, 3001}},
		{"duplicates within call", []int{3000, 3000, 3000}, []int{3001}, []int{3000, 3002, 3003}},
		{"adjacent declared", []int{3000, 3001}, []int{3000}, []int{3001, 3002}},
		{"empty", nil, []int{3000}, []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			used := map[int]bool{}
			for _, p := range tt.used {
				used[p] = true
			}
			got, err := Allocate(tt.declared, used)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			for _, p := range got {
				assert.False(t, used[p], "port %d was already used", p)
			}
			assert.Len(t, used, len(tt.used), "used set must not be modified")
		})
	}
}

func TestAllocateExhausted(t *testing.T) {
	used := map[int]bool{}
	for p := 5000; p < 5000+Window; p++ {
		used[p] = true
	}

	got, err := Allocate([]int{4000, 5000}, used)
	assert.ErrorIs(t, err, ErrNoPortAvailable)
	assert.Nil(t, got, "no partial result on failure")

	// One free port just past the window does not help.
	delete(used, 5000+Window)
	_, err = Allocate([]int{5000}, used)
	assert.ErrorIs(t, err, ErrNoPortAvailable)
}

func TestAllocateTopOfRange(t *testing.T) {
	got, err := Allocate([]int{65535}, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{65535}, got)

	_, err = Allocate([]int{65535}, map[int]bool{65535: true})
	assert.ErrorIs(t, err, ErrNoPortAvailable)
}

func TestAllocatorUsesRuntimePorts(t *testing.T) {
	fake := enginetest.New()
	fake.AddContainer("a", "img", true, 3001)
	fake.AddContainer("b", "img", false, 3002)

	lease, err := NewAllocator(fake).Allocate(context.Background(), []int{3001}, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{3003}, lease.Ports)
}

func TestAllocatorSeesStoppedContainerBindings(t *testing.T) {
	fake := enginetest.New()
	id := fake.AddContainer("stopped", "img", false, 3000, 3001)

	snaps, err := fake.ListContainers(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	require.Empty(t, snaps[0].Ports, "list output hides bindings of stopped containers")

	lease, err := NewAllocator(fake).Allocate(context.Background(), []int{3000}, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{3002}, lease.Ports)

	// Removing the container frees its bindings.
	fake.Vanish(id)
	lease, err = NewAllocator(fake).Allocate(context.Background(), []int{3000}, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{3000}, lease.Ports)
}

func TestAllocatorIncludesClaimedPorts(t *testing.T) {
	claims := ClaimsFunc(func(ctx context.Context) ([]int, error) {
		return []int{3000, 3002}, nil
	})

	lease, err := NewAllocator(enginetest.New()).Allocate(context.Background(), []int{3000, 3000}, claims)
	require.NoError(t, err)
	assert.Equal(t, []int{3001, 3003}, lease.Ports)
}

func TestAllocatorClaimsError(t *testing.T) {
	claims := ClaimsFunc(func(ctx context.Context) ([]int, error) {
		return nil, errors.New("database is locked")
	})

	_, err := NewAllocator(enginetest.New()).Allocate(context.Background(), []int{3000}, claims)
	assert.ErrorContains(t, err, "database is locked")
}

func TestAllocatorLeaseHoldsPorts(t *testing.T) {
	a := NewAllocator(enginetest.New())
	ctx := context.Background()

	first, err := a.Allocate(ctx, []int{3000}, nil)
	require.NoError(t, err)
	second, err := a.Allocate(ctx, []int{3000}, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{3000}, first.Ports)
	assert.Equal(t, []int{3001}, second.Ports)
	assert.Equal(t, 2, a.Reserved())

	first.Release()
	first.Release()
	assert.Equal(t, 1, a.Reserved())

	third, err := a.Allocate(ctx, []int{3000}, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{3000}, third.Ports)

	second.Release()
	third.Release()
	assert.Zero(t, a.Reserved())

	var nilLease *Lease
	assert.NotPanics(t, nilLease.Release)
}

func TestAllocatorConcurrentDistinct(t *testing.T) {
	a := NewAllocator(enginetest.New())
	ctx := context.Background()

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		leased []int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lease, err := a.Allocate(ctx, []int{3000, 3001}, nil)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			leased = append(leased, lease.Ports...)
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, leased, 40)
	assert.Len(t, lo.Uniq(leased), 40, "no port leased twice")
}

func TestAllocatorListError(t *testing.T) {
	fake := enginetest.New()
	fake.ListErr = errors.New("daemon went away")

	a := NewAllocator(fake)
	_, err := a.Allocate(context.Background(), []int{3000}, nil)
	assert.ErrorContains(t, err, "daemon went away")
	assert.Zero(t, a.Reserved(), "failed allocations lease nothing")
}
