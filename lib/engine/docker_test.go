package engine

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/errdefs"
	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildContainerConfig(t *testing.T) {
	cfg, hostCfg, err := buildContainerConfig(CreateRequest{
		Image:         "lscr.io/linuxserver/webtop:ubuntu-xfce",
		Name:          "ubuntu-desktop-abcd1234",
		Env:           map[string]string{"TZ": "Etc/UTC", "PUID": "1000"},
		ExposedPorts:  []int{3000},
		PortBindings:  []PortBinding{{ContainerPort: 3000, HostPort: 3002}},
		Binds:         []string{"/data/volumes/ubuntu-desktop-abcd1234/config:/config"},
		Labels:        map[string]string{"hypedesk.instance": "abcd1234"},
		RestartPolicy: RestartUnlessStopped,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"PUID=1000", "TZ=Etc/UTC"}, cfg.Env)
	assert.Contains(t, cfg.ExposedPorts, nat.Port("3000/tcp"))
	assert.Equal(t, []nat.PortBinding{{HostPort: "3002"}}, hostCfg.PortBindings[nat.Port("3000/tcp")])
	assert.EqualValues(t, "unless-stopped", hostCfg.RestartPolicy.Name)
	assert.Equal(t, "abcd1234", cfg.Labels["hypedesk.instance"])
	assert.Len(t, hostCfg.Binds, 1)
}

func TestPublicPorts(t *testing.T) {
	ports := publicPorts([]types.Port{
		{PrivatePort: 3000, PublicPort: 3002, Type: "tcp"},
		{PrivatePort: 3000, PublicPort: 3002, Type: "tcp", IP: "::"},
		{PrivatePort: 22, Type: "tcp"},
		{PrivatePort: 3001, PublicPort: 3001, Type: "tcp"},
	})
	assert.Equal(t, []int{3001, 3002}, ports)
}

func TestHostPorts(t *testing.T) {
	pm := nat.PortMap{
		"3001/tcp": {{HostIP: "0.0.0.0", HostPort: "4001"}, {HostIP: "::", HostPort: "4001"}},
		"3000/tcp": {{HostIP: "0.0.0.0", HostPort: "4000"}},
		"22/tcp":   nil,
	}
	assert.Equal(t, []int{4000, 4001}, hostPorts(pm))
}

func TestMapError(t *testing.T) {
	assert.NoError(t, mapError(nil))
	assert.NoError(t, mapError(errdefs.NotModified(errors.New("already started"))))
	assert.ErrorIs(t, mapError(errdefs.NotFound(errors.New("no such container"))), ErrNotFound)
	assert.ErrorIs(t, mapError(errdefs.Unavailable(errors.New("daemon down"))), ErrUnavailable)

	other := errors.New("boom")
	assert.Equal(t, other, mapError(other))
}

func TestTrimName(t *testing.T) {
	assert.Equal(t, "hypedesk-ubuntu-desktop", trimName("/hypedesk-ubuntu-desktop"))
	assert.Equal(t, "plain", trimName("plain"))
}

// TestDockerInspectMissing talks to a real daemon when one is reachable.
func TestDockerInspectMissing(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	if _, err := os.Stat("/var/run/docker.sock"); os.IsNotExist(err) && os.Getenv("DOCKER_HOST") == "" {
		t.Skip("docker daemon not available")
	}

	d, err := NewDocker("")
	require.NoError(t, err)
	defer d.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := d.Ping(ctx); err != nil {
		t.Skipf("docker daemon not reachable: %v", err)
	}

	_, err = d.Inspect(ctx, "hypedesk-test-does-not-exist")
	assert.ErrorIs(t, err, ErrNotFound)
}
