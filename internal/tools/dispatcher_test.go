package tools

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/digitalocean/godo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/mcp-digitalocean/internal/doclient"
	"github.com/soyeahso/mcp-digitalocean/internal/doclient/fakeapi"
	"github.com/soyeahso/mcp-digitalocean/internal/domain"
	"github.com/soyeahso/mcp-digitalocean/internal/hooks"
	"github.com/soyeahso/mcp-digitalocean/internal/logging"
	"github.com/soyeahso/mcp-digitalocean/internal/mcp"
	"github.com/soyeahso/mcp-digitalocean/internal/provision"
)

func newTestDispatcher(t *testing.T, opts ...Option) (*Dispatcher, *fakeapi.Server) {
	t.Helper()
	srv := fakeapi.New(t)
	c, err := doclient.New(fakeapi.Token,
		doclient.WithBaseURL(srv.URL),
		doclient.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	opts = append([]Option{
		WithLogger(logging.New(nil, "silent")),
		WithWaitConfig(provision.Config{Interval: 5 * time.Millisecond, Deadline: 2 * time.Second}),
	}, opts...)
	return New(c, opts...), srv
}

func TestToolsMatchHandlers(t *testing.T) {
	d, _ := newTestDispatcher(t)

	tools := d.Tools()
	require.Len(t, tools, len(d.handlers))
	for _, tool := range tools {
		_, ok := d.handlers[tool.Name]
		assert.True(t, ok, "no handler for %s", tool.Name)
		assert.Equal(t, "object", tool.InputSchema.Type)
		for _, req := range tool.InputSchema.Required {
			assert.Contains(t, tool.InputSchema.Properties, req, "%s requires undeclared %s", tool.Name, req)
		}
	}
}

func TestUnknownTool(t *testing.T) {
	d, srv := newTestDispatcher(t)

	_, err := d.Call(context.Background(), "reboot_droplet", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Empty(t, srv.Requests())
}

func TestArgumentErrorsNeverReachNetwork(t *testing.T) {
	tests := []struct {
		name string
		tool string
		args mcp.Args
		want error
	}{
		{"get droplet missing id", GetDroplet, mcp.Args{}, domain.ErrConfiguration},
		{"get droplet string id", GetDroplet, mcp.Args{"droplet_id": "42"}, domain.ErrValidation},
		{"get droplet negative id", GetDroplet, mcp.Args{"droplet_id": float64(-1)}, domain.ErrValidation},
		{"delete droplet missing id", DeleteDroplet, mcp.Args{}, domain.ErrConfiguration},
		{"delete droplet bad flag", DeleteDroplet, mcp.Args{"droplet_id": float64(1), "ignore_not_found": "yes"}, domain.ErrValidation},
		{"get snapshot missing id", GetSnapshot, mcp.Args{}, domain.ErrConfiguration},
		{"list sizes bad flag", ListSizes, mcp.Args{"gpu_only": "true"}, domain.ErrValidation},
		{"list snapshots bad type", ListSnapshots, mcp.Args{"resource_type": "image"}, domain.ErrValidation},
		{"list droplets numeric tag", ListDroplets, mcp.Args{"tag": float64(3)}, domain.ErrValidation},
		{"create missing image", CreateDroplet, mcp.Args{"name": "t1", "region": "nyc1", "size": "s"}, domain.ErrConfiguration},
		{"create bad tags", CreateDroplet, mcp.Args{"name": "t1", "region": "nyc1", "size": "s", "image": "i", "tags": float64(1)}, domain.ErrValidation},
		{"create bad monitoring", CreateDroplet, mcp.Args{"name": "t1", "region": "nyc1", "size": "s", "image": "i", "monitoring": "on"}, domain.ErrValidation},
		{"wait zero interval", WaitForDroplet, mcp.Args{"droplet_id": float64(1), "interval_seconds": float64(0)}, domain.ErrValidation},
		{"wait bad timeout", WaitForDroplet, mcp.Args{"droplet_id": float64(1), "timeout_seconds": "soon"}, domain.ErrValidation},
		{"wait huge timeout", WaitForDroplet, mcp.Args{"droplet_id": float64(1), "timeout_seconds": 1e12}, domain.ErrValidation},
		{"wait sub-nanosecond interval", WaitForDroplet, mcp.Args{"droplet_id": float64(1), "interval_seconds": 1e-12}, domain.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, srv := newTestDispatcher(t)
			_, err := d.Call(context.Background(), tt.tool, tt.args)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, srv.Requests())
		})
	}
}

func TestCreateDropletNeverWaits(t *testing.T) {
	d, srv := newTestDispatcher(t)

	res, err := d.Call(context.Background(), CreateDroplet, mcp.Args{
		"name":     "t1",
		"region":   "nyc1",
		"size":     "g-2vcpu-16gb",
		"image":    "snap-1",
		"ssh_keys": []any{"12", "ab:cd"},
		"tags":     "ml, gpu",
	})
	require.NoError(t, err)

	st := res.(*domain.DropletState)
	assert.Equal(t, domain.StatusNew, st.Status)
	assert.Len(t, srv.Requests(), 1)

	creates := srv.Creates()
	require.Len(t, creates, 1)
	assert.True(t, creates[0].PrivateNetworking, "private networking defaults on")
	assert.False(t, creates[0].IPv6)
	assert.Equal(t, []string{"ml", "gpu"}, creates[0].Tags)
}

func TestDeleteDropletIgnoreNotFound(t *testing.T) {
	d, srv := newTestDispatcher(t)
	existing := srv.AddDroplet(godo.Droplet{Name: "old"})

	res, err := d.Call(context.Background(), DeleteDroplet, mcp.Args{"droplet_id": float64(existing.ID)})
	require.NoError(t, err)
	assert.Equal(t, "deleted", res.(map[string]any)["status"])

	_, err = d.Call(context.Background(), DeleteDroplet, mcp.Args{"droplet_id": float64(existing.ID)})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	res, err = d.Call(context.Background(), DeleteDroplet, mcp.Args{"droplet_id": float64(existing.ID), "ignore_not_found": true})
	require.NoError(t, err)
	assert.Equal(t, "not_found", res.(map[string]any)["status"])
}

func TestDeleteDropletIgnoreNotFoundKeepsOtherErrors(t *testing.T) {
	d, srv := newTestDispatcher(t)
	srv.InjectFault("DELETE", "/v2/droplets/7", fakeapi.Fault{Status: 403}, 1)

	_, err := d.Call(context.Background(), DeleteDroplet, mcp.Args{"droplet_id": float64(7), "ignore_not_found": true})
	assert.ErrorIs(t, err, domain.ErrAuthentication)
}

func TestReadTools(t *testing.T) {
	d, srv := newTestDispatcher(t)
	srv.AddRegion(godo.Region{Slug: "nyc1"})
	srv.AddSize(godo.Size{Slug: "gpu-h100x1-80gb", Description: "GPU"})
	srv.AddSize(godo.Size{Slug: "s-1vcpu-1gb"})
	srv.AddSnapshot(godo.Snapshot{ID: "snap-1", Name: "base", ResourceType: "droplet"})
	srv.AddKey(godo.Key{ID: 5, Fingerprint: "ff"})
	drop := srv.AddDroplet(godo.Droplet{Name: "web", Tags: []string{"prod"}})

	ctx := context.Background()

	res, err := d.Call(ctx, ListRegions, nil)
	require.NoError(t, err)
	assert.Len(t, res.([]godo.Region), 1)

	res, err = d.Call(ctx, ListSizes, mcp.Args{"gpu_only": true})
	require.NoError(t, err)
	assert.Len(t, res.([]godo.Size), 1)

	res, err = d.Call(ctx, ListSnapshots, mcp.Args{"resource_type": "droplet"})
	require.NoError(t, err)
	assert.Len(t, res.([]domain.SnapshotInfo), 1)

	res, err = d.Call(ctx, GetSnapshot, mcp.Args{"snapshot_id": "snap-1"})
	require.NoError(t, err)
	assert.Equal(t, "base", res.(*domain.SnapshotInfo).Name)

	res, err = d.Call(ctx, ListDroplets, mcp.Args{"tag": "prod"})
	require.NoError(t, err)
	assert.Len(t, res.([]domain.DropletState), 1)

	res, err = d.Call(ctx, GetDroplet, mcp.Args{"droplet_id": float64(drop.ID)})
	require.NoError(t, err)
	assert.Equal(t, "web", res.(*domain.DropletState).Name)

	res, err = d.Call(ctx, ListSSHKeys, nil)
	require.NoError(t, err)
	assert.Len(t, res.([]godo.Key), 1)

	res, err = d.Call(ctx, GetAccount, nil)
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", res.(*godo.Account).Email)
}

func TestCreateThenWaitEndToEnd(t *testing.T) {
	m := hooks.NewManager(logging.New(nil, "silent"))
	var created []int
	m.On(hooks.EventDropletCreated, "test", func(_ context.Context, p hooks.Payload) error {
		created = append(created, p.Data["droplet_id"].(int))
		return nil
	})

	d, srv := newTestDispatcher(t, WithHooks(m))
	srv.SetNextID(501)
	srv.SetStatusSequence(501, "new", "new", "active")
	srv.SetNetworks(501, godo.Networks{V4: []godo.NetworkV4{
		{IPAddress: "1.2.3.4", Type: "public"},
		{IPAddress: "10.0.0.2", Type: "private"},
	}})
	ctx := context.Background()

	res, err := d.Call(ctx, CreateDroplet, mcp.Args{
		"name": "t1", "region": "nyc1", "size": "g-2vcpu-16gb", "image": "snap-1",
	})
	require.NoError(t, err)
	st := res.(*domain.DropletState)
	assert.Equal(t, "new", st.Status)
	assert.Equal(t, []int{501}, created)

	res, err = d.Call(ctx, WaitForDroplet, mcp.Args{"droplet_id": float64(st.ID), "interval_seconds": 0.01})
	require.NoError(t, err)

	out := res.(provision.Outcome)
	assert.Equal(t, provision.StateActive, out.State)
	assert.Equal(t, 3, out.Observations)
	assert.Equal(t, "1.2.3.4", out.Droplet.PublicIPv4())
	assert.Equal(t, "10.0.0.2", out.Droplet.PrivateIPv4())
	assert.Equal(t, 1, srv.Count("POST", "/v2/droplets"))
	assert.Equal(t, 3, srv.Count("GET", "/v2/droplets/501"))
}

func TestWaitForDropletFailureCarriesOutcome(t *testing.T) {
	d, srv := newTestDispatcher(t)
	drop := srv.AddDroplet(godo.Droplet{Name: "bad", Status: "new"})
	srv.SetStatusSequence(drop.ID, "new", "error")

	_, err := d.Call(context.Background(), WaitForDroplet, mcp.Args{"droplet_id": float64(drop.ID)})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrProvisioningFailed)

	var pe *mcp.PayloadError
	require.ErrorAs(t, err, &pe)
	out := pe.Payload.(provision.Outcome)
	assert.Equal(t, provision.StateFailed, out.State)
	assert.Equal(t, "error", out.Droplet.Status)
}

func TestWaitForDropletTimeout(t *testing.T) {
	d, srv := newTestDispatcher(t)
	drop := srv.AddDroplet(godo.Droplet{Name: "slow", Status: "new"})

	_, err := d.Call(context.Background(), WaitForDroplet, mcp.Args{
		"droplet_id":       float64(drop.ID),
		"interval_seconds": 0.02,
		"timeout_seconds":  0.1,
	})
	assert.ErrorIs(t, err, domain.ErrProvisioningTimedOut)

	var pe *mcp.PayloadError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, provision.StateTimedOut, pe.Payload.(provision.Outcome).State)
}

func TestServeOverStdio(t *testing.T) {
	d, srv := newTestDispatcher(t)
	srv.SetNextID(77)
	srv.SetStatusSequence(77, "active")

	lines := []string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"create_droplet","arguments":{"name":"t1","region":"nyc1","size":"g-2vcpu-16gb","image":"snap-1"}}}`,
		`{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"wait_for_droplet","arguments":{"droplet_id":77,"interval_seconds":0.01}}}`,
		`{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"get_droplet","arguments":{}}}`,
	}
	var out bytes.Buffer
	s := mcp.NewServer(d, mcp.WithIO(strings.NewReader(strings.Join(lines, "\n")+"\n"), &out))
	require.NoError(t, s.Run(context.Background()))

	var resps []map[string]any
	sc := bufio.NewScanner(&out)
	for sc.Scan() {
		var r map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &r))
		resps = append(resps, r)
	}
	require.Len(t, resps, 5)

	text := func(i int) (string, bool) {
		res := resps[i]["result"].(map[string]any)
		content := res["content"].([]any)
		isErr, _ := res["isError"].(bool)
		return content[0].(map[string]any)["text"].(string), isErr
	}

	tools := resps[1]["result"].(map[string]any)["tools"].([]any)
	assert.Len(t, tools, 11)

	created, isErr := text(2)
	assert.False(t, isErr)
	assert.Contains(t, created, `"status": "new"`)
	assert.Contains(t, created, `"id": `+strconv.Itoa(77))

	waited, isErr := text(3)
	assert.False(t, isErr)
	assert.Contains(t, waited, `"state": "active"`)

	missing, isErr := text(4)
	assert.True(t, isErr)
	assert.Contains(t, missing, "ConfigurationError")
}

func TestSeconds(t *testing.T) {
	tests := []struct {
		name    string
		args    mcp.Args
		want    time.Duration
		wantErr bool
	}{
		{"default", mcp.Args{}, 7 * time.Second, false},
		{"fractional", mcp.Args{"timeout_seconds": 0.25}, 250 * time.Millisecond, false},
		{"integer", mcp.Args{"timeout_seconds": float64(600)}, 10 * time.Minute, false},
		{"negative", mcp.Args{"timeout_seconds": -1.0}, 0, true},
		{"overflows duration", mcp.Args{"timeout_seconds": 1e12}, 0, true},
		{"rounds to zero", mcp.Args{"timeout_seconds": 1e-12}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := seconds(tt.args, "timeout_seconds", 7*time.Second)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, domain.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
