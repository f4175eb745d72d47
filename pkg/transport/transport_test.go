package transport

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	kind  TargetKind
	id    string
	cmd   []string
	inbuf []byte
}

type fakeCluster struct {
	calls []call
	reply *Reply
	err   error
	block bool
}

func (f *fakeCluster) record(ctx context.Context, c call) (*Reply, error) {
	f.calls = append(f.calls, c)
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.reply != nil {
		return f.reply, nil
	}
	return &Reply{}, nil
}

func (f *fakeCluster) MonCommand(ctx context.Context, mon string, cmd []string, inbuf []byte) (*Reply, error) {
	return f.record(ctx, call{TargetMon, mon, cmd, inbuf})
}

func (f *fakeCluster) OSDCommand(ctx context.Context, osd int, cmd []string, inbuf []byte) (*Reply, error) {
	return f.record(ctx, call{TargetOSD, strconv.Itoa(osd), cmd, inbuf})
}

func (f *fakeCluster) PGCommand(ctx context.Context, pgid string, cmd []string, inbuf []byte) (*Reply, error) {
	return f.record(ctx, call{TargetPG, pgid, cmd, inbuf})
}

func TestParseTarget(t *testing.T) {
	tests := []struct {
		in      string
		want    Target
		wantErr bool
	}{
		{in: "mon", want: Target{Kind: TargetMon}},
		{in: "mon.a", want: Target{Kind: TargetMon, ID: "a"}},
		{in: "osd.3", want: Target{Kind: TargetOSD, ID: "3"}},
		{in: "pg.1.2f", want: Target{Kind: TargetPG, ID: "1.2f"}},
		{in: "osd.x", wantErr: true},
		{in: "pg.12", wantErr: true},
		{in: "mds.a", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTarget(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.in, got.String())
		})
	}
}

func TestSendCommand_Routing(t *testing.T) {
	f := &fakeCluster{}
	ctx := context.Background()

	_, err := SendCommand(ctx, f, Target{Kind: TargetOSD, ID: "7"}, []string{"x"}, nil, 0)
	require.NoError(t, err)
	_, err = SendCommand(ctx, f, Target{Kind: TargetPG, ID: "1.0"}, []string{"y"}, []byte("in"), 0)
	require.NoError(t, err)
	_, err = SendCommand(ctx, f, DefaultTarget, []string{"z"}, nil, 0)
	require.NoError(t, err)

	require.Len(t, f.calls, 3)
	assert.Equal(t, call{TargetOSD, "7", []string{"x"}, nil}, f.calls[0])
	assert.Equal(t, call{TargetPG, "1.0", []string{"y"}, []byte("in")}, f.calls[1])
	assert.Equal(t, TargetMon, f.calls[2].kind)
}

func TestSendCommand_WrapsErrors(t *testing.T) {
	cause := errors.New("connection refused")
	f := &fakeCluster{err: cause}

	_, err := SendCommand(context.Background(), f, DefaultTarget, []string{"osd", "tree"}, nil, 0)
	var ce *CommandError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "osd tree", ce.Command)
	assert.ErrorIs(t, err, cause)
}

func TestSendCommand_Timeout(t *testing.T) {
	f := &fakeCluster{block: true}

	_, err := SendCommand(context.Background(), f, DefaultTarget, []string{"slow"}, nil, 10*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestJSONCommand(t *testing.T) {
	f := &fakeCluster{}

	_, err := JSONCommand(context.Background(), f, DefaultTarget, "osd pool create",
		map[string]any{"pool": "rbd", "pg_num": int64(128)}, nil, 0)
	require.NoError(t, err)

	require.Len(t, f.calls, 1)
	require.Len(t, f.calls[0].cmd, 1)
	var sent map[string]any
	require.NoError(t, json.Unmarshal([]byte(f.calls[0].cmd[0]), &sent))
	assert.Equal(t, map[string]any{"prefix": "osd pool create", "pool": "rbd", "pg_num": float64(128)}, sent)
}

func TestJSONCommand_OSDTargetArgument(t *testing.T) {
	f := &fakeCluster{}

	_, err := JSONCommand(context.Background(), f, Target{Kind: TargetOSD, ID: "0"}, "bench",
		map[string]any{"target": "osd.4"}, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, "4", f.calls[0].id)
	assert.NotContains(t, f.calls[0].cmd[0], "target")

	// not an osd name: keep the given target
	_, err = JSONCommand(context.Background(), f, Target{Kind: TargetOSD, ID: "2"}, "bench",
		map[string]any{"target": "mon.a"}, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, "2", f.calls[1].id)
}

func TestJSONCommand_NoPrefix(t *testing.T) {
	_, err := JSONCommand(context.Background(), &fakeCluster{}, DefaultTarget, "", nil, nil, 0)
	var ce *CommandError
	assert.True(t, errors.As(err, &ce))
}

func TestHTTPCluster(t *testing.T) {
	var got request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/request", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get(APIKeyHeader))
		assert.Equal(t, "client.admin", r.Header.Get("X-Ceph-User"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		_ = json.NewEncoder(w).Encode(response{Status: 0, Outbuf: `{"ok":true}`, Outs: "done"})
	}))
	defer srv.Close()

	c, err := NewHTTPCluster(srv.URL+"/", WithAPIKey("secret"), WithUser("client.admin"), WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	reply, err := c.OSDCommand(context.Background(), 3, []string{`{"prefix":"status"}`}, []byte("payload"))
	require.NoError(t, err)
	assert.Equal(t, 0, reply.Status)
	assert.JSONEq(t, `{"ok":true}`, string(reply.Out))
	assert.Equal(t, "done", reply.Message)

	assert.Equal(t, "osd.3", got.Target)
	assert.Equal(t, []string{`{"prefix":"status"}`}, got.Cmd)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("payload")), got.Inbuf)
}

func TestHTTPCluster_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"bad key"}`))
	}))
	defer srv.Close()

	c, err := NewHTTPCluster(srv.URL)
	require.NoError(t, err)

	_, err = SendCommand(context.Background(), c, DefaultTarget, []string{"status"}, nil, time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 401: bad key")

	_, err = NewHTTPCluster("")
	assert.Error(t, err)
}

func TestFetchDescriptions(t *testing.T) {
	f := &fakeCluster{reply: &Reply{Out: []byte(`{"cmd001":{"sig":["status"]}}`)}}

	data, err := FetchDescriptions(context.Background(), f, DefaultTarget, 0)
	require.NoError(t, err)
	assert.JSONEq(t, `{"cmd001":{"sig":["status"]}}`, string(data))
	assert.JSONEq(t, `{"prefix":"get_command_descriptions"}`, f.calls[0].cmd[0])

	f = &fakeCluster{reply: &Reply{Status: -22, Message: "EINVAL"}}
	_, err = FetchDescriptions(context.Background(), f, DefaultTarget, 0)
	var ce *CommandError
	require.True(t, errors.As(err, &ce))
	assert.Contains(t, err.Error(), "EINVAL")
}
