package main

import (
	"bytes"
	"context"
	"net"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"xdao.co/zkhost/host"
	"xdao.co/zkhost/internal/testguest"
	"xdao.co/zkhost/manifest"
	"xdao.co/zkhost/preimage"
	"xdao.co/zkhost/storage"
	"xdao.co/zkhost/storage/grpckv"
	"xdao.co/zkhost/zkvm/grpcprover"
)

func witness() *storage.Store {
	return storage.FromMap(map[preimage.Key][]byte{
		preimage.KeccakKey([]byte("header")): []byte("header"),
		preimage.LocalKey(1):                 {1, 2, 3},
	})
}

func dial(t *testing.T, o options) *grpc.ClientConn {
	t.Helper()
	s, err := newServer(storage.MapSource{100: witness()}, o, zerolog.Nop())
	require.NoError(t, err)

	lis := bufconn.Listen(1024 * 1024)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	cc, err := grpc.DialContext(context.Background(), "bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.Dial() }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cc.Close() })
	return cc
}

func TestServeStoreAndProver(t *testing.T) {
	cc := dial(t, options{serveProver: true, scheme: "ed25519"})

	m, err := manifest.Build(manifest.Raw{
		L1Head:       "0x" + strings.Repeat("aa", 32),
		L2OutputRoot: "0x" + strings.Repeat("bb", 32),
		L2Claim:      "0x" + strings.Repeat("cc", 32),
		L2ClaimBlock: "100",
		ChainID:      "10",
	})
	require.NoError(t, err)
	m.L2Claim = testguest.Claim(m.L2OutputRoot, witness())

	h := &host.Host{
		Loader:  storage.NewLoader(grpckv.NewClient(cc)),
		Prover:  grpcprover.NewClient(cc),
		Program: testguest.Program(),
	}
	res, err := h.Run(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, host.StateVerified, res.State)
	assert.Equal(t, 2, res.StoreEntries)
}

func TestProverServiceIsOptional(t *testing.T) {
	cc := dial(t, options{})

	s, err := grpckv.NewClient(cc).Load(context.Background(), 100)
	require.NoError(t, err)
	assert.True(t, s.Equal(witness()))

	_, _, err = grpcprover.NewClient(cc).Setup(context.Background(), testguest.Program())
	assert.Error(t, err)
}

func TestNewServerRejectsUnknownScheme(t *testing.T) {
	_, err := newServer(storage.MapSource{}, options{serveProver: true, scheme: "rsa"}, zerolog.Nop())
	assert.Error(t, err)
}

func TestListBackends(t *testing.T) {
	var out, errOut bytes.Buffer
	code := run(context.Background(), []string{"--list-backends"}, &out, &errOut)
	assert.Equal(t, 0, code)
	assert.Contains(t, out.String(), "localfs")
	assert.NotContains(t, out.String(), "grpc")
}

func TestBadFlagsAreUsageErrors(t *testing.T) {
	var out, errOut bytes.Buffer
	assert.Equal(t, 2, run(context.Background(), []string{"--no-such-flag"}, &out, &errOut))
	assert.Equal(t, 2, run(context.Background(), []string{"--backend", "nope"}, &out, &errOut))
}
