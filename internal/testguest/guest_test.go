package testguest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xdao.co/zkhost/codec"
	"xdao.co/zkhost/manifest"
	"xdao.co/zkhost/preimage"
	"xdao.co/zkhost/storage"
	"xdao.co/zkhost/zkvm"
	"xdao.co/zkhost/zkvm/local"
)

func TestGuestCommitsComputedClaim(t *testing.T) {
	s := storage.FromMap(map[preimage.Key][]byte{
		preimage.LocalKey(2): []byte("second"),
		preimage.LocalKey(1): []byte("first"),
	})
	var m manifest.BootInfo
	m.L2OutputRoot[0] = 0xbb
	m.L2ClaimBlock = 5
	m.L2Claim = Claim(m.L2OutputRoot, s)

	buf, err := codec.Encode(m, s)
	require.NoError(t, err)
	var stdin zkvm.Stdin
	require.NoError(t, stdin.Write(m))
	stdin.WriteSlice(buf)

	p := local.New(local.SchemeEd25519)
	Register(p)
	rep, err := p.Execute(context.Background(), Program(), &stdin)
	require.NoError(t, err)
	c := m.Commitment()
	assert.Equal(t, c[:], rep.PublicValues)
	assert.NotZero(t, rep.Cycles)

	// A claim the witness does not support commits a different record.
	wrong := m
	wrong.L2Claim[0] ^= 1
	buf, err = codec.Encode(wrong, s)
	require.NoError(t, err)
	stdin = zkvm.Stdin{}
	require.NoError(t, stdin.Write(wrong))
	stdin.WriteSlice(buf)
	rep, err = p.Execute(context.Background(), Program(), &stdin)
	require.NoError(t, err)
	wc := wrong.Commitment()
	assert.NotEqual(t, wc[:], rep.PublicValues)
	assert.Equal(t, c[:], rep.PublicValues)
}

func TestGuestRejectsMismatchedBootInfo(t *testing.T) {
	var m manifest.BootInfo
	buf, err := codec.Encode(m, nil)
	require.NoError(t, err)

	other := m
	other.ChainID = 1
	var stdin zkvm.Stdin
	require.NoError(t, stdin.Write(other))
	stdin.WriteSlice(buf)

	p := local.New(local.SchemeEd25519)
	Register(p)
	_, err = p.Execute(context.Background(), Program(), &stdin)
	var failure *zkvm.ExecutionFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, 1, failure.ExitCode)
}
