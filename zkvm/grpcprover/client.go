package grpcprover

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"xdao.co/zkhost/zkvm"
)

// Client implements zkvm.Prover over the Prover gRPC service.
type Client struct {
	cc     *grpc.ClientConn
	client *proverClient
}

var _ zkvm.Prover = (*Client)(nil)

type DialOptions struct {
	// Timeout applies to the initial dial when non-zero.
	Timeout time.Duration

	// MaxMsgBytes sets both send/recv max sizes when non-zero. Stdin carries
	// the whole encoded input, so this usually needs raising.
	MaxMsgBytes int
}

func Dial(target string, opts DialOptions) (*Client, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if opts.MaxMsgBytes > 0 {
		dialOpts = append(dialOpts,
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(opts.MaxMsgBytes),
				grpc.MaxCallSendMsgSize(opts.MaxMsgBytes),
			),
		)
	}

	ctx := context.Background()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cc, err := grpc.DialContext(ctx, target, dialOpts...)
	if err != nil {
		return nil, err
	}
	return NewClient(cc), nil
}

// NewClient wraps an existing connection. Close closes it.
func NewClient(cc *grpc.ClientConn) *Client {
	return &Client{cc: cc, client: &proverClient{cc: cc}}
}

func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

func (c *Client) Setup(ctx context.Context, p zkvm.Program) (*zkvm.ProvingKey, *zkvm.VerifyingKey, error) {
	var out setupReply
	if err := c.roundTrip(ctx, "Setup", p, &out); err != nil {
		return nil, nil, err
	}
	if out.PK == nil || out.VK == nil {
		return nil, nil, fmt.Errorf("grpcprover: setup reply is missing keys")
	}
	return out.PK, out.VK, nil
}

func (c *Client) Execute(ctx context.Context, p zkvm.Program, stdin *zkvm.Stdin) (*zkvm.Report, error) {
	var out runReply
	if err := c.roundTrip(ctx, "Execute", executeRequest{Program: p, Stdin: stdin}, &out); err != nil {
		return nil, err
	}
	if out.Failure != nil {
		return nil, out.Failure.executionFailure()
	}
	if out.Report == nil {
		return nil, fmt.Errorf("grpcprover: execute reply is empty")
	}
	return out.Report, nil
}

func (c *Client) Prove(ctx context.Context, pk *zkvm.ProvingKey, stdin *zkvm.Stdin) (*zkvm.Receipt, error) {
	var out runReply
	if err := c.roundTrip(ctx, "Prove", proveRequest{PK: pk, Stdin: stdin}, &out); err != nil {
		return nil, err
	}
	if out.Failure != nil {
		return nil, out.Failure.executionFailure()
	}
	if out.Receipt == nil {
		return nil, fmt.Errorf("grpcprover: prove reply is empty")
	}
	return out.Receipt, nil
}

func (c *Client) Verify(ctx context.Context, r *zkvm.Receipt, vk *zkvm.VerifyingKey) error {
	var out verifyReply
	if err := c.roundTrip(ctx, "Verify", verifyRequest{Receipt: r, VK: vk}, &out); err != nil {
		return err
	}
	if !out.Valid {
		return fmt.Errorf("%w: %s", zkvm.ErrInvalidProof, out.Reason)
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, method string, in, out any) error {
	req, err := zkvm.Marshal(in)
	if err != nil {
		return err
	}
	resp, err := c.client.call(ctx, method, req)
	if err != nil {
		return mapRPC(err)
	}
	if err := zkvm.Unmarshal(resp, out); err != nil {
		return fmt.Errorf("grpcprover: decode %s reply: %w", method, err)
	}
	return nil
}

func mapRPC(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.NotFound:
		return fmt.Errorf("%w: %s", zkvm.ErrUnknownProgram, st.Message())
	case codes.DeadlineExceeded:
		return fmt.Errorf("grpcprover: %s: %w", st.Message(), context.DeadlineExceeded)
	case codes.Canceled:
		return fmt.Errorf("grpcprover: %s: %w", st.Message(), context.Canceled)
	default:
		return err
	}
}
