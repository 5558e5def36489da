// Command zkhost-stored serves witness stores, and optionally the built-in
// local prover, over gRPC.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"google.golang.org/grpc"

	"xdao.co/zkhost/internal/logging"
	"xdao.co/zkhost/internal/testguest"
	"xdao.co/zkhost/storage"
	"xdao.co/zkhost/storage/grpckv"
	"xdao.co/zkhost/storage/registry"
	"xdao.co/zkhost/zkvm/grpcprover"
	"xdao.co/zkhost/zkvm/local"

	_ "xdao.co/zkhost/storage/ipfs"
	_ "xdao.co/zkhost/storage/localfs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	listen       string
	backend      string
	listBackends bool
	serveProver  bool
	scheme       string
	maxCycles    uint64
	maxMsgBytes  int
	logLevel     string
	logJSON      bool
}

func run(ctx context.Context, args []string, out, errOut io.Writer) int {
	fs := pflag.NewFlagSet("zkhost-stored", pflag.ContinueOnError)
	fs.SetOutput(errOut)
	var o options
	fs.StringVar(&o.listen, "listen", "127.0.0.1:7777", "listen address")
	fs.StringVar(&o.backend, "backend", "localfs", "witness store backend")
	fs.BoolVar(&o.listBackends, "list-backends", false, "list supported backends and exit")
	fs.BoolVar(&o.serveProver, "serve-prover", false, "also serve the built-in local prover")
	fs.StringVar(&o.scheme, "scheme", string(local.SchemeEd25519), "local prover receipt scheme (with --serve-prover)")
	fs.Uint64Var(&o.maxCycles, "max-cycles", 0, "local prover cycle limit; 0 means none")
	fs.IntVar(&o.maxMsgBytes, "max-msg-bytes", 0, "max gRPC message size; 0 uses grpc defaults")
	fs.StringVar(&o.logLevel, "log-level", "", "log level")
	fs.BoolVar(&o.logJSON, "log-json", false, "log as JSON lines")
	registry.RegisterFlags(fs, registry.UsageDaemon)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}
	if o.listBackends {
		for _, b := range registry.List(registry.UsageDaemon) {
			if b.Description == "" {
				fmt.Fprintf(out, "%s\n", b.Name)
				continue
			}
			fmt.Fprintf(out, "%s\t%s\n", b.Name, b.Description)
		}
		return 0
	}

	log, err := logging.New(errOut, logging.Options{Level: o.logLevel, JSON: o.logJSON})
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}

	src, closeFn, err := registry.Open(o.backend, registry.UsageDaemon)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	if closeFn != nil {
		defer closeFn()
	}

	s, err := newServer(src, o, log)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}

	lis, err := net.Listen("tcp", o.listen)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	defer lis.Close()

	go func() {
		<-ctx.Done()
		s.GracefulStop()
	}()

	log.Info().Str("addr", lis.Addr().String()).Str("backend", o.backend).Bool("prover", o.serveProver).Msg("listening")
	if err := s.Serve(lis); err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	return 0
}

// newServer registers the store service, and the prover service when
// requested, on a fresh grpc.Server.
func newServer(src storage.Source, o options, log zerolog.Logger) (*grpc.Server, error) {
	var opts []grpc.ServerOption
	if o.maxMsgBytes > 0 {
		opts = append(opts, grpc.MaxRecvMsgSize(o.maxMsgBytes), grpc.MaxSendMsgSize(o.maxMsgBytes))
	}
	s := grpc.NewServer(opts...)
	grpckv.RegisterPreimageStoreServer(s, &grpckv.Server{
		Source: src,
		Logger: log.With().Str("service", "store").Logger(),
	})

	if o.serveProver {
		scheme, err := local.ParseScheme(o.scheme)
		if err != nil {
			return nil, err
		}
		lp := local.New(scheme)
		lp.MaxCycles = o.maxCycles
		lp.Logger = log.With().Str("component", "prover").Logger()
		testguest.Register(lp)
		grpcprover.RegisterProverServer(s, &grpcprover.Server{
			Prover: lp,
			Logger: log.With().Str("service", "prover").Logger(),
		})
	}
	return s, nil
}
