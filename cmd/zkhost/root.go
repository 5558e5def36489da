package main

import (
	"fmt"
	"io"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"xdao.co/zkhost/config"
	"xdao.co/zkhost/host"
	"xdao.co/zkhost/internal/logging"
	"xdao.co/zkhost/internal/testguest"
	"xdao.co/zkhost/storage"
	"xdao.co/zkhost/storage/registry"
	"xdao.co/zkhost/zkvm"
	"xdao.co/zkhost/zkvm/grpcprover"
	"xdao.co/zkhost/zkvm/local"
)

type app struct {
	out    io.Writer
	errOut io.Writer
	log    zerolog.Logger

	configPath string
	logLevel   string
	logJSON    bool

	backend  string
	cacheDir string
	verify   string
	maxInput int
	timeout  time.Duration

	prover       string
	proverTarget string
	proverDial   time.Duration
	proverMaxMsg int
	scheme       string
	maxCycles    uint64
	programPath  string
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "zkhost",
		Short:         "Prepare witness input for an L2 block claim and prove it in a zkVM",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log, err := logging.New(a.errOut, logging.Options{Level: a.logLevel, JSON: a.logJSON})
			if err != nil {
				return usageError{err}
			}
			a.log = log
			return nil
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return usageError{err} })

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "JSON config file (flags override its values)")
	pf.StringVar(&a.logLevel, "log-level", "", "log level (trace, debug, info, warn, error); default $"+logging.EnvLevel+" or info")
	pf.BoolVar(&a.logJSON, "log-json", false, "log as JSON lines")

	pf.StringVar(&a.backend, "backend", "localfs", "witness store backend")
	pf.StringVar(&a.cacheDir, "cache-dir", "", "write-through local cache for stores loaded from the backend")
	pf.StringVar(&a.verify, "verify", "strict", "preimage verification: strict or permissive")
	pf.IntVar(&a.maxInput, "max-input-bytes", 0, "cap on the encoded input size; 0 means unlimited")
	pf.DurationVar(&a.timeout, "timeout", 0, "deadline for setup, proving and verification; 0 means none")

	pf.StringVar(&a.prover, "prover", config.ProverLocal, "prover backend: local or grpc")
	pf.StringVar(&a.proverTarget, "prover-target", "", "gRPC prover host:port (for --prover=grpc)")
	pf.DurationVar(&a.proverDial, "prover-dial-timeout", 5*time.Second, "gRPC prover dial timeout")
	pf.IntVar(&a.proverMaxMsg, "prover-max-msg-bytes", 0, "max gRPC prover message size; 0 uses grpc defaults")
	pf.StringVar(&a.scheme, "scheme", string(local.SchemeEd25519), "local prover receipt scheme: ed25519 or dilithium3")
	pf.Uint64Var(&a.maxCycles, "max-cycles", 0, "local prover cycle limit; 0 means none")
	pf.StringVar(&a.programPath, "program", "", "guest program image; the local prover defaults to its built-in guest")

	registry.RegisterFlags(pf, registry.UsageCLI)

	root.AddCommand(
		a.proveCmd(),
		a.executeCmd(),
		a.encodeCmd(),
		a.storeCmd(),
		a.backendsCmd(),
	)
	return root
}

func (a *app) backendsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List the linked witness store backends",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, b := range registry.List(registry.UsageCLI) {
				fmt.Fprintf(a.out, "%s\t%s\n", b.Name, b.Description)
			}
			return nil
		},
	}
}

// resolve merges the config file, if any, with explicitly set flags.
func (a *app) resolve(flags *pflag.FlagSet) (config.Config, error) {
	cfg := config.Default()
	if a.configPath != "" {
		var err error
		if cfg, err = config.LoadFile(a.configPath); err != nil {
			return cfg, usageError{err}
		}
	}
	if a.configPath == "" || flags.Changed("backend") {
		cfg.Sources = []config.SourceConfig{{Name: a.backend}}
	}
	if a.configPath == "" || flags.Changed("cache-dir") {
		cfg.CacheDir = a.cacheDir
	}
	if a.configPath == "" || flags.Changed("verify") {
		cfg.Verify = a.verify
	}
	if a.configPath == "" || flags.Changed("max-input-bytes") {
		cfg.MaxInputBytes = a.maxInput
	}
	if a.configPath == "" || flags.Changed("timeout") {
		cfg.Timeout = durationString(a.timeout)
	}
	p := &cfg.Prover
	if a.configPath == "" || flags.Changed("prover") {
		p.Backend = a.prover
	}
	if a.configPath == "" || flags.Changed("prover-target") {
		p.Target = a.proverTarget
	}
	if a.configPath == "" || flags.Changed("prover-dial-timeout") {
		p.DialTimeout = durationString(a.proverDial)
	}
	if a.configPath == "" || flags.Changed("prover-max-msg-bytes") {
		p.MaxMsgBytes = a.proverMaxMsg
	}
	if a.configPath == "" || flags.Changed("scheme") {
		p.Scheme = a.scheme
	}
	if a.configPath == "" || flags.Changed("max-cycles") {
		p.MaxCycles = a.maxCycles
	}
	if a.configPath == "" || flags.Changed("program") {
		p.Program = a.programPath
	}
	if err := cfg.Validate(); err != nil {
		return cfg, usageError{err}
	}
	return cfg, nil
}

// openSource opens the witness source. Flag-configured backends read their
// own registered flags; config-file sources read their config maps.
func (a *app) openSource(cfg config.Config, flags *pflag.FlagSet) (storage.Source, func() error, error) {
	if a.configPath != "" && !flags.Changed("backend") {
		return cfg.OpenSources(registry.UsageCLI)
	}
	src, closeSrc, err := registry.Open(a.backend, registry.UsageCLI)
	if err != nil {
		return nil, nil, err
	}
	mode, err := cfg.VerifyMode()
	if err != nil {
		if closeSrc != nil {
			_ = closeSrc()
		}
		return nil, nil, usageError{err}
	}
	if src, err = config.WithCache(src, cfg.CacheDir, mode); err != nil {
		if closeSrc != nil {
			_ = closeSrc()
		}
		return nil, nil, err
	}
	return src, closeSrc, nil
}

func (a *app) openProver(cfg config.ProverConfig) (zkvm.Prover, zkvm.Program, func() error, error) {
	switch cfg.Backend {
	case "", config.ProverLocal:
		scheme, err := local.ParseScheme(cfg.Scheme)
		if err != nil {
			return nil, zkvm.Program{}, nil, usageError{err}
		}
		lp := local.New(scheme)
		lp.MaxCycles = cfg.MaxCycles
		lp.Logger = a.log.With().Str("component", "prover").Logger()
		testguest.Register(lp)

		program := testguest.Program()
		if cfg.Program != "" {
			if program, err = zkvm.LoadProgram(cfg.Program); err != nil {
				return nil, zkvm.Program{}, nil, err
			}
		}
		return lp, program, nil, nil

	case config.ProverGRPC:
		dial, err := cfg.DialTimeoutDuration()
		if err != nil {
			return nil, zkvm.Program{}, nil, usageError{err}
		}
		program := testguest.Program()
		if cfg.Program != "" {
			if program, err = zkvm.LoadProgram(cfg.Program); err != nil {
				return nil, zkvm.Program{}, nil, err
			}
		}
		client, err := grpcprover.Dial(cfg.Target, grpcprover.DialOptions{Timeout: dial, MaxMsgBytes: cfg.MaxMsgBytes})
		if err != nil {
			return nil, zkvm.Program{}, nil, err
		}
		return client, program, client.Close, nil

	default:
		return nil, zkvm.Program{}, nil, usagef("unknown prover %q", cfg.Backend)
	}
}

// newHost wires a Host from flags and config. The returned close function
// releases the source and prover connections.
func (a *app) newHost(cmd *cobra.Command) (*host.Host, func() error, error) {
	flags := cmd.Flags()
	cfg, err := a.resolve(flags)
	if err != nil {
		return nil, nil, err
	}
	mode, err := cfg.VerifyMode()
	if err != nil {
		return nil, nil, usageError{err}
	}
	timeout, err := cfg.RunTimeout()
	if err != nil {
		return nil, nil, usageError{err}
	}

	src, closeSrc, err := a.openSource(cfg, flags)
	if err != nil {
		return nil, nil, err
	}
	prover, program, closeProver, err := a.openProver(cfg.Prover)
	if err != nil {
		if closeSrc != nil {
			_ = closeSrc()
		}
		return nil, nil, err
	}

	loader := storage.NewLoader(src)
	loader.Mode = mode
	loader.Logger = a.log.With().Str("component", "loader").Logger()

	h := &host.Host{
		Loader:        loader,
		Prover:        prover,
		Program:       program,
		MaxInputBytes: cfg.MaxInputBytes,
		Timeout:       timeout,
		Logger:        a.log,
	}
	closeAll := func() error {
		var result error
		for _, c := range []func() error{closeProver, closeSrc} {
			if c == nil {
				continue
			}
			if err := c(); err != nil {
				result = multierror.Append(result, err)
			}
		}
		return result
	}
	return h, closeAll, nil
}

func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return usagef("%s takes no arguments, got %q", cmd.CommandPath(), args)
	}
	return nil
}

func durationString(d time.Duration) string {
	if d == 0 {
		return ""
	}
	return d.String()
}
