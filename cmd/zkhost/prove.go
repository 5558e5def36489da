package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"xdao.co/zkhost/host"
	"xdao.co/zkhost/manifest"
)

// claimFlags are the boot manifest inputs shared by prove, execute and encode.
type claimFlags struct {
	raw manifest.Raw
}

var claimFlagNames = []string{"l1-head", "l2-output-root", "l2-claim", "l2-claim-block", "chain-id"}

func (c *claimFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&c.raw.L1Head, "l1-head", "", "L1 head block hash (32-byte hex)")
	fs.StringVar(&c.raw.L2OutputRoot, "l2-output-root", "", "agreed L2 output root (32-byte hex)")
	fs.StringVar(&c.raw.L2Claim, "l2-claim", "", "claimed L2 output root (32-byte hex)")
	fs.StringVar(&c.raw.L2ClaimBlock, "l2-claim-block", "", "L2 block number of the claim")
	fs.StringVar(&c.raw.ChainID, "chain-id", "", "L2 chain ID")
}

// check reports missing claim flags as a usage error. Malformed values are
// left to manifest.Build so they surface as Parse errors.
func (c *claimFlags) check(fs *pflag.FlagSet) error {
	var missing []string
	for _, name := range claimFlagNames {
		if !fs.Changed(name) {
			missing = append(missing, "--"+name)
		}
	}
	if len(missing) > 0 {
		return usagef("missing required flags: %v", missing)
	}
	return nil
}

func (a *app) proveCmd() *cobra.Command {
	var (
		claim     claimFlags
		resultOut string
		proofOut  string
	)
	cmd := &cobra.Command{
		Use:   "prove",
		Short: "Load the witness store, prove the claim and verify the proof",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := claim.check(cmd.Flags()); err != nil {
				return err
			}
			h, closeAll, err := a.newHost(cmd)
			if err != nil {
				return err
			}
			defer closeAll()

			res, runErr := h.RunRaw(cmd.Context(), claim.raw)
			if err := a.writeResult(resultOut, res); err != nil {
				return err
			}
			if runErr != nil {
				return runErr
			}
			if proofOut != "" {
				b, err := res.Receipt.MarshalBinary()
				if err != nil {
					return err
				}
				if err := os.WriteFile(proofOut, b, 0o644); err != nil {
					return err
				}
			}
			fmt.Fprintf(a.out, "state: %s\n", res.State)
			fmt.Fprintf(a.out, "program: %s\n", res.ProgramID)
			fmt.Fprintf(a.out, "input: %d bytes, %d preimages, digest %s\n", res.InputBytes, res.StoreEntries, res.InputDigest.Hex())
			fmt.Fprintf(a.out, "cycles: %d\n", res.Cycles())
			if id, err := res.Receipt.CID(); err == nil {
				fmt.Fprintf(a.out, "receipt: %s\n", id)
			}
			return nil
		},
	}
	claim.register(cmd.Flags())
	cmd.Flags().StringVar(&resultOut, "result-out", "", "write the JSON run result here, also on failure")
	cmd.Flags().StringVar(&proofOut, "proof-out", "", "write the CBOR receipt here")
	return cmd
}

func (a *app) executeCmd() *cobra.Command {
	var (
		claim     claimFlags
		resultOut string
	)
	cmd := &cobra.Command{
		Use:   "execute",
		Short: "Run the guest over the claim's input without proving",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := claim.check(cmd.Flags()); err != nil {
				return err
			}
			h, closeAll, err := a.newHost(cmd)
			if err != nil {
				return err
			}
			defer closeAll()

			res, runErr := h.ExecuteRaw(cmd.Context(), claim.raw)
			if err := a.writeResult(resultOut, res); err != nil {
				return err
			}
			if runErr != nil {
				return runErr
			}
			fmt.Fprintf(a.out, "state: %s\n", res.State)
			fmt.Fprintf(a.out, "input: %d bytes, %d preimages\n", res.InputBytes, res.StoreEntries)
			fmt.Fprintf(a.out, "cycles: %d\n", res.Report.Cycles)
			fmt.Fprintf(a.out, "public values: 0x%x\n", res.Report.PublicValues)
			return nil
		},
	}
	claim.register(cmd.Flags())
	cmd.Flags().StringVar(&resultOut, "result-out", "", "write the JSON run result here, also on failure")
	return cmd
}

func (a *app) encodeCmd() *cobra.Command {
	var (
		claim claimFlags
		out   string
	)
	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Write the encoded zkVM input for a claim without running anything",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := claim.check(cmd.Flags()); err != nil {
				return err
			}
			if out == "" {
				return usagef("missing required flag --out")
			}
			m, err := manifest.Build(claim.raw)
			if err != nil {
				return err
			}
			h, closeAll, err := a.newHost(cmd)
			if err != nil {
				return err
			}
			defer closeAll()

			buf, s, err := h.Encode(cmd.Context(), m)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, buf, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "wrote %d bytes (%d preimages) to %s\n", len(buf), s.Len(), out)
			return nil
		},
	}
	claim.register(cmd.Flags())
	cmd.Flags().StringVar(&out, "out", "", "output file")
	return cmd
}

// writeResult writes res as indented JSON when path is set.
func (a *app) writeResult(path string, res *host.Result) error {
	if path == "" || res == nil {
		return nil
	}
	b, err := json.MarshalIndent(res.RunResult(), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}
