package main

import (
	"bufio"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"xdao.co/zkhost/preimage"
	"xdao.co/zkhost/storage"
	"xdao.co/zkhost/storage/bundle"
)

func (a *app) storeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Manage witness stores",
	}
	cmd.AddCommand(a.storeImportCmd(), a.storeExportCmd(), a.storeInspectCmd())
	return cmd
}

// source opens the configured witness source without a prover.
func (a *app) source(cmd *cobra.Command) (storage.Source, func(), error) {
	cfg, err := a.resolve(cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	src, closeSrc, err := a.openSource(cfg, cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	return src, func() {
		if closeSrc != nil {
			_ = closeSrc()
		}
	}, nil
}

func (a *app) storeImportCmd() *cobra.Command {
	var (
		height uint64
		in     string
		verify bool
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a TAR bundle as the store for a block",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("height") || in == "" {
				return usagef("store import requires --height and --in")
			}
			src, done, err := a.source(cmd)
			if err != nil {
				return err
			}
			defer done()
			dst, ok := src.(storage.Sink)
			if !ok {
				return usagef("backend %q does not accept imports", a.backend)
			}

			f, err := os.Open(in)
			if err != nil {
				return err
			}
			defer f.Close()
			s, err := bundle.ReadWithOptions(bufio.NewReader(f), bundle.ReadOptions{Verify: verify})
			if err != nil {
				return err
			}
			if err := dst.Import(height, s); err != nil {
				return err
			}
			a.log.Info().Uint64("height", height).Int("entries", s.Len()).Int("bytes", s.Size()).Msg("imported bundle")
			fmt.Fprintf(a.out, "imported %d preimages (%d bytes) for block %d\n", s.Len(), s.Size(), height)
			return nil
		},
	}
	cmd.Flags().Uint64Var(&height, "height", 0, "L2 block number")
	cmd.Flags().StringVar(&in, "in", "", "bundle file to import")
	cmd.Flags().BoolVar(&verify, "check", false, "check every verifiable preimage against its key before importing")
	return cmd
}

func (a *app) storeExportCmd() *cobra.Command {
	var (
		height uint64
		out    string
		index  bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the store for a block as a deterministic TAR bundle",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("height") || out == "" {
				return usagef("store export requires --height and --out")
			}
			src, done, err := a.source(cmd)
			if err != nil {
				return err
			}
			defer done()

			s, err := src.Load(cmd.Context(), height)
			if err != nil {
				return err
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			w := bufio.NewWriter(f)
			if err := bundle.Export(w, height, s, bundle.ExportOptions{IncludeIndex: index}); err != nil {
				_ = f.Close()
				return err
			}
			if err := w.Flush(); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "exported %d preimages (%d bytes) for block %d to %s\n", s.Len(), s.Size(), height, out)
			return nil
		},
	}
	cmd.Flags().Uint64Var(&height, "height", 0, "L2 block number")
	cmd.Flags().StringVar(&out, "out", "", "bundle file to write")
	cmd.Flags().BoolVar(&index, "index", false, "include index.json metadata")
	return cmd
}

func (a *app) storeInspectCmd() *cobra.Command {
	var height uint64
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "List the preimages of a block store and check them against their keys",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("height") {
				return usagef("store inspect requires --height")
			}
			src, done, err := a.source(cmd)
			if err != nil {
				return err
			}
			defer done()

			s, err := src.Load(cmd.Context(), height)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tTYPE\tSIZE\tSTATUS")
			failed := 0
			s.Range(func(k preimage.Key, v []byte) bool {
				status := "ok"
				if err := preimage.Verify(k, v); err != nil {
					status = "FAIL"
					failed++
				} else if !k.Type().Verifiable() {
					status = "unchecked"
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", k, k.Type(), len(v), status)
				return true
			})
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%d preimages, %d bytes\n", s.Len(), s.Size())
			if failed > 0 {
				return fmt.Errorf("%d of %d preimages do not match their keys", failed, s.Len())
			}
			return nil
		},
	}
	cmd.Flags().Uint64Var(&height, "height", 0, "L2 block number")
	return cmd
}
