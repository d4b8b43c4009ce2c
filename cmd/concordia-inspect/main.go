// Command concordia-inspect loads a compiled Concordia IL image and
// reports its header, key table, and transform table, or exercises a
// round trip against a synthetic host to sanity-check a freshly built
// image before wiring it into a real application.
package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"unsafe"

	"github.com/spf13/cobra"

	"concordia/callback"
	"concordia/program"
	"concordia/vm"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "concordia-inspect",
		Short: "Inspect and exercise compiled Concordia IL images",
	}

	rootCmd.AddCommand(newInspectCmd())
	rootCmd.AddCommand(newRoundtripCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <image>",
		Short: "Print an IL image's header, keys, and transforms",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			image, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading image: %w", err)
			}
			prog, err := program.Load(image)
			if err != nil {
				return fmt.Errorf("loading image: %w", err)
			}

			fmt.Printf("version: %d.%d\n", prog.Major, prog.Minor)
			fmt.Printf("build id: %s\n", prog.BuildID)
			fmt.Printf("code: %d bytes\n", len(prog.Code))

			fmt.Println("keys:")
			for _, k := range prog.Keys {
				fmt.Printf("  %5d  type=%-3d  %s\n", k.ID, k.TypeTag, k.Name)
			}

			fmt.Println("transforms:")
			for i, tr := range prog.Transforms {
				fmt.Printf("  [%d] kind=%d coeffs=%v\n", i, tr.Kind, tr.Coeffs)
			}
			return nil
		},
	}
}

func newRoundtripCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "roundtrip <image>",
		Short: "Encode zeroed fields and decode them back, reporting any encode or decode error",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			image, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading image: %w", err)
			}
			prog, err := program.Load(image)
			if err != nil {
				return fmt.Errorf("loading image: %w", err)
			}

			buf := make([]byte, 4096)
			echo := &echoHost{}

			var enc vm.Context
			enc.Init(callback.ModeEncode, prog, buf, echo.callback, nil)
			if err := enc.Execute(); err != nil {
				code, off := enc.LastError()
				return fmt.Errorf("encode failed: %s at offset %d: %w", code, off, err)
			}
			n := enc.Cursor()
			fmt.Printf("encoded %d bytes: %s\n", n, hex.EncodeToString(buf[:n]))

			var dec vm.Context
			dec.Init(callback.ModeDecode, prog, buf[:n], echo.callback, nil)
			if err := dec.Execute(); err != nil {
				code, off := dec.LastError()
				return fmt.Errorf("decode failed: %s at offset %d: %w", code, off, err)
			}
			fmt.Println("decode ok")
			return nil
		},
	}
}

// echoHost hands back zero-valued fields on encode and discards whatever
// comes back on decode; it exists only to exercise every opcode the image
// touches without requiring a real application's data model.
type echoHost struct{}

func (h *echoHost) callback(ctx callback.Context, keyID uint16, opType callback.OpType, slot unsafe.Pointer) error {
	switch opType {
	case callback.OpArrFixed, callback.OpCtxQuery:
		*(*uint64)(slot) = 0
	case callback.OpOptionalPresence:
		*(*bool)(slot) = false
	case callback.OpLoadCtx:
		*(*uint64)(slot) = 0
	}
	return nil
}
