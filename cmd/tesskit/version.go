package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wudi/tesskit/engine/tesseract"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print tesskit and libtesseract versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("tesskit", version)

			client, err := tesseract.NewClient(
				tesseract.WithTesseractLib(cfg.Library.Tesseract),
				tesseract.WithLeptonicaLib(cfg.Library.Leptonica),
			)
			if err != nil {
				fmt.Printf("libtesseract unavailable: %v\n", err)
				return nil
			}
			defer client.Close()
			fmt.Println("libtesseract", client.Version())
			return nil
		},
	}
}
