// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 j9brown

package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/j9brown/node-zwave-pe653/pkg/iboot"
	"github.com/j9brown/node-zwave-pe653/pkg/pe653"
	"github.com/spf13/cobra"
)

var fakeUploadCmd = &cobra.Command{
	Use:   "fake-upload <file>",
	Short: "Run the upload engine against an in-process device simulator",
	Long: `Exercise the complete transfer state machine without touching a real
device: the receiver's image from the archive is delivered to a simulated
bootloader, including its habit of never acknowledging the final DONE.`,
	Args: cobra.ExactArgs(1),
	RunE: runFakeUpload,
}

func init() {
	rootCmd.AddCommand(fakeUploadCmd)
}

func runFakeUpload(cmd *cobra.Command, args []string) error {
	archive, err := iboot.DecodeFile(args[0])
	if err != nil {
		return err
	}
	product, err := uploadableProduct(archive)
	if err != nil {
		return err
	}
	fmt.Printf("Uploading %s %s (%d bytes) to simulator\n",
		product.ID, product.Version, product.BlobLength())

	return runUpload(context.Background(), pe653.NewFakeTransport(), product)
}

// uploadableProduct picks the product whose image the receiver accepts.
func uploadableProduct(archive *iboot.Archive) (*iboot.Product, error) {
	for _, code := range archive.ProductCodes() {
		p := archive.Products[code]
		if p.Loaded() && p.BlobLength() == pe653.KnownFirmwareSize {
			return p, nil
		}
	}
	return nil, fmt.Errorf("archive has no image of %d bytes", pe653.KnownFirmwareSize)
}

// runUpload wires the progress bar and shared outcome reporting around the
// engine, for both the simulator and a real gateway transport.
func runUpload(ctx context.Context, transport pe653.Transport, product *iboot.Product) error {
	bar := newUploadBar(product.BlobLength())
	uploader := pe653.NewUploader(
		&pe653.LoggingTransport{Inner: transport, Log: log},
		pe653.WithLogger(log),
		pe653.WithProgress(func(sent, total int) {
			_ = bar.Set(sent)
		}),
	)

	err := uploader.Upload(ctx, product.Blob)
	fmt.Println()
	if errors.Is(err, pe653.ErrNoConfirmation) {
		fmt.Println("Upload finished without final confirmation; the device normally")
		fmt.Println("resets and applies the image. Verify the version after it reboots.")
		return err
	}
	if err != nil {
		return err
	}
	fmt.Println("Upload confirmed by device.")
	return nil
}
