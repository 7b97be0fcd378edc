// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 j9brown

package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/j9brown/node-zwave-pe653/pkg/iboot"
	"github.com/j9brown/node-zwave-pe653/pkg/zwavejs"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file> [nodeId] [mqttUrl] [apiTopic]",
	Short: "Upload firmware from an .iboot archive to a device",
	Long: `Deliver the matching firmware image from the archive to a node through
a Z-Wave JS UI gateway.

The node's manufacturer and product ids are read first and must map to a
product the archive carries an image for. A bad transfer can leave the
device unbootable until reflashed over JTAG/SWD, so the command asks for
confirmation before the first packet is sent.`,
	Args: cobra.RangeArgs(1, 4),
	RunE: runRealUpload,
}

func init() {
	rootCmd.AddCommand(uploadCmd)
}

func runRealUpload(cmd *cobra.Command, args []string) error {
	nodeID, mqttURL, apiTopic, err := gatewayParams(args[1:])
	if err != nil {
		return err
	}
	archive, err := iboot.DecodeFile(args[0])
	if err != nil {
		return err
	}

	client, err := zwavejs.Dial(mqttURL, apiTopic, log)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx := context.Background()
	info, err := client.NodeInfo(ctx, nodeID)
	if err != nil {
		return err
	}
	code, err := info.ProductCode()
	if err != nil {
		return err
	}
	product, ok := archive.Products[code]
	if !ok || !product.Loaded() {
		return &zwavejs.UnsupportedNodeError{
			Reason: fmt.Sprintf("archive has no firmware image for %s", code),
		}
	}

	fmt.Printf("Node %d is a %s running firmware %s\n", nodeID, code, info.FirmwareVersion)
	fmt.Printf("Archive offers %s %s (%d bytes, sha256 %s)\n",
		product.Name, product.Version, product.BlobLength(), product.BlobHash)
	fmt.Println("\nDo not power off the device or the gateway during the upload.")
	if err := confirm(); err != nil {
		return err
	}

	return runUpload(ctx, client.Transport(nodeID), product)
}

// confirm requires the operator to type exactly YES at an interactive
// terminal before an image is transmitted.
func confirm() error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return fmt.Errorf("upload confirmation requires an interactive terminal")
	}
	fmt.Print(`Proceed? [Enter "YES" to confirm] `)
	answer, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return err
	}
	if strings.TrimRight(answer, "\r\n") != "YES" {
		return fmt.Errorf("upload declined")
	}
	return nil
}

// newUploadBar renders transfer progress as a byte counter.
func newUploadBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Uploading"),
		progressbar.OptionShowBytes(true),
		progressbar.OptionThrottle(0),
	)
}
