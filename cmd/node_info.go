// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 j9brown

package cmd

import (
	"context"
	"fmt"

	"github.com/j9brown/node-zwave-pe653/pkg/zwavejs"
	"github.com/spf13/cobra"
)

var nodeInfoCmd = &cobra.Command{
	Use:   "node-info [nodeId] [mqttUrl] [apiTopic]",
	Short: "Show a node's identity as seen by the gateway",
	Args:  cobra.MaximumNArgs(3),
	RunE:  runNodeInfo,
}

func init() {
	rootCmd.AddCommand(nodeInfoCmd)
}

func runNodeInfo(cmd *cobra.Command, args []string) error {
	nodeID, mqttURL, apiTopic, err := gatewayParams(args)
	if err != nil {
		return err
	}
	client, err := zwavejs.Dial(mqttURL, apiTopic, log)
	if err != nil {
		return err
	}
	defer client.Close()

	info, err := client.NodeInfo(context.Background(), nodeID)
	if err != nil {
		return err
	}
	fmt.Printf("node:         %d\n", nodeID)
	fmt.Printf("manufacturer: 0x%04X\n", info.ManufacturerID)
	fmt.Printf("product type: 0x%04X\n", info.ProductType)
	fmt.Printf("product id:   0x%04X\n", info.ProductID)
	fmt.Printf("firmware:     %s\n", info.FirmwareVersion)
	if code, err := info.ProductCode(); err == nil {
		fmt.Printf("product:      %s\n", code)
	} else {
		fmt.Printf("product:      %v\n", err)
	}
	return nil
}
