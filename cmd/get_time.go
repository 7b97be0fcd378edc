// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 j9brown

package cmd

import (
	"context"
	"fmt"

	"github.com/j9brown/node-zwave-pe653/pkg/zwavejs"
	"github.com/spf13/cobra"
)

// clockProbe is the proprietary state poll whose report carries the
// controller's clock. Only bytes 14 and 15 of the report are understood
// (hours and minutes); the rest of the frame is undocumented.
var clockProbe = []byte{0x01, 0x84}

var getTimeCmd = &cobra.Command{
	Use:   "get-time [nodeId] [mqttUrl] [apiTopic]",
	Short: "Read the controller's clock over one diagnostic exchange",
	Args:  cobra.MaximumNArgs(3),
	RunE:  runGetTime,
}

func init() {
	rootCmd.AddCommand(getTimeCmd)
}

func runGetTime(cmd *cobra.Command, args []string) error {
	nodeID, mqttURL, apiTopic, err := gatewayParams(args)
	if err != nil {
		return err
	}
	client, err := zwavejs.Dial(mqttURL, apiTopic, log)
	if err != nil {
		return err
	}
	defer client.Close()

	reply, err := client.SendCommand(context.Background(), nodeID, clockProbe)
	if err != nil {
		return err
	}
	if reply == nil {
		return fmt.Errorf("node %d did not respond", nodeID)
	}
	log.Debugf("state report: % X", reply)
	if len(reply) < 16 {
		return fmt.Errorf("state report too short: %d bytes", len(reply))
	}
	fmt.Printf("%02d:%02d\n", reply[14], reply[15])
	return nil
}
