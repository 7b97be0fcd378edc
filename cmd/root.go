// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 j9brown

package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	debug      bool
	configPath string

	log = logrus.New()
)

var rootCmd = &cobra.Command{
	Use:   "pe653",
	Short: "Firmware update client for Intermatic PE653/PE953 pool controllers",
	Long: `pe653 - Firmware update client for Intermatic PE653/PE953 pool and spa
controllers.

Decrypts vendor .iboot firmware archives, recovers the per-product firmware
images they contain, and delivers them to a device over the Z-Wave
Manufacturer Proprietary command class through a Z-Wave JS UI gateway
reachable via MQTT.

A failed update can leave the device unbootable until reflashed over
JTAG/SWD, so uploads require explicit confirmation.

Gateway commands take <nodeId> <mqttUrl> <apiTopic> arguments; defaults for
these can be kept in a YAML file passed with --config.`,
	Version:      "1.0.0",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if debug {
			log.SetLevel(logrus.DebugLevel)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging of packets and rpc exchanges")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML file with default nodeId/mqttUrl/apiTopic")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
