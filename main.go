// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 j9brown
//
// node-zwave-pe653 - Firmware update client for Intermatic PE653/PE953
// pool and spa controllers.
//
// Recovers per-product firmware images from vendor .iboot archives and
// delivers them over the Z-Wave Manufacturer Proprietary command class
// through a Z-Wave JS UI gateway reachable via MQTT.

package main

import (
	"os"

	"github.com/j9brown/node-zwave-pe653/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
