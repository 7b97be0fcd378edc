// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 j9brown

package cmd

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// gatewayConfig holds defaults for the gateway argument triple so repeated
// invocations don't need the full command line.
type gatewayConfig struct {
	NodeID   int    `yaml:"nodeId"`
	MqttURL  string `yaml:"mqttUrl"`
	APITopic string `yaml:"apiTopic"`
}

func loadConfig() (*gatewayConfig, error) {
	cfg := &gatewayConfig{}
	if configPath == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", configPath, err)
	}
	return cfg, nil
}

// gatewayParams resolves nodeId/mqttUrl/apiTopic from positional arguments,
// falling back to the config file for whatever is omitted.
func gatewayParams(args []string) (nodeID int, mqttURL, apiTopic string, err error) {
	cfg, err := loadConfig()
	if err != nil {
		return 0, "", "", err
	}
	nodeID, mqttURL, apiTopic = cfg.NodeID, cfg.MqttURL, cfg.APITopic

	if len(args) > 0 {
		nodeID, err = strconv.Atoi(args[0])
		if err != nil {
			return 0, "", "", fmt.Errorf("invalid node id %q", args[0])
		}
	}
	if len(args) > 1 {
		mqttURL = args[1]
	}
	if len(args) > 2 {
		apiTopic = args[2]
	}

	switch {
	case nodeID <= 0:
		err = fmt.Errorf("node id is required (argument or config file)")
	case mqttURL == "":
		err = fmt.Errorf("mqtt url is required (argument or config file)")
	case apiTopic == "":
		err = fmt.Errorf("api topic is required (argument or config file)")
	}
	return nodeID, mqttURL, apiTopic, err
}
